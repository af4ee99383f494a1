package battle

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

const MaxTeamSize = 6

var (
	ErrNoTeam       = errors.New("NoTeam")
	ErrTeamTooLarge = errors.New("TeamTooLarge")

	ErrMatchNotFound = errors.New("match not found")
	ErrMatchEnded    = errors.New("match already ended")
	ErrNotAPlayer    = errors.New("winner is not a player in this match")
)

// ValidateTeam checks a comma separated team.
func ValidateTeam(team string) error {
	n := 0
	for _, member := range strings.Split(team, ",") {
		if strings.TrimSpace(member) != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return ErrNoTeam
	case n > MaxTeamSize:
		return fmt.Errorf("%w: %d members, at most %d allowed", ErrTeamTooLarge, n, MaxTeamSize)
	}
	return nil
}

// Ready reports whether u can enter a match of format right now.
func Ready(u *identity.User, format string) error {
	if err := ValidateTeam(u.Team()); err != nil {
		return fmt.Errorf("%s team: %w", format, err)
	}
	return nil
}

// Match is one hosted battle. It ends exactly once, either through a
// result report or a forfeit.
type Match struct {
	id     string
	format string
	rated  bool
	p1, p2 identity.UserID
	teams  [2]string
	host   *Host

	mu    sync.Mutex
	ended bool
	onEnd func(winner identity.UserID, score []int)
}

func (m *Match) ID() string                        { return m.id }
func (m *Match) Format() string                    { return m.format }
func (m *Match) Rated() bool                       { return m.rated }
func (m *Match) Players() (p1, p2 identity.UserID) { return m.p1, m.p2 }
func (m *Match) Teams() (string, string)           { return m.teams[0], m.teams[1] }

// SetOnEnd installs the function called when the match ends. It runs on the
// goroutine that ends the match.
func (m *Match) SetOnEnd(fn func(winner identity.UserID, score []int)) {
	m.mu.Lock()
	m.onEnd = fn
	m.mu.Unlock()
}

// End concludes the match. An empty winner is a draw.
func (m *Match) End(winner identity.UserID, score []int) error {
	m.mu.Lock()
	if m.ended {
		m.mu.Unlock()
		return ErrMatchEnded
	}
	if winner != "" && winner != m.p1 && winner != m.p2 {
		m.mu.Unlock()
		return ErrNotAPlayer
	}
	m.ended = true
	fn := m.onEnd
	m.mu.Unlock()

	if m.host != nil {
		m.host.remove(m)
	}
	if fn != nil {
		fn(winner, score)
	}
	return nil
}

func (m *Match) Forfeit(loser identity.UserID) {
	winner := m.p1
	if loser == m.p1 {
		winner = m.p2
	}
	if err := m.End(winner, nil); err != nil && m.host != nil {
		m.host.logger.Debug("forfeit on finished match", zap.String("match", m.id))
	}
}

func (m *Match) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

// Host keeps the running matches of the process so results can be reported
// against them by id.
type Host struct {
	mu       sync.RWMutex
	matches  map[string]*Match
	lockdown atomic.Bool
	logger   *zap.Logger
}

func NewHost(logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{matches: make(map[string]*Match), logger: logger}
}

// Start opens a match between a and b. It returns nil once the host is in
// lockdown.
func (h *Host) Start(a, b *identity.User, format string, rated bool, teamA, teamB string) *Match {
	if h.lockdown.Load() {
		h.logger.Info("match refused during lockdown", zap.String("p1", string(a.ID)), zap.String("p2", string(b.ID)))
		return nil
	}
	m := &Match{
		id:     "battle-" + format + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0],
		format: format,
		rated:  rated,
		p1:     a.ID,
		p2:     b.ID,
		teams:  [2]string{teamA, teamB},
		host:   h,
	}
	h.mu.Lock()
	h.matches[m.id] = m
	h.mu.Unlock()

	h.logger.Info("match started", zap.String("match", m.id), zap.String("p1", string(a.ID)), zap.String("p2", string(b.ID)))
	return m
}

func (h *Host) Get(id string) (*Match, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.matches[id]
	return m, ok
}

// Report ends the match with the given id.
func (h *Host) Report(id string, winner identity.UserID, score []int) error {
	m, ok := h.Get(id)
	if !ok {
		return ErrMatchNotFound
	}
	if err := m.End(winner, score); err != nil {
		return err
	}
	h.logger.Info("match reported", zap.String("match", id), zap.String("winner", string(winner)))
	return nil
}

func (h *Host) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches)
}

// Lockdown refuses new matches. Running ones can still finish.
func (h *Host) Lockdown() { h.lockdown.Store(true) }

func (h *Host) remove(m *Match) {
	h.mu.Lock()
	if h.matches[m.id] == m {
		delete(h.matches, m.id)
	}
	h.mu.Unlock()
}

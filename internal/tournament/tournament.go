package tournament

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/bracket"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/metrics"
	"github.com/DoyleJ11/tournament-backend/pkg/types"
)

const joinBatchSize = 5

type Role string

const (
	RoleChallenging Role = "challenging"
	RoleChallenged  Role = "challenged"
)

type pendingChallenge struct {
	opponent *identity.User
	role     Role
	team     string // issuer's team when the challenge was confirmed
}

type liveMatch struct {
	opponent *identity.User
	handle   MatchHandle
}

// entrant is the match state of one participant. Entrants exist only after start.
type entrant struct {
	user         *identity.User
	disqualified bool
	challenge    *pendingChallenge
	match        *liveMatch // held by the issuer only
	available    map[identity.UserID]bool
}

// Tournament runs one tournament in one room. It is not safe for concurrent
// use: the owning room calls it from a single goroutine. Started and
// GeneratorName may be read from anywhere.
type Tournament struct {
	registry   *Registry
	session    Session
	setup      MatchSetup
	host       MatchHost
	identities Identities
	rewards    Rewarder
	metrics    *metrics.Metrics
	logger     *zap.Logger

	format    string
	rated     bool
	generator bracket.Generator
	genName   atomic.String
	started   atomic.Bool
	finished  bool

	bracketDirty      bool
	availabilityDirty bool
	bracketCache      *types.BracketData
	availability      *availability

	entrants     map[identity.UserID]*entrant
	awaiting     map[ConfirmationID]confirmation
	pendingJoins []string
}

func newTournament(r *Registry, req CreateRequest, format string, g bracket.Generator) *Tournament {
	t := &Tournament{
		registry:          r,
		session:           req.Session,
		setup:             req.Setup,
		host:              req.Host,
		identities:        r.cfg.Identities,
		rewards:           r.cfg.Rewards,
		metrics:           r.cfg.Metrics,
		logger:            r.cfg.Logger.With(zap.String("room", req.Session.ID())),
		format:            format,
		rated:             req.Rated,
		generator:         g,
		bracketDirty:      true,
		availabilityDirty: true,
	}
	t.genName.Store(g.Name())
	return t
}

// open announces the new tournament to the room.
func (t *Tournament) open() {
	name := t.generator.Name()
	t.session.Broadcast(Event{Kind: KindCreate, Data: Fields{"format": t.format, "generator": name}})
	t.session.Broadcast(update(Fields{
		"format":    t.format,
		"generator": name,
		"isStarted": false,
		"isJoined":  false,
	}))
	t.metrics.TournamentCreated()
	t.logger.Info("tournament created", zap.String("format", t.format), zap.String("generator", name))
	t.broadcastUpdate()
}

func (t *Tournament) Room() string          { return t.session.ID() }
func (t *Tournament) Format() string        { return t.format }
func (t *Tournament) GeneratorName() string { return t.genName.Load() }
func (t *Tournament) Started() bool         { return t.started.Load() }
func (t *Tournament) Finished() bool        { return t.finished }

func (t *Tournament) Participants() []*identity.User { return t.generator.Participants() }

func (t *Tournament) isJoined(id identity.UserID) bool {
	return slices.ContainsFunc(t.generator.Participants(), func(u *identity.User) bool { return u.ID == id })
}

// SetGenerator swaps the bracket algorithm before start. Every participant is
// re-added to g; if any re-add fails the old generator stays and all
// failures are returned.
func (t *Tournament) SetGenerator(g bracket.Generator) error {
	if t.started.Load() {
		return bracket.ErrFrozen
	}
	var errs error
	for _, u := range t.generator.Participants() {
		if err := g.Add(u); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", u.Name, err))
		}
	}
	if errs != nil {
		return errs
	}

	t.generator = g
	t.genName.Store(g.Name())
	t.session.Broadcast(update(Fields{"generator": g.Name()}))
	t.bracketDirty = true
	t.broadcastUpdate()
	return nil
}

func (t *Tournament) Join(u *identity.User, allowAlts bool) error {
	if !allowAlts {
		joined := make(map[identity.UserID]bool)
		for _, p := range t.generator.Participants() {
			joined[p.ID] = true
		}
		for _, alt := range t.identities.Alts(u.ID) {
			if joined[alt] {
				return ErrAltAlreadyJoined
			}
		}
	}
	if err := t.generator.Add(u); err != nil {
		return err
	}

	t.pendingJoins = append(t.pendingJoins, u.Name)
	if len(t.pendingJoins) >= joinBatchSize {
		t.flushJoins()
	}
	t.session.SendTo(u.ID, update(Fields{"isJoined": true}))
	t.bracketDirty = true
	t.broadcastUpdate()
	return nil
}

func (t *Tournament) flushJoins() {
	if len(t.pendingJoins) == 0 {
		return
	}
	names := t.pendingJoins
	t.pendingJoins = nil
	t.session.Announce("The following users have joined the tournament: " + strings.Join(names, ", ") + ".")
	t.session.Broadcast(Event{Kind: KindJoin, Data: Fields{"users": names}})
}

func (t *Tournament) Leave(u *identity.User) error {
	if err := t.generator.Remove(u); err != nil {
		return err
	}
	t.pendingJoins = slices.DeleteFunc(t.pendingJoins, func(n string) bool { return n == u.Name })
	t.session.Broadcast(Event{Kind: KindLeave, Data: Fields{"user": u.Name}})
	t.session.SendTo(u.ID, update(Fields{"isJoined": false}))
	t.bracketDirty = true
	t.broadcastUpdate()
	return nil
}

// Replace hands old's slot to replacement. After start only an idle
// participant can be replaced; their match state moves to the replacement.
func (t *Tournament) Replace(old, replacement *identity.User) error {
	var e *entrant
	if t.started.Load() {
		e = t.entrants[old.ID]
		if e != nil && t.generator.Busy(e.user) {
			return ErrParticipantBusy
		}
	}
	if err := t.generator.Replace(old, replacement); err != nil {
		return err
	}
	if e != nil {
		delete(t.entrants, old.ID)
		e.user = replacement
		e.disqualified = false
		t.entrants[replacement.ID] = e
		t.availabilityDirty = true
	}

	t.session.Broadcast(Event{Kind: KindReplace, Data: Fields{"user": old.Name, "replacement": replacement.Name}})
	t.session.SendTo(old.ID, update(Fields{"isJoined": false}))
	t.session.SendTo(replacement.ID, update(Fields{"isJoined": true}))
	t.bracketDirty = true
	t.broadcastUpdate()
	return nil
}

func (t *Tournament) Start() error {
	if t.started.Load() {
		return ErrAlreadyStarted
	}
	t.purgeGhosts()
	users := t.generator.Participants()
	if len(users) < 2 {
		return ErrNotEnoughParticipants
	}

	t.generator.Freeze()
	t.allocate(users)
	t.flushJoins()

	t.started.Store(true)
	t.bracketDirty = true
	t.availabilityDirty = true
	t.session.Broadcast(Event{Kind: KindStart, Data: Fields{"size": len(users)}})
	t.session.Broadcast(update(Fields{"isStarted": true}))
	t.metrics.TournamentStarted()
	t.logger.Info("tournament started", zap.Int("participants", len(users)))
	t.broadcastUpdate()
	return nil
}

// allocate creates the per-participant match state. It runs once, at start.
func (t *Tournament) allocate(users []*identity.User) {
	t.entrants = make(map[identity.UserID]*entrant, len(users))
	t.awaiting = make(map[ConfirmationID]confirmation)
	for _, u := range users {
		row := make(map[identity.UserID]bool, len(users))
		for _, opp := range users {
			row[opp.ID] = false
		}
		t.entrants[u.ID] = &entrant{user: u, available: row}
	}
}

// ForceEnd stops the tournament without results. Running matches carry on
// but no longer report back.
func (t *Tournament) ForceEnd() {
	if t.finished {
		return
	}
	for _, e := range t.entrants {
		if e.match != nil {
			e.match.handle.OnComplete(nil)
		}
	}
	t.finished = true
	t.session.Broadcast(Event{Kind: KindForceEnd})
	t.registry.remove(t)
	t.metrics.TournamentEnded("forced")
	t.logger.Info("tournament force ended")
}

// violation reports an internal inconsistency and returns it as an error.
func (t *Tournament) violation(op, format string, args ...any) error {
	err := fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrContractViolation)
	t.logger.Error("tournament contract violation", zap.String("op", op), zap.Error(err))
	t.metrics.ContractViolation()
	t.session.Announce("Tournament error in " + op + ". Please report this to an admin.")
	return err
}

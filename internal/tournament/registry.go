package tournament

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/bracket"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/metrics"
	"github.com/DoyleJ11/tournament-backend/pkg/types"
)

type Config struct {
	Formats    []string
	Generators *bracket.Registry
	Identities Identities
	Rewards    Rewarder // optional
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// Registry holds at most one active tournament per room.
type Registry struct {
	cfg      Config
	formats  map[string]bool
	mu       sync.Mutex
	sessions map[string]*Tournament
	lockdown atomic.Bool
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Generators == nil {
		cfg.Generators = bracket.NewRegistry()
	}
	formats := make(map[string]bool, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats[string(identity.ToID(f))] = true
	}
	return &Registry{
		cfg:      cfg,
		formats:  formats,
		sessions: make(map[string]*Tournament),
	}
}

type CreateRequest struct {
	Session Session
	Setup   MatchSetup
	Host    MatchHost
	Format  string
	Kind    string
	Args    []string
	Rated   bool
}

func (r *Registry) Create(req CreateRequest) (*Tournament, error) {
	id := req.Session.ID()
	if r.Get(id) != nil {
		return nil, ErrTournamentExists
	}
	if r.lockdown.Load() {
		return nil, ErrLockdown
	}
	format := string(identity.ToID(req.Format))
	if !r.formats[format] {
		return nil, &ValidationError{Field: "format", Value: req.Format, Valid: r.Formats()}
	}
	g, err := r.NewGenerator(req.Kind, req.Args)
	if err != nil {
		return nil, err
	}

	t := newTournament(r, req, format, g)
	r.mu.Lock()
	if r.sessions[id] != nil {
		r.mu.Unlock()
		return nil, ErrTournamentExists
	}
	r.sessions[id] = t
	r.mu.Unlock()

	t.open()
	return t, nil
}

// NewGenerator builds a generator, turning an unknown kind into a
// ValidationError that lists the known ones.
func (r *Registry) NewGenerator(kind string, args []string) (bracket.Generator, error) {
	g, err := r.cfg.Generators.New(kind, args)
	if errors.Is(err, bracket.ErrUnknownKind) {
		return nil, &ValidationError{Field: "type", Value: kind, Valid: r.cfg.Generators.Kinds()}
	}
	return g, err
}

func (r *Registry) Get(session string) *Tournament {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[session]
}

// End force-ends the tournament in session. Call it from the room that owns it.
func (r *Registry) End(session string) error {
	t := r.Get(session)
	if t == nil {
		return ErrNoTournament
	}
	t.ForceEnd()
	return nil
}

// remove deletes t, and only t, from its room's slot.
func (r *Registry) remove(t *Tournament) {
	id := t.session.ID()
	r.mu.Lock()
	if r.sessions[id] == t {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
}

// List summarises every active tournament, sorted by room.
func (r *Registry) List() []types.TournamentSummary {
	r.mu.Lock()
	out := make([]types.TournamentSummary, 0, len(r.sessions))
	for id, t := range r.sessions {
		out = append(out, types.TournamentSummary{
			Room:      id,
			Format:    t.Format(),
			Generator: t.GeneratorName(),
			IsStarted: t.Started(),
		})
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b types.TournamentSummary) int { return cmp.Compare(a.Room, b.Room) })
	return out
}

func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.formats))
	for f := range r.formats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Lockdown refuses new tournaments from now on.
func (r *Registry) Lockdown()    { r.lockdown.Store(true) }
func (r *Registry) Locked() bool { return r.lockdown.Load() }

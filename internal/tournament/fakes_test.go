package tournament

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

type recordingSink struct {
	id         string
	official   bool
	wins       bool
	battles    bool
	lines      []string
	broadcasts []Event
	sent       map[identity.UserID][]Event
}

func newSink(id string) *recordingSink {
	return &recordingSink{id: id, wins: true, battles: true, sent: map[identity.UserID][]Event{}}
}

func (s *recordingSink) Announce(line string) { s.lines = append(s.lines, line) }
func (s *recordingSink) Broadcast(ev Event)   { s.broadcasts = append(s.broadcasts, ev) }
func (s *recordingSink) SendTo(id identity.UserID, ev Event) {
	s.sent[id] = append(s.sent[id], ev)
}
func (s *recordingSink) ID() string            { return s.id }
func (s *recordingSink) Official() bool        { return s.official }
func (s *recordingSink) AnnounceWins() bool    { return s.wins }
func (s *recordingSink) AnnounceBattles() bool { return s.battles }

// broadcastKinds returns the kinds of every broadcast event so far.
func (s *recordingSink) broadcastKinds() []Kind {
	out := make([]Kind, 0, len(s.broadcasts))
	for _, ev := range s.broadcasts {
		out = append(out, ev.Kind)
	}
	return out
}

func (s *recordingSink) lastBroadcast(kind Kind) (Fields, bool) {
	for i := len(s.broadcasts) - 1; i >= 0; i-- {
		if s.broadcasts[i].Kind == kind {
			f, _ := s.broadcasts[i].Data.(Fields)
			return f, true
		}
	}
	return nil, false
}

// lastSent returns the most recent value of key in updates sent to id.
func (s *recordingSink) lastSent(id identity.UserID, key string) (any, bool) {
	evs := s.sent[id]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Kind != KindUpdate {
			continue
		}
		if v, ok := evs[i].Data.(Fields)[key]; ok {
			return v, true
		}
	}
	return nil, false
}

type setupRequest struct {
	user   *identity.User
	format string
	id     ConfirmationID
}

type fakeSetup struct {
	requests []setupRequest
}

func (f *fakeSetup) Prepare(u *identity.User, format string, id ConfirmationID) {
	f.requests = append(f.requests, setupRequest{user: u, format: format, id: id})
}

func (f *fakeSetup) last(t *testing.T) setupRequest {
	t.Helper()
	require.NotEmpty(t, f.requests, "no match setup requested")
	return f.requests[len(f.requests)-1]
}

type fakeHandle struct {
	id       string
	p1, p2   identity.UserID
	teamA    string
	teamB    string
	hook     func(identity.UserID, []int)
	forfeits []identity.UserID
}

func (h *fakeHandle) ID() string                                   { return h.id }
func (h *fakeHandle) Players() (identity.UserID, identity.UserID)  { return h.p1, h.p2 }
func (h *fakeHandle) OnComplete(hook func(identity.UserID, []int)) { h.hook = hook }

// Forfeit behaves like a real match: it ends, and reports if still hooked.
func (h *fakeHandle) Forfeit(loser identity.UserID) {
	h.forfeits = append(h.forfeits, loser)
	winner := h.p1
	if loser == h.p1 {
		winner = h.p2
	}
	h.finish(winner, nil)
}

func (h *fakeHandle) finish(winner identity.UserID, score []int) {
	if h.hook != nil {
		h.hook(winner, score)
	}
}

type fakeHost struct {
	decline bool
	started []*fakeHandle
}

func (f *fakeHost) Start(a, b *identity.User, format string, rated bool, teamA, teamB string) MatchHandle {
	if f.decline {
		return nil
	}
	h := &fakeHandle{
		id:    fmt.Sprintf("battle-%s-%d", format, len(f.started)+1),
		p1:    a.ID,
		p2:    b.ID,
		teamA: teamA,
		teamB: teamB,
	}
	f.started = append(f.started, h)
	return h
}

type fakeRewards struct {
	losses      []identity.UserID
	completions []Completion
}

func (f *fakeRewards) RecordLoss(format string, u *identity.User) {
	f.losses = append(f.losses, u.ID)
}

func (f *fakeRewards) Complete(c Completion) []string {
	f.completions = append(f.completions, c)
	return []string{"prizes handed out"}
}

type harness struct {
	reg     *Registry
	ids     *identity.Registry
	sink    *recordingSink
	setup   *fakeSetup
	host    *fakeHost
	rewards *fakeRewards
	tour    *Tournament
}

// newHarness creates a tournament of the given kind and joins names in order.
func newHarness(t *testing.T, kind string, names ...string) (*harness, []*identity.User) {
	t.Helper()
	h := &harness{
		ids:     identity.NewRegistry(nil),
		sink:    newSink("lobby"),
		setup:   &fakeSetup{},
		host:    &fakeHost{},
		rewards: &fakeRewards{},
	}
	h.reg = NewRegistry(Config{
		Formats:    []string{"gen9ou"},
		Identities: h.ids,
		Rewards:    h.rewards,
		Logger:     zaptest.NewLogger(t),
	})
	tour, err := h.reg.Create(CreateRequest{
		Session: h.sink,
		Setup:   h.setup,
		Host:    h.host,
		Format:  "gen9ou",
		Kind:    kind,
	})
	require.NoError(t, err)
	h.tour = tour

	users := make([]*identity.User, 0, len(names))
	for _, n := range names {
		u := h.ids.Connect(n)
		require.NoError(t, tour.Join(u, false))
		users = append(users, u)
	}
	return h, users
}

// confirmLast answers the most recent match setup request.
func (h *harness) confirmLast(t *testing.T, ok bool) {
	t.Helper()
	h.tour.Confirm(h.setup.last(t).id, ok)
}

// startMatch runs a full challenge and accept between from and to.
func (h *harness) startMatch(t *testing.T, from, to *identity.User) *fakeHandle {
	t.Helper()
	require.NoError(t, h.tour.Challenge(from, to))
	h.confirmLast(t, true)
	require.NoError(t, h.tour.AcceptChallenge(to))
	h.confirmLast(t, true)
	require.NotEmpty(t, h.host.started)
	return h.host.started[len(h.host.started)-1]
}

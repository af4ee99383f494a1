package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
)

type fakeRoom struct {
	id       string
	lines    []string
	wins     bool
	battles  bool
	prepared []tournament.ConfirmationID
}

func (r *fakeRoom) ID() string                               { return r.id }
func (r *fakeRoom) Official() bool                           { return false }
func (r *fakeRoom) AnnounceWins() bool                       { return r.wins }
func (r *fakeRoom) AnnounceBattles() bool                    { return r.battles }
func (r *fakeRoom) Announce(line string)                     { r.lines = append(r.lines, line) }
func (r *fakeRoom) Broadcast(tournament.Event)               {}
func (r *fakeRoom) SendTo(identity.UserID, tournament.Event) {}
func (r *fakeRoom) SetAnnounceWins(on bool)                  { r.wins = on }
func (r *fakeRoom) SetAnnounceBattles(on bool)               { r.battles = on }
func (r *fakeRoom) Prepare(_ *identity.User, _ string, id tournament.ConfirmationID) {
	r.prepared = append(r.prepared, id)
}
func (r *fakeRoom) Start(_, _ *identity.User, _ string, _ bool, _, _ string) tournament.MatchHandle {
	return nil
}

type fixture struct {
	router  *Router
	reg     *tournament.Registry
	ids     *identity.Registry
	room    *fakeRoom
	now     time.Time
	replies []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ids:  identity.NewRegistry(map[identity.UserID]identity.Role{"oak": identity.RoleModerator, "elm": identity.RoleCreator}),
		room: &fakeRoom{id: "lobby", wins: true, battles: true},
		now:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.reg = tournament.NewRegistry(tournament.Config{
		Formats:    []string{"gen9ou"},
		Identities: f.ids,
		Logger:     zaptest.NewLogger(t),
	})
	f.router = NewRouter(Config{
		Registry:     f.reg,
		Identities:   f.ids,
		JoinCooldown: time.Minute,
		Logger:       zaptest.NewLogger(t),
		Now:          func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) run(name, line string) error {
	return f.router.Dispatch(Request{
		Room:  f.room,
		User:  f.ids.Connect(name),
		Reply: func(l string) { f.replies = append(f.replies, l) },
	}, line)
}

func TestParse(t *testing.T) {
	cases := []struct {
		line   string
		cmd    string
		params []string
	}{
		{line: "/tour", cmd: "", params: nil},
		{line: "/tour create gen9ou, elimination", cmd: "create", params: []string{"gen9ou", "elimination"}},
		{line: "/tournament  J", cmd: "j", params: nil},
		{line: "settype roundrobin, doubles", cmd: "settype", params: []string{"roundrobin", "doubles"}},
		{line: "/tour dq  Some User ", cmd: "dq", params: []string{"Some User"}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			cmd, params := Parse(tc.line)
			assert.Equal(t, tc.cmd, cmd)
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestDispatch_NoTournament(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.run("ash", "/tour join"), tournament.ErrNoTournament)
}

func TestDispatch_CreateRequiresCreator(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.run("ash", "/tour create gen9ou, elimination"), ErrAccessDenied)
	assert.ErrorIs(t, f.run("elm", "/tour new gen9ou"), ErrUsage)

	require.NoError(t, f.run("elm", "/tour new gen9ou, elimination"))
	require.NotNil(t, f.reg.Get("lobby"))
	assert.ErrorIs(t, f.run("elm", "/tour create gen9ou, elimination"), tournament.ErrTournamentExists)
}

func TestDispatch_InvalidFormatListsValid(t *testing.T) {
	f := newFixture(t)
	err := f.run("oak", "/tour create gen1ou, elimination")
	var verr *tournament.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"gen9ou"}, verr.Valid)
}

func TestDispatch_TiersAndAliases(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("elm", "/tour create gen9ou, elimination"))

	assert.ErrorIs(t, f.run("ash", "/tour begin"), ErrAccessDenied)
	assert.ErrorIs(t, f.run("elm", "/tour dq ash"), ErrAccessDenied)
	assert.ErrorIs(t, f.run("ash", "/tour dance"), ErrUnknownCommand)

	require.NoError(t, f.run("ash", "/tour j"))
	require.NoError(t, f.run("misty", "/tour in"))
	assert.Equal(t, []string{"ash", "misty"}, namesOf(f.reg.Get("lobby").Participants()))

	require.NoError(t, f.run("misty", "/tour out"))
	assert.Equal(t, []string{"ash"}, namesOf(f.reg.Get("lobby").Participants()))
}

func TestDispatch_JoinCooldown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("oak", "/tour create gen9ou, elimination"))

	require.NoError(t, f.run("ash", "/tour join"))
	assert.Contains(t, f.replies, "You have joined the tournament.")
	require.NoError(t, f.run("ash", "/tour leave"))

	f.now = f.now.Add(20 * time.Second)
	err := f.run("ash", "/tour join")
	assert.ErrorIs(t, err, ErrJoinCooldown)
	assert.Contains(t, err.Error(), "40 seconds")

	f.now = f.now.Add(40 * time.Second)
	assert.NoError(t, f.run("ash", "/tour join"))
}

func TestDispatch_FailedJoinDoesNotStartCooldown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("oak", "/tour create gen9ou, elimination"))
	require.NoError(t, f.run("ash", "/tour join"))

	f.now = f.now.Add(2 * time.Minute)
	f.ids.LinkAlts("ash", "ashalt")
	assert.ErrorIs(t, f.run("ashalt", "/tour join"), tournament.ErrAltAlreadyJoined)
	require.NoError(t, f.run("ash", "/tour leave"))
	assert.NoError(t, f.run("ashalt", "/tour join"))
}

func TestDispatch_SetTypeAnnounces(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("oak", "/tour create gen9ou, elimination"))

	assert.ErrorIs(t, f.run("oak", "/tour settype"), ErrUsage)
	var verr *tournament.ValidationError
	assert.ErrorAs(t, f.run("oak", "/tour settype swiss"), &verr)

	require.NoError(t, f.run("oak", "/tour settype roundrobin, doubles"))
	assert.Equal(t, "Double Round Robin", f.reg.Get("lobby").GeneratorName())
	assert.Contains(t, f.room.lines, `oak changed the tournament type to "Double Round Robin".`)
}

func TestDispatch_ChallengeNeedsKnownUser(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("oak", "/tour create gen9ou, elimination"))
	require.NoError(t, f.run("ash", "/tour join"))
	require.NoError(t, f.run("misty", "/tour join"))
	require.NoError(t, f.run("oak", "/tour start"))

	assert.ErrorIs(t, f.run("ash", "/tour challenge"), ErrUsage)
	assert.ErrorIs(t, f.run("ash", "/tour challenge nobody"), ErrUserNotFound)

	require.NoError(t, f.run("ash", "/tour challenge Misty"))
	assert.Len(t, f.room.prepared, 1)
}

func TestDispatch_ModerationCommands(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("oak", "/tour create gen9ou, elimination"))
	for _, n := range []string{"ash", "misty", "brock"} {
		require.NoError(t, f.run(n, "/tour join"))
	}
	f.ids.Connect("gary")
	require.NoError(t, f.run("oak", "/tour replace brock, gary"))
	assert.Equal(t, []string{"ash", "misty", "gary"}, namesOf(f.reg.Get("lobby").Participants()))

	require.NoError(t, f.run("oak", "/tour start"))
	require.NoError(t, f.run("oak", "/tour remind"))
	assert.Contains(t, f.room.lines, "Players have been reminded of their tournament battles by oak.")

	require.NoError(t, f.run("oak", "/tour dq gary"))
	assert.ErrorIs(t, f.run("oak", "/tour dq gary"), tournament.ErrAlreadyDisqualified)

	require.NoError(t, f.run("oak", "/tour end"))
	assert.Nil(t, f.reg.Get("lobby"))
}

func TestDispatch_AnnounceToggles(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("oak", "/tour create gen9ou, elimination"))

	assert.ErrorIs(t, f.run("oak", "/tour hidewins"), ErrUsage)
	require.NoError(t, f.run("oak", "/tour hidewins off"))
	assert.False(t, f.room.wins)
	require.NoError(t, f.run("oak", "/tour reportbattles OFF"))
	assert.False(t, f.room.battles)
	require.NoError(t, f.run("oak", "/tour showbattles on"))
	assert.True(t, f.room.battles)
}

func TestDispatch_ListingShowsSignupPhaseOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("ash", "/tour"))
	assert.Equal(t, []string{"There are no tournaments in their signup phase."}, f.replies)

	require.NoError(t, f.run("oak", "/tour create gen9ou, roundrobin"))
	f.replies = nil
	require.NoError(t, f.run("ash", "/tour"))
	assert.Equal(t, []string{"Tournaments in their signup phase: lobby: gen9ou Round Robin"}, f.replies)

	require.NoError(t, f.run("ash", "/tour help"))
	assert.Len(t, f.replies, 2)
}

func namesOf(users []*identity.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}

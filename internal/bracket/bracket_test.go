package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

func users(names ...string) []*identity.User {
	out := make([]*identity.User, len(names))
	for i, n := range names {
		out[i] = &identity.User{ID: identity.UserID(n), Name: n}
	}
	return out
}

func addAll(t *testing.T, g Generator, us []*identity.User) {
	t.Helper()
	for _, u := range us {
		require.NoError(t, g.Add(u))
	}
}

// pairNames renders pairings as "issuer-recipient" for compact assertions.
func pairNames(t *testing.T, g Generator) []string {
	t.Helper()
	pairs, err := g.LegalPairings()
	require.NoError(t, err)
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Issuer.Name+"-"+p.Recipient.Name)
	}
	return out
}

func groupNames(groups [][]*identity.User) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		for _, u := range g {
			out[i] = append(out[i], u.Name)
		}
	}
	return out
}

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"elimination", "roundrobin"}, r.Kinds())

	g, err := r.New("Round Robin", []string{"doubles"})
	require.NoError(t, err)
	assert.Equal(t, "Double Round Robin", g.Name())

	g, err = r.New("elimination", []string{""})
	require.NoError(t, err)
	assert.Equal(t, "Single Elimination", g.Name())

	_, err = r.New("swiss", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.New("elimination", []string{"3"})
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = r.New("roundrobin", []string{"triples"})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestRoster_AddRemoveBeforeFreeze(t *testing.T) {
	g, _ := NewElimination(nil)
	us := users("a", "b", "c")
	addAll(t, g, us)

	assert.ErrorIs(t, g.Add(us[0]), ErrAlreadyAdded)
	require.NoError(t, g.Remove(us[1]))
	assert.ErrorIs(t, g.Remove(us[1]), ErrNotAdded)
	assert.Equal(t, []*identity.User{us[0], us[2]}, g.Participants())

	g.Freeze()
	assert.ErrorIs(t, g.Add(us[1]), ErrFrozen)
	assert.ErrorIs(t, g.Remove(us[0]), ErrFrozen)
}

func TestElimination_FourPlayersToCompletion(t *testing.T) {
	g, _ := NewElimination(nil)
	us := users("a", "b", "c", "d")
	addAll(t, g, us)

	_, err := g.LegalPairings()
	require.ErrorIs(t, err, ErrNotFrozen)

	g.Freeze()
	assert.Equal(t, []string{"a-d", "b-c"}, pairNames(t, g))

	g.SetBusy(us[0], true)
	assert.True(t, g.Busy(us[0]))
	assert.Equal(t, []string{"b-c"}, pairNames(t, g))
	g.SetBusy(us[0], false)

	ended, err := g.RecordResult(Pairing{Issuer: us[0], Recipient: us[3]}, Win, []int{1, 0})
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, []string{"b-c"}, pairNames(t, g))

	// reported from the other side of the match
	ended, err = g.RecordResult(Pairing{Issuer: us[2], Recipient: us[1]}, Win, []int{2, 1})
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, []string{"a-c"}, pairNames(t, g))

	_, err = g.RecordResult(Pairing{Issuer: us[0], Recipient: us[3]}, Win, nil)
	assert.ErrorIs(t, err, ErrNoSuchMatch)

	ended, err = g.RecordResult(Pairing{Issuer: us[0], Recipient: us[2]}, Loss, []int{0, 1})
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, [][]string{{"c"}, {"a"}, {"d", "b"}}, groupNames(g.Results()))

	desc := g.Describe()
	require.Equal(t, ShapeTree, desc.Shape)
	assert.Equal(t, StateFinished, desc.Root.State)
	assert.Equal(t, "c", desc.Root.Team.Name)
	assert.Equal(t, []int{1, 2}, desc.Root.Children[1].Score)
}

func TestElimination_DrawUnsupported(t *testing.T) {
	g, _ := NewElimination(nil)
	us := users("a", "b")
	addAll(t, g, us)
	g.Freeze()

	assert.False(t, g.SupportsDraws())
	_, err := g.RecordResult(Pairing{Issuer: us[0], Recipient: us[1]}, Draw, nil)
	assert.ErrorIs(t, err, ErrUnsupportedOutcome)
}

func TestElimination_ByeGoesToTopSeed(t *testing.T) {
	g, _ := NewElimination(nil)
	addAll(t, g, users("a", "b", "c"))
	g.Freeze()

	assert.Equal(t, []string{"b-c"}, pairNames(t, g))

	desc := g.Describe()
	require.Len(t, desc.Root.Children, 2)
	assert.Equal(t, "a", desc.Root.Children[0].Team.Name)
	assert.Empty(t, desc.Root.Children[0].Children)
	assert.Equal(t, StateUnavailable, desc.Root.State)
	assert.Equal(t, StateAvailable, desc.Root.Children[1].State)
}

func TestElimination_DisqualifyWalkover(t *testing.T) {
	g, _ := NewElimination(nil)
	us := users("a", "b", "c", "d")
	addAll(t, g, us)

	_, err := g.Disqualify(us[3])
	require.ErrorIs(t, err, ErrNotFrozen)

	g.Freeze()
	_, err = g.Disqualify(&identity.User{ID: "zz"})
	require.ErrorIs(t, err, ErrNotAdded)

	ended, err := g.Disqualify(us[3])
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, []string{"b-c"}, pairNames(t, g))

	ended, err = g.Disqualify(us[3])
	require.NoError(t, err, "repeat disqualification is not the generator's concern")
	assert.False(t, ended)

	// b is waiting on nobody; disqualifying a now hands the final to the b-c winner
	ended, err = g.Disqualify(us[0])
	require.NoError(t, err)
	assert.False(t, ended)

	ended, err = g.RecordResult(Pairing{Issuer: us[1], Recipient: us[2]}, Win, []int{1, 0})
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, "b", g.Results()[0][0].Name)
}

func TestElimination_ReplaceAfterFreeze(t *testing.T) {
	g, _ := NewElimination(nil)
	us := users("a", "b", "c", "d")
	addAll(t, g, us)
	g.Freeze()

	e := &identity.User{ID: "e", Name: "e"}
	require.NoError(t, g.Replace(us[1], e))
	assert.Equal(t, []string{"a-d", "e-c"}, pairNames(t, g))
	assert.ErrorIs(t, g.Replace(us[1], e), ErrNotAdded)
	assert.ErrorIs(t, g.Replace(us[0], e), ErrAlreadyAdded)
}

func TestRoundRobin_PlayToCompletionWithDraw(t *testing.T) {
	g, _ := NewRoundRobin(nil)
	us := users("a", "b", "c")
	addAll(t, g, us)
	g.Freeze()

	assert.True(t, g.SupportsDraws())
	assert.Equal(t, []string{"a-b", "a-c", "b-c"}, pairNames(t, g))

	ended, err := g.RecordResult(Pairing{Issuer: us[0], Recipient: us[1]}, Win, []int{1, 0})
	require.NoError(t, err)
	assert.False(t, ended)

	ended, err = g.RecordResult(Pairing{Issuer: us[2], Recipient: us[0]}, Draw, nil)
	require.NoError(t, err)
	assert.False(t, ended)

	_, err = g.RecordResult(Pairing{Issuer: us[0], Recipient: us[2]}, Win, nil)
	assert.ErrorIs(t, err, ErrNoSuchMatch)

	ended, err = g.RecordResult(Pairing{Issuer: us[1], Recipient: us[2]}, Loss, []int{0, 1})
	require.NoError(t, err)
	assert.True(t, ended)

	assert.Equal(t, [][]string{{"a", "c"}, {"b"}}, groupNames(g.Results()))
	assert.Equal(t, []float64{1.5, 0, 1.5}, g.Describe().Table.Scores)
}

func TestRoundRobin_Doubles(t *testing.T) {
	g, _ := NewRoundRobin([]string{"doubles"})
	addAll(t, g, users("a", "b", "c"))
	g.Freeze()

	assert.Equal(t, []string{"a-b", "a-c", "b-a", "b-c", "c-a", "c-b"}, pairNames(t, g))
}

func TestRoundRobin_DisqualifyForfeitsRemaining(t *testing.T) {
	g, _ := NewRoundRobin(nil)
	us := users("a", "b", "c")
	addAll(t, g, us)
	g.Freeze()

	ended, err := g.Disqualify(us[1])
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, []string{"a-c"}, pairNames(t, g))

	ended, err = g.RecordResult(Pairing{Issuer: us[0], Recipient: us[2]}, Loss, nil)
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, [][]string{{"c"}, {"a"}, {"b"}}, groupNames(g.Results()))
}

func TestRoundRobin_DescribeTable(t *testing.T) {
	g, _ := NewRoundRobin(nil)
	us := users("a", "b")
	addAll(t, g, us)

	desc := g.Describe()
	require.Equal(t, ShapeTable, desc.Shape)
	assert.Nil(t, desc.Table.Cells[0][0])
	assert.Nil(t, desc.Table.Cells[1][0])
	assert.Equal(t, StateUnavailable, desc.Table.Cells[0][1].State)

	g.Freeze()
	assert.Equal(t, StateAvailable, g.Describe().Table.Cells[0][1].State)
	g.SetBusy(us[1], true)
	assert.Equal(t, StateUnavailable, g.Describe().Table.Cells[0][1].State)
}

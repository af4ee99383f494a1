package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
)

func TestPrizes(t *testing.T) {
	cases := []struct {
		size, first, second int
	}{
		{size: 8, first: 1, second: 1},
		{size: 14, first: 1, second: 1},
		{size: 15, first: 2, second: 1},
		{size: 25, first: 3, second: 2},
		{size: 64, first: 6, second: 3},
	}
	for _, tc := range cases {
		first, second := Prizes(tc.size)
		assert.Equal(t, tc.first, first, "first for %d", tc.size)
		assert.Equal(t, tc.second, second, "second for %d", tc.size)
	}
}

func users(names ...string) []*identity.User {
	ids := identity.NewRegistry(nil)
	out := make([]*identity.User, 0, len(names))
	for _, n := range names {
		out = append(out, ids.Connect(n))
	}
	return out
}

func TestLedger_RecordLoss(t *testing.T) {
	store := NewMemoryStore()
	l := NewLedger(store, 8, zaptest.NewLogger(t))
	u := users("Brock")[0]

	l.RecordLoss("gen9ou", u)
	l.RecordLoss("gen9ou", u)
	l.RecordLoss("gen1ou", u)

	rec, err := store.Record(context.Background(), "brock", "gen9ou")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Losses)
	assert.Equal(t, 0, rec.Wins)
}

func TestLedger_Complete_UnofficialRecordsWinOnly(t *testing.T) {
	store := NewMemoryStore()
	l := NewLedger(store, 8, zaptest.NewLogger(t))
	us := users("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")

	lines := l.Complete(tournament.Completion{
		Session: "lobby",
		Format:  "gen9ou",
		Size:    len(us),
		Results: [][]*identity.User{{us[0]}, {us[1]}, us[2:]},
	})
	assert.Empty(t, lines)

	rec, _ := store.Record(context.Background(), "a", "gen9ou")
	assert.Equal(t, 1, rec.Wins)
	payouts, _ := store.Payouts(context.Background(), "a")
	assert.Empty(t, payouts)
}

func TestLedger_Complete_OfficialPaysTopTwo(t *testing.T) {
	store := NewMemoryStore()
	l := NewLedger(store, 8, zaptest.NewLogger(t))
	us := users("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y")

	lines := l.Complete(tournament.Completion{
		Session:  "official",
		Official: true,
		Format:   "gen9ou",
		Size:     len(us),
		Results:  [][]*identity.User{{us[0]}, {us[1]}, us[2:]},
	})
	assert.Equal(t, []string{
		"a has also won 3 bucks for winning the tournament!",
		"b has also won 2 bucks for finishing second in the tournament!",
	}, lines)

	first, err := store.Payouts(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].Place)
	assert.Equal(t, 3, first[0].Amount)
	assert.Equal(t, "official", first[0].Room)
	assert.NotEmpty(t, first[0].ID)

	second, _ := store.Payouts(context.Background(), "b")
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].Amount)
}

func TestLedger_Complete_OfficialBelowMinimumSize(t *testing.T) {
	store := NewMemoryStore()
	l := NewLedger(store, 8, zaptest.NewLogger(t))
	us := users("a", "b", "c")

	lines := l.Complete(tournament.Completion{
		Session:  "official",
		Official: true,
		Format:   "gen9ou",
		Size:     len(us),
		Results:  [][]*identity.User{{us[0]}, {us[1]}, {us[2]}},
	})
	assert.Empty(t, lines)
	payouts, _ := store.Payouts(context.Background(), "a")
	assert.Empty(t, payouts)
}

func TestLedger_Complete_SingularUnit(t *testing.T) {
	store := NewMemoryStore()
	l := NewLedger(store, 8, zaptest.NewLogger(t))
	us := users("a", "b", "c", "d", "e", "f", "g", "h")

	lines := l.Complete(tournament.Completion{
		Session:  "official",
		Official: true,
		Format:   "gen9ou",
		Size:     len(us),
		Results:  [][]*identity.User{{us[0]}, {us[1]}, us[2:]},
	})
	assert.Equal(t, []string{
		"a has also won 1 buck for winning the tournament!",
		"b has also won 1 buck for finishing second in the tournament!",
	}, lines)
}

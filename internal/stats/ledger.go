package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
)

const storeTimeout = 5 * time.Second

// Prizes returns the payout for first and second place in a tournament of size.
func Prizes(size int) (first, second int) {
	first = int(math.Round(float64(size) / 10))
	second = int(math.Round(float64(first) / 2))
	return first, second
}

// Ledger keeps tour wins and losses and pays out official tournaments.
type Ledger struct {
	store   Store
	minSize int
	logger  *zap.Logger
}

var _ tournament.Rewarder = (*Ledger)(nil)

func NewLedger(store Store, minSize int, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, minSize: minSize, logger: logger}
}

func (l *Ledger) RecordLoss(format string, u *identity.User) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := l.store.AddLoss(ctx, string(u.ID), format); err != nil {
		l.logger.Warn("recording tour loss", zap.String("user", string(u.ID)), zap.Error(err))
	}
}

// Complete records the winner and, for official tournaments that are large
// enough, pays first and second place. It returns the lines to announce.
func (l *Ledger) Complete(c tournament.Completion) []string {
	var placed []*identity.User
	for _, group := range c.Results {
		placed = append(placed, group...)
	}
	if len(placed) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	winner := placed[0]
	if err := l.store.AddWin(ctx, string(winner.ID), c.Format); err != nil {
		l.logger.Warn("recording tour win", zap.String("user", string(winner.ID)), zap.Error(err))
	}
	if !c.Official || c.Size < l.minSize {
		return nil
	}

	first, second := Prizes(c.Size)
	var lines []string
	for place, amount := range []int{first, second} {
		if place >= len(placed) || amount <= 0 {
			break
		}
		u := placed[place]
		p := Payout{
			ID:     uuid.NewString(),
			UserID: string(u.ID),
			Room:   c.Session,
			Format: c.Format,
			Place:  place + 1,
			Amount: amount,
		}
		if err := l.store.AddPayout(ctx, p); err != nil {
			l.logger.Error("paying out tournament prize", zap.String("user", p.UserID), zap.Int("amount", amount), zap.Error(err))
			continue
		}
		l.logger.Info("tournament prize paid", zap.String("room", c.Session), zap.String("user", p.UserID), zap.Int("place", p.Place), zap.Int("amount", amount))
		lines = append(lines, prizeLine(u.Name, place, amount))
	}
	return lines
}

func prizeLine(name string, place, amount int) string {
	unit := "buck"
	if amount > 1 {
		unit = "bucks"
	}
	if place == 0 {
		return fmt.Sprintf("%s has also won %d %s for winning the tournament!", name, amount, unit)
	}
	return fmt.Sprintf("%s has also won %d %s for finishing second in the tournament!", name, amount, unit)
}

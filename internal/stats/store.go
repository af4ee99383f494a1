package stats

import (
	"context"
	"time"
)

// Record is one user's tournament tally in one format.
type Record struct {
	UserID    string `gorm:"primaryKey;size:64" json:"userId"`
	Format    string `gorm:"primaryKey;size:64" json:"format"`
	Wins      int    `gorm:"not null;default:0" json:"wins"`
	Losses    int    `gorm:"not null;default:0" json:"losses"`
	UpdatedAt time.Time
}

func (Record) TableName() string { return "tour_records" }

// Payout is a prize handed out at the end of an official tournament.
type Payout struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"index;size:64;not null" json:"userId"`
	Room      string `gorm:"size:64;not null" json:"room"`
	Format    string `gorm:"size:64" json:"format"`
	Place     int    `json:"place"`
	Amount    int    `json:"amount"`
	CreatedAt time.Time
}

func (Payout) TableName() string { return "tour_payouts" }

type Store interface {
	AddWin(ctx context.Context, userID, format string) error
	AddLoss(ctx context.Context, userID, format string) error
	Record(ctx context.Context, userID, format string) (Record, error)
	AddPayout(ctx context.Context, p Payout) error
	Payouts(ctx context.Context, userID string) ([]Payout, error)
}

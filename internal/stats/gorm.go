package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps records and payouts in postgres.
type GormStore struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	s := &GormStore{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&Record{}, &Payout{}); err != nil {
		return fmt.Errorf("migrate stats db: %w", err)
	}
	return nil
}

func (s *GormStore) AddWin(ctx context.Context, userID, format string) error {
	return s.bump(ctx, userID, format, "wins")
}

func (s *GormStore) AddLoss(ctx context.Context, userID, format string) error {
	return s.bump(ctx, userID, format, "losses")
}

// bump inserts a fresh record or increments column on the existing one.
func (s *GormStore) bump(ctx context.Context, userID, format, column string) error {
	rec := Record{UserID: userID, Format: format, UpdatedAt: time.Now()}
	switch column {
	case "wins":
		rec.Wins = 1
	case "losses":
		rec.Losses = 1
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "format"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr(rec.TableName()+"."+column+" + ?", 1),
			"updated_at": rec.UpdatedAt,
		}),
	}).Create(&rec).Error
}

func (s *GormStore) Record(ctx context.Context, userID, format string) (Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("user_id = ? AND format = ?", userID, format).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{UserID: userID, Format: format}, nil
	}
	return rec, err
}

func (s *GormStore) AddPayout(ctx context.Context, p Payout) error {
	return s.db.WithContext(ctx).Create(&p).Error
}

func (s *GormStore) Payouts(ctx context.Context, userID string) ([]Payout, error) {
	var out []Payout
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}

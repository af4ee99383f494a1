package stats

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the Store used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[[2]string]Record
	payouts []Payout
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[[2]string]Record)}
}

func (s *MemoryStore) AddWin(_ context.Context, userID, format string) error {
	s.update(userID, format, func(r *Record) { r.Wins++ })
	return nil
}

func (s *MemoryStore) AddLoss(_ context.Context, userID, format string) error {
	s.update(userID, format, func(r *Record) { r.Losses++ })
	return nil
}

func (s *MemoryStore) update(userID, format string, fn func(*Record)) {
	key := [2]string{userID, format}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = Record{UserID: userID, Format: format}
	}
	fn(&rec)
	rec.UpdatedAt = time.Now()
	s.records[key] = rec
}

func (s *MemoryStore) Record(_ context.Context, userID, format string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[[2]string{userID, format}]; ok {
		return rec, nil
	}
	return Record{UserID: userID, Format: format}, nil
}

func (s *MemoryStore) AddPayout(_ context.Context, p Payout) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.payouts = append(s.payouts, p)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Payouts(_ context.Context, userID string) ([]Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Payout
	for _, p := range s.payouts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rl1809/anemia-history/internal/core/domain"
	"github.com/rl1809/anemia-history/internal/port"
)

// RecordStore owns History and keeps it equal to its mirror. Mutations are
// serialized by writeMu and the new History is only published once the
// mirror accepted it, so readers never see uncommitted state.
type RecordStore struct {
	mirror port.HistoryMirror
	logger *zap.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	records []domain.Record
}

var _ port.RecordRepository = (*RecordStore)(nil)

func NewRecordStore(mirror port.HistoryMirror, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		mirror: mirror,
		logger: logger,
	}
}

// Load replaces the in-memory History with the mirror's content. A missing
// mirror yields an empty History; an unreadable one is returned as an error.
func (s *RecordStore) Load(ctx context.Context) ([]domain.Record, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	records, found, err := s.mirror.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !found {
		s.logger.Info("no history found, starting empty")
		records = nil
	}

	s.publish(records)
	s.logger.Info("history loaded", zap.Int("records", len(records)))

	return slices.Clone(records), nil
}

func (s *RecordStore) Append(ctx context.Context, record domain.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.snapshot()
	if lo.ContainsBy(current, func(r domain.Record) bool { return r.ID == record.ID }) {
		return fmt.Errorf("append %s: %w", record.ID, domain.ErrDuplicateRecord)
	}

	next := append(current, record)
	if err := s.mirror.Save(ctx, next); err != nil {
		return fmt.Errorf("append %s: %w: %w", record.ID, domain.ErrPersistence, err)
	}

	s.publish(next)
	return nil
}

func (s *RecordStore) List(ctx context.Context) []domain.Record {
	return s.snapshot()
}

func (s *RecordStore) Delete(ctx context.Context, id string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.snapshot()
	next := lo.Reject(current, func(r domain.Record, _ int) bool { return r.ID == id })
	if len(next) == len(current) {
		s.logger.Debug("delete of unknown record", zap.String("record_id", id))
		return false, nil
	}

	if err := s.mirror.Save(ctx, next); err != nil {
		return false, fmt.Errorf("delete %s: %w: %w", id, domain.ErrPersistence, err)
	}

	s.publish(next)
	return true, nil
}

func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// snapshot returns a copy the caller may modify freely.
func (s *RecordStore) snapshot() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *RecordStore) publish(records []domain.Record) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/anemia-history/internal/core/domain"
	"github.com/rl1809/anemia-history/internal/port"
)

type HistoryService struct {
	records port.RecordRepository
	events  port.EventPublisher
	logger  *zap.Logger
}

func NewHistoryService(records port.RecordRepository, events port.EventPublisher, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		records: records,
		events:  events,
		logger:  logger,
	}
}

func (s *HistoryService) List(ctx context.Context) []domain.Record {
	return s.records.List(ctx)
}

// Delete removes a record. A missing id is not an error; deleted reports
// whether anything was removed.
func (s *HistoryService) Delete(ctx context.Context, id string) (deleted bool, err error) {
	deleted, err = s.records.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	if !deleted {
		return false, nil
	}

	s.logger.Info("record deleted", zap.String("record_id", id))
	announce(ctx, s.events, s.logger, defaultPublishTimeout, domain.RecordEvent{
		Type:       domain.EventRecordDeleted,
		RecordID:   id,
		OccurredAt: time.Now().UTC(),
	})
	return true, nil
}

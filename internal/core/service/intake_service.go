package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/anemia-history/internal/core/domain"
	"github.com/rl1809/anemia-history/internal/port"
)

type IntakeService struct {
	predictor port.Predictor
	records   port.RecordRepository
	events    port.EventPublisher
	logger    *zap.Logger

	now            func() time.Time
	newID          func() (string, error)
	publishTimeout time.Duration
}

const defaultPublishTimeout = time.Second

type IntakeOption func(*IntakeService)

func WithClock(now func() time.Time) IntakeOption {
	return func(s *IntakeService) { s.now = now }
}

// WithPublishTimeout bounds how long a committed submission waits on its event.
func WithPublishTimeout(d time.Duration) IntakeOption {
	return func(s *IntakeService) { s.publishTimeout = d }
}

func WithIDGenerator(newID func() (string, error)) IntakeOption {
	return func(s *IntakeService) { s.newID = newID }
}

func NewIntakeService(predictor port.Predictor, records port.RecordRepository, events port.EventPublisher, logger *zap.Logger, opts ...IntakeOption) *IntakeService {
	s := &IntakeService{
		predictor:      predictor,
		records:        records,
		events:         events,
		logger:         logger,
		now:            time.Now,
		newID:          newRecordID,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit classifies a submission and commits it to History. Nothing is
// appended when the prediction fails.
func (s *IntakeService) Submit(ctx context.Context, sub domain.CBCSubmission) (domain.Record, error) {
	outcome, err := s.predictor.Predict(ctx, sub)
	if err != nil {
		return domain.Record{}, fmt.Errorf("submit: %w", err)
	}

	assessment := domain.Assess(outcome, sub)

	id, err := s.newID()
	if err != nil {
		return domain.Record{}, fmt.Errorf("generate record id: %w", err)
	}

	record := domain.NewRecord(id, sub, assessment, s.now())
	if err := s.records.Append(ctx, record); err != nil {
		return domain.Record{}, fmt.Errorf("submit: %w", err)
	}

	s.logger.Info("record committed",
		zap.String("record_id", record.ID),
		zap.String("status", string(record.Status)))

	s.announce(ctx, domain.RecordEvent{
		Type:       domain.EventRecordCreated,
		RecordID:   record.ID,
		Record:     &record,
		OccurredAt: record.Timestamp,
	})

	return record, nil
}

func (s *IntakeService) announce(ctx context.Context, event domain.RecordEvent) {
	announce(ctx, s.events, s.logger, s.publishTimeout, event)
}

// announce publishes after the commit. The event outlives a cancelled
// request but never holds the response longer than timeout.
func announce(ctx context.Context, events port.EventPublisher, logger *zap.Logger, timeout time.Duration, event domain.RecordEvent) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish record event",
			zap.String("type", string(event.Type)),
			zap.String("record_id", event.RecordID),
			zap.Error(err))
	}
}

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

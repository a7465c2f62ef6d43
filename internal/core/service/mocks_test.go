package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errDiskFull = errors.New("disk full")

// Mock HistoryMirror
type mockMirror struct {
	mu      sync.Mutex
	records []domain.Record
	found   bool
	loadErr error
	saveErr error
	saves   int
}

func (m *mockMirror) Load(ctx context.Context) ([]domain.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, true, m.loadErr
	}
	return slices.Clone(m.records), m.found, nil
}

func (m *mockMirror) Save(ctx context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = slices.Clone(records)
	m.found = true
	m.saves++
	return nil
}

func (m *mockMirror) failSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *mockMirror) stored() []domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

// Mock Predictor
type mockPredictor struct {
	outcome domain.PredictionOutcome
	err     error
	calls   int
	mu      sync.Mutex
}

func (m *mockPredictor) Predict(ctx context.Context, sub domain.CBCSubmission) (domain.PredictionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return domain.PredictionOutcome{}, m.err
	}
	return m.outcome, nil
}

// Mock EventPublisher
type mockPublisher struct {
	mu      sync.Mutex
	events  []domain.RecordEvent
	err     error
	hang    bool
	ctxErrs []error
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.RecordEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) published() []domain.RecordEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

func ptr[T any](v T) *T { return &v }

func sampleSubmission() domain.CBCSubmission {
	return domain.CBCSubmission{
		Age:        30,
		Sex:        domain.SexFemale,
		Hemoglobin: 12.5,
		Hematocrit: 36,
		RBC:        4.2,
		MCV:        90,
		MCH:        27,
		MCHC:       30,
		WBC:        7.0,
		Platelets:  250,
	}
}

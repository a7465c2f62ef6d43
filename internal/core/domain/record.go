package domain

import (
	"errors"
	"time"
)

var (
	ErrPredictionUnavailable = errors.New("prediction unavailable")
	ErrPersistence           = errors.New("persistence failure")
	ErrCorruptHistory        = errors.New("corrupt history")
	ErrDuplicateRecord       = errors.New("duplicate record")
)

// Record is an immutable History entry: the submission plus its assessment.
type Record struct {
	ID string `json:"id"`
	CBCSubmission
	Result      string    `json:"result"`
	Anemia      *int      `json:"anemia"`
	Probability *float64  `json:"probability"`
	Status      Status    `json:"status"`
	Severity    Severity  `json:"severity,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRecord(id string, sub CBCSubmission, a Assessment, at time.Time) Record {
	return Record{
		ID:            id,
		CBCSubmission: sub,
		Result:        a.Label,
		Anemia:        a.AnemiaFlag(),
		Probability:   a.Probability,
		Status:        a.Status,
		Severity:      a.Severity,
		Timestamp:     at.UTC(),
	}
}

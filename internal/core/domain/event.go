package domain

import "time"

type EventType string

const (
	EventRecordCreated EventType = "record.created"
	EventRecordDeleted EventType = "record.deleted"
)

type RecordEvent struct {
	Type       EventType `json:"type"`
	RecordID   string    `json:"record_id"`
	Record     *Record   `json:"record,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

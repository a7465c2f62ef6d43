package port

import (
	"context"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

type RecordRepository interface {
	// Append commits a new record at the end of History
	Append(ctx context.Context, record domain.Record) error

	// List returns History oldest first
	List(ctx context.Context) []domain.Record

	// Delete removes the record with id, reports false if it did not exist
	Delete(ctx context.Context, id string) (bool, error)
}

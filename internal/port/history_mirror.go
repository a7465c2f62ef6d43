package port

import (
	"context"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

type HistoryMirror interface {
	// Load reads the whole persisted History. found is false when nothing has been written yet.
	Load(ctx context.Context) (records []domain.Record, found bool, err error)

	// Save overwrites the persisted History with records
	Save(ctx context.Context, records []domain.Record) error
}

package port

import (
	"context"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

type EventPublisher interface {
	// Publish announces a committed change to History
	Publish(ctx context.Context, event domain.RecordEvent) error
}

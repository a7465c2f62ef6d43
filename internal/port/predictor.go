package port

import (
	"context"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

type Predictor interface {
	// Predict asks the classifier about a submission, errors wrap domain.ErrPredictionUnavailable
	Predict(ctx context.Context, sub domain.CBCSubmission) (domain.PredictionOutcome, error)
}

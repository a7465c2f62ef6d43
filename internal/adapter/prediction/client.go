package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rl1809/anemia-history/internal/core/domain"
	"github.com/rl1809/anemia-history/internal/port"
)

const maxResponseBytes = 1 << 20

// Client calls the anemia classifier over HTTP. It does not retry.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
}

var _ port.Predictor = (*Client)(nil)

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		timeout: timeout,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type predictResponse struct {
	Message     any    `json:"message"`
	Anemia      any    `json:"anemia"`
	Probability any    `json:"probability"`
	Error       string `json:"error"`
}

func (c *Client) Predict(ctx context.Context, sub domain.CBCSubmission) (domain.PredictionOutcome, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return domain.PredictionOutcome{}, unavailable("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.PredictionOutcome{}, unavailable("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PredictionOutcome{}, unavailable("call classifier", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.PredictionOutcome{}, unavailable("read response", err)
	}

	var parsed predictResponse
	parseErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parseErr == nil && parsed.Error != "" {
			return domain.PredictionOutcome{}, fmt.Errorf("%w: classifier returned %d: %s",
				domain.ErrPredictionUnavailable, resp.StatusCode, parsed.Error)
		}
		return domain.PredictionOutcome{}, fmt.Errorf("%w: classifier returned %d",
			domain.ErrPredictionUnavailable, resp.StatusCode)
	}
	if parseErr != nil {
		return domain.PredictionOutcome{}, unavailable("decode response", parseErr)
	}

	return parsed.outcome(), nil
}

// outcome keeps whatever fields are usable and drops the rest.
func (r predictResponse) outcome() domain.PredictionOutcome {
	var out domain.PredictionOutcome

	if r.Message != nil {
		if s, err := cast.ToStringE(r.Message); err == nil {
			out.Message = &s
		}
	}
	if r.Anemia != nil {
		if b, err := cast.ToBoolE(r.Anemia); err == nil {
			out.Anemia = &b
		}
	}
	if r.Probability != nil {
		if _, isBool := r.Probability.(bool); !isBool {
			if p, err := cast.ToFloat64E(r.Probability); err == nil && !math.IsNaN(p) && !math.IsInf(p, 0) {
				out.Probability = &p
			}
		}
	}
	return out
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPredictionUnavailable, op, err)
}

// Package advisor calls an external classification service for an
// advisory-only prediction on a newly submitted market claim. It is
// repurposed from the teacher's internal/kalshi client — a thin external
// JSON API wrapper — upgraded from raw net/http to resty and pointed at a
// generic classification endpoint instead of an exchange market-data feed.
// A failure of any kind here must never block market submission: callers
// fall back to an UNCERTAIN verdict at 50% confidence.
package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	FallbackPrediction = "UNCERTAIN"
	FallbackConfidence = 50.0
)

// Client is a best-effort advisory classifier backed by an HTTP service.
type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
}

// NewClient builds an advisor.Client against baseURL, authenticating with
// apiKey if non-empty.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	h := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(1)
	if apiKey != "" {
		h.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{http: h, baseURL: baseURL, apiKey: apiKey}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// Classify asks the advisory service to predict the claim's outcome. Any
// transport error, non-2xx status, or malformed body surfaces as a
// descriptive error; the caller (internal/market) is expected to fall back
// to FallbackPrediction/FallbackConfidence rather than fail the submission.
func (c *Client) Classify(ctx context.Context, text string) (string, float64, error) {
	var out classifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(classifyRequest{Text: text}).
		SetResult(&out).
		Post("/classify")
	if err != nil {
		return FallbackPrediction, FallbackConfidence, err
	}
	if resp.IsError() {
		return FallbackPrediction, FallbackConfidence, fmt.Errorf("advisor returned status %d", resp.StatusCode())
	}
	if out.Prediction == "" {
		return FallbackPrediction, FallbackConfidence, nil
	}
	return out.Prediction, out.Confidence, nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPredictorUnavailable marks any failure to reach or parse the external
// model service. It is non-fatal everywhere: callers fall back to the pure
// physiological simulation.
var ErrPredictorUnavailable = errors.New("point predictor unavailable")

// Prediction is the value-plus-confidence pair the external model returns.
// FitScore is the model's own fit quality (e.g. training R²), 0..1.
type Prediction struct {
	Value    float64 `json:"value"`
	FitScore float64 `json:"fit_score"`
}

// PointPredictor is the capability abstraction over the trained statistical
// model. One method, one value-plus-confidence result — the physiological
// core stays testable with no trained model present.
type PointPredictor interface {
	Predict(ctx context.Context, metric string, features []float64) (Prediction, error)
}

// remotePredictor calls the model service over HTTP. Uses raw net/http
// rather than a client SDK; the base URL is overridable so tests can point
// it at an httptest server.
type remotePredictor struct {
	baseURL string
	client  *http.Client
}

func newRemotePredictor(baseURL string) *remotePredictor {
	return &remotePredictor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// predictRequest is the request body for the model service's predict endpoint.
type predictRequest struct {
	Metric   string    `json:"metric"`
	Features []float64 `json:"features"`
}

// Predict sends a single-step prediction request and returns the estimate
// plus fit score. Every failure mode wraps ErrPredictorUnavailable so one
// errors.Is check covers them all.
func (p *remotePredictor) Predict(ctx context.Context, metric string, features []float64) (Prediction, error) {
	bodyBytes, err := json.Marshal(predictRequest{Metric: metric, Features: features})
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: marshal request: %v", ErrPredictorUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/predict", bytes.NewReader(bodyBytes))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: create request: %v", ErrPredictorUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: read response: %v", ErrPredictorUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("%w: model service returned status %d: %s", ErrPredictorUnavailable, resp.StatusCode, string(respBytes))
	}

	var pred Prediction
	if err := json.Unmarshal(respBytes, &pred); err != nil {
		return Prediction{}, fmt.Errorf("%w: unmarshal response: %v", ErrPredictorUnavailable, err)
	}
	return pred, nil
}

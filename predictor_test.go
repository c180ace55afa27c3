package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// setupPredictorTest starts a mock model server and returns a predictor
// pointed at it plus a function to set the mock response.
func setupPredictorTest() (*remotePredictor, *httptest.Server, func(int, interface{})) {
	var mockStatus int
	var mockBody interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		json.NewEncoder(w).Encode(mockBody)
	}))

	setMock := func(status int, body interface{}) {
		mockStatus = status
		mockBody = body
	}
	return newRemotePredictor(server.URL), server, setMock
}

func TestPredict_Success(t *testing.T) {
	pred, server, setMock := setupPredictorTest()
	defer server.Close()

	setMock(http.StatusOK, map[string]float64{"value": 78.4, "fit_score": 0.87})

	p, err := pred.Predict(context.Background(), "weight", []float64{30, 82, 1800, 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Value != 78.4 {
		t.Errorf("value = %f, want 78.4", p.Value)
	}
	if p.FitScore != 0.87 {
		t.Errorf("fit score = %f, want 0.87", p.FitScore)
	}
}

func TestPredict_ServerError(t *testing.T) {
	pred, server, setMock := setupPredictorTest()
	defer server.Close()

	setMock(http.StatusInternalServerError, map[string]string{"error": "model not trained"})

	_, err := pred.Predict(context.Background(), "weight", []float64{30, 82, 1800, 300})
	if !errors.Is(err, ErrPredictorUnavailable) {
		t.Errorf("expected ErrPredictorUnavailable, got %v", err)
	}
}

func TestPredict_Unreachable(t *testing.T) {
	pred, server, _ := setupPredictorTest()
	server.Close() // connection refused from here on

	_, err := pred.Predict(context.Background(), "weight", []float64{30, 82, 1800, 300})
	if !errors.Is(err, ErrPredictorUnavailable) {
		t.Errorf("expected ErrPredictorUnavailable, got %v", err)
	}
}

func TestPredict_MalformedResponse(t *testing.T) {
	pred, server, _ := setupPredictorTest()
	defer server.Close()

	// The mock encoder writes valid JSON, so point at a handler that doesn't.
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer raw.Close()
	pred.baseURL = raw.URL

	_, err := pred.Predict(context.Background(), "weight", nil)
	if !errors.Is(err, ErrPredictorUnavailable) {
		t.Errorf("expected ErrPredictorUnavailable, got %v", err)
	}
}

// Package simulator talks to the external SoC simulator that produces
// baseline traces for the optimizer. The impossibility loop asks it for a
// fresh baseline after excluding rotations; the search itself never calls
// this package — that's what the fast kernel is for.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"stationelectrify/internal/model"
	"stationelectrify/internal/optimizererrors"
)

// Request is one simulation call: a fleet of rotations to run against a
// candidate electrified-stations layout.
type Request struct {
	Rotations   []model.Rotation
	Electrified model.ElectrifiedStations
	Start       time.Time
}

// Runner executes one simulation and returns the resulting per-vehicle
// SoC traces.
type Runner interface {
	Run(ctx context.Context, req Request) (model.Traces, error)
}

// HTTPRunner posts a scenario to an external simulation service and
// decodes its per-vehicle SoC traces from the JSON response.
type HTTPRunner struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRunner returns a runner pointed at baseURL, using a bounded
// default timeout if client is nil.
func NewHTTPRunner(baseURL string, client *http.Client) *HTTPRunner {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPRunner{BaseURL: baseURL, Client: client}
}

type runResponse struct {
	Traces map[string][]float64 `json:"traces"`
}

func (r *HTTPRunner) Run(ctx context.Context, req Request) (model.Traces, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("simulator: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/simulate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("simulator: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("simulator: call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("simulator: unexpected status %d", resp.StatusCode)
	}

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("simulator: decode response: %w", err)
	}

	traces := make(model.Traces, len(out.Traces))
	for vehicle, series := range out.Traces {
		traces[vehicle] = model.SoCTrace(series)
	}
	return traces, nil
}

// BreakerRunner wraps a Runner with a circuit breaker: after three
// consecutive failures the breaker opens and further calls fail
// immediately, without reaching the inner runner, until its timeout
// elapses. Every failure surfaces as a SimulatorFailure. Neither this
// wrapper nor the optimizer retries a failed call.
type BreakerRunner struct {
	inner   Runner
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerRunner builds a breaker-wrapped runner. name identifies the
// breaker in logs and metrics.
func NewBreakerRunner(name string, inner Runner) *BreakerRunner {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &BreakerRunner{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerRunner) Run(ctx context.Context, req Request) (model.Traces, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Run(ctx, req)
	})
	if err != nil {
		return nil, optimizererrors.Wrap(optimizererrors.KindSimulatorFailure, "external simulator call failed", err)
	}
	return result.(model.Traces), nil
}

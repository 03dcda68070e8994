package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/skls/pkg/alert"
	"github.com/soundprediction/skls/pkg/config"
	"github.com/soundprediction/skls/pkg/logger"
)

// CircuitBreakerClient wraps a Client with circuit breaking logic
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	name   string
}

// NewCircuitBreakerClient creates a new circuit breaker client. The alerter is
// notified every time the breaker opens.
func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreakerClient {
	log := logger.Get("nlp.circuit_breaker")
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			onStateChange(log, alerter, name, from, to)
		},
	}

	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
		name:   name,
	}
}

func onStateChange(log *slog.Logger, alerter alert.Alerter, name string, from, to gobreaker.State) {
	log.Info("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
	if to != gobreaker.StateOpen {
		return
	}
	msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many failures detected.", name, from, to)
	log.Error(msg)
	if alerter != nil {
		if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
			log.Error("Failed to send alert", "error", err)
		}
	}
}

// Complete implements Client
func (c *CircuitBreakerClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

// Model implements Client
func (c *CircuitBreakerClient) Model() string {
	return c.client.Model()
}

// Close implements Client
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}

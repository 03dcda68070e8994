package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/skls/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	subjects []string
}

func (a *recordingAlerter) Alert(subject, message string) error {
	a.subjects = append(a.subjects, subject)
	return nil
}

func TestCircuitBreakerTripsAndAlerts(t *testing.T) {
	mock := &mockClient{failUntilCall: 100, errorToReturn: errors.New("503 service unavailable")}
	alerter := &recordingAlerter{}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		ReadyToTripRatio: 0.5,
	}, alerter, "test")

	for i := 0; i < 3; i++ {
		_, err := cb.Complete(context.Background(), CompletionRequest{User: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []string{"URGENT: Circuit Breaker Tripped - test"}, alerter.subjects)

	_, err := cb.Complete(context.Background(), CompletionRequest{User: "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, mock.callCount)
}

func TestCircuitBreakerPassThrough(t *testing.T) {
	mock := &mockClient{textToReturn: "fine"}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{Enabled: true}, nil, "ok")

	out, err := cb.Complete(context.Background(), CompletionRequest{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	assert.Equal(t, "mock-model", cb.Model())
	assert.NoError(t, cb.Close())
}

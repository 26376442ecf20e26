package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
)

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	inner := &fakeBackend{result: &domain.GenerateResult{Text: "ok", Model: "m"}}
	cb := NewCircuitBreakerBackend(inner, CircuitBreakerConfig{}, testLogger())

	result, err := cb.Generate(context.Background(), "Hello", testAiConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, "fake", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeBackend{err: errors.New("connection refused")}
	cb := NewCircuitBreakerBackend(inner, CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
	}, testLogger())

	cfg := testAiConfig(t)
	for i := 0; i < 2; i++ {
		_, err := cb.Generate(context.Background(), "Hello", cfg)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, 2, inner.calls)

	// Fast fail: the wrapped backend is no longer reached.
	_, err := cb.Generate(context.Background(), "Hello", cfg)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestCircuitBreakerPropagatesInnerError(t *testing.T) {
	innerErr := errors.New("proxy exploded")
	inner := &fakeBackend{err: innerErr}
	cb := NewCircuitBreakerBackend(inner, CircuitBreakerConfig{MaxFailures: 5}, testLogger())

	_, err := cb.Generate(context.Background(), "Hello", testAiConfig(t))
	assert.ErrorIs(t, err, innerErr)
}

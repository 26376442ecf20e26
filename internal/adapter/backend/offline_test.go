package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
)

func TestOfflineGenerateUnsupported(t *testing.T) {
	b := NewOfflineBackend(testLogger())
	defer b.Close()

	_, err := b.Generate(context.Background(), "Hello", testAiConfig(t))
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestOfflineCapabilityReportsUnavailable(t *testing.T) {
	b := NewOfflineBackend(testLogger())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case cap, ok := <-b.ObserveCapability(ctx):
		require.True(t, ok)
		unavailable, isUnavailable := cap.(domain.CapabilityUnavailable)
		require.True(t, isUnavailable, "latest capability should be Unavailable, got %T", cap)
		assert.NotEmpty(t, unavailable.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capability")
	}

	assert.False(t, b.Available())
}

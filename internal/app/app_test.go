package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
	"parley/internal/infra/config"
)

func TestNewWiresFromDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy.BaseURL = "https://proxy.example.com"
	cfg.Proxy.APIKey = "sk-test"

	a, err := New(cfg, "", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 0, a.Store.Count())
	assert.True(t, a.Gateway.IsModeAvailable(domain.ModeOnline))
	assert.False(t, a.Gateway.IsModeAvailable(domain.ModeOffline))

	snap, err := a.Config.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOnline, snap.Mode)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.AI.TopK = -1

	_, err := New(cfg, "", slog.New(slog.DiscardHandler))
	require.Error(t, err)

	var ve *config.ValidationError
	assert.ErrorAs(t, err, &ve)
}

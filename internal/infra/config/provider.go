package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"parley/internal/broadcast"
	"parley/internal/domain"
)

// Provider serves the active AI configuration to workflows and persists
// updates back to the config file. Reads return a consistent snapshot;
// Update validates, swaps, publishes, and writes through.
type Provider struct {
	mu     sync.RWMutex
	cur    domain.AiConfiguration
	file   *Config
	path   string // empty disables persistence
	feed   *broadcast.Broadcaster[domain.AiConfiguration]
	logger *slog.Logger
}

var _ domain.ConfigProvider = (*Provider)(nil)

// NewProvider builds a Provider from the loaded file config. path is where
// Update persists; pass "" for an in-memory provider.
func NewProvider(file *Config, path string, logger *slog.Logger) (*Provider, error) {
	cur, err := file.AI.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("ai config: %w", err)
	}

	p := &Provider{
		cur:    cur,
		file:   file,
		path:   path,
		feed:   broadcast.New[domain.AiConfiguration](true),
		logger: logger,
	}
	p.feed.Publish(cur)
	return p, nil
}

// Snapshot implements domain.ConfigProvider.
func (p *Provider) Snapshot(ctx context.Context) (domain.AiConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return domain.AiConfiguration{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur, nil
}

// Observe implements domain.ConfigProvider. The latest configuration is
// delivered first, then every subsequent update.
func (p *Provider) Observe(ctx context.Context) <-chan domain.AiConfiguration {
	return p.feed.Subscribe(ctx)
}

// Update implements domain.ConfigProvider. Invalid configurations are
// rejected without changing the active one. A persistence failure keeps the
// in-memory update but is reported.
func (p *Provider) Update(ctx context.Context, cfg domain.AiConfiguration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return domain.WrapOp("ConfigProvider.Update", err)
	}

	p.mu.Lock()
	p.cur = cfg
	p.file.AI = AIConfig{
		Mode:            string(cfg.Mode),
		Temperature:     cfg.Params.Temperature,
		TopK:            cfg.Params.TopK,
		TopP:            cfg.Params.TopP,
		MaxOutputTokens: cfg.Params.MaxOutputTokens,
	}
	p.mu.Unlock()

	p.feed.Publish(cfg)
	p.logger.Info("configuration updated", "mode", cfg.Mode)

	if p.path == "" {
		return nil
	}
	if err := p.persist(); err != nil {
		p.logger.Error("persist configuration", "path", p.path, "error", err)
		return fmt.Errorf("persist config: %w", err)
	}
	return nil
}

func (p *Provider) persist() error {
	p.mu.RLock()
	data, err := yaml.Marshal(p.file)
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}

// Close stops the configuration feed.
func (p *Provider) Close() {
	p.feed.Close()
}

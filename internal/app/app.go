// Package app assembles the application from its configured parts.
package app

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"parley/internal/adapter/backend"
	"parley/internal/domain"
	"parley/internal/infra/config"
	"parley/internal/usecase"
)

// App holds the wired application components.
type App struct {
	Config  *config.Provider
	Store   *usecase.Store
	Gateway *backend.Gateway
	Send    *usecase.SendWorkflow
	Retry   *usecase.RetryWorkflow

	offline *backend.OfflineBackend
}

// New wires the application from the loaded configuration. cfgPath is where
// configuration updates persist; pass "" to keep them in memory only.
func New(cfg *config.Config, cfgPath string, logger *slog.Logger) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	provider, err := config.NewProvider(cfg, cfgPath, logger)
	if err != nil {
		return nil, err
	}

	store := usecase.NewStore(logger)
	classifier := usecase.NewErrorClassifier()

	env := backend.ConfiguredEnvironment{BaseURL: cfg.Proxy.BaseURL}
	session := backend.StaticSession{APIKey: cfg.Proxy.APIKey}

	var online domain.Backend = backend.NewOnlineBackend(backend.OnlineConfig{
		BaseURL:      cfg.Proxy.BaseURL,
		DefaultModel: cfg.Proxy.DefaultModel,
		Client: backend.ClientConfig{
			ConnTimeout: cfg.Proxy.ConnTimeout,
			RespTimeout: cfg.Proxy.RespTimeout,
		},
	}, env, session, logger)

	if cfg.Proxy.CircuitBreaker.Enabled {
		online = backend.NewCircuitBreakerBackend(online, backend.CircuitBreakerConfig{
			MaxFailures: cfg.Proxy.CircuitBreaker.MaxFailures,
			Timeout:     cfg.Proxy.CircuitBreaker.Timeout,
			Interval:    cfg.Proxy.CircuitBreaker.Interval,
		}, logger)
	}

	var limiter *rate.Limiter
	if rpm := cfg.Proxy.RequestsPerMin; rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}

	offline := backend.NewOfflineBackend(logger)
	gateway := backend.NewGateway(online, offline, env, classifier, limiter, logger)

	logger.Info("application wired",
		"mode", cfg.AI.Mode,
		"circuit_breaker", cfg.Proxy.CircuitBreaker.Enabled,
		"rate_limited", limiter != nil,
	)

	return &App{
		Config:  provider,
		Store:   store,
		Gateway: gateway,
		Send:    usecase.NewSendWorkflow(store, provider, gateway, logger),
		Retry:   usecase.NewRetryWorkflow(store, provider, gateway, logger),
		offline: offline,
	}, nil
}

// Close releases the app's feeds. Safe to call once after use.
func (a *App) Close() {
	a.Gateway.Close()
	a.offline.Close()
	a.Store.Close()
	a.Config.Close()
}

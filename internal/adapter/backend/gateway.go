package backend

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"parley/internal/broadcast"
	"parley/internal/domain"
)

// Classifier reduces a failure cause to the error taxonomy.
type Classifier interface {
	Classify(err error) *domain.Classified
}

// Gateway routes generate calls to the backend selected by the configuration
// snapshot and publishes backend health. Exactly one ServiceStatus is
// published per call attempt; rejected blank input publishes nothing.
type Gateway struct {
	online     domain.Backend
	offline    *OfflineBackend
	env        EnvironmentChecker
	classifier Classifier
	limiter    *rate.Limiter
	status     *broadcast.Broadcaster[domain.ServiceStatus]
	logger     *slog.Logger
}

var _ domain.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway over the two backends. limiter may be nil to
// disable client-side rate limiting.
func NewGateway(online domain.Backend, offline *OfflineBackend, env EnvironmentChecker, classifier Classifier, limiter *rate.Limiter, logger *slog.Logger) *Gateway {
	return &Gateway{
		online:     online,
		offline:    offline,
		env:        env,
		classifier: classifier,
		limiter:    limiter,
		status:     broadcast.New[domain.ServiceStatus](true),
		logger:     logger,
	}
}

// Generate implements domain.Gateway. Failures are always classified.
func (g *Gateway) Generate(ctx context.Context, text string, cfg domain.AiConfiguration) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", g.classifier.Classify(
			domain.NewDomainError("Gateway.Generate", domain.ErrInvalidInput, "blank message"))
	}
	if !cfg.Mode.Valid() {
		return "", g.classifier.Classify(
			domain.NewDomainError("Gateway.Generate", domain.ErrInvalidInput, "unknown mode "+string(cfg.Mode)))
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", g.fail(err)
		}
	}

	switch cfg.Mode {
	case domain.ModeOffline:
		return g.generateOffline(ctx, text, cfg)
	default:
		return g.generateOnline(ctx, text, cfg)
	}
}

func (g *Gateway) generateOnline(ctx context.Context, text string, cfg domain.AiConfiguration) (string, error) {
	result, err := g.online.Generate(ctx, text, cfg)
	if err != nil {
		return "", g.fail(err)
	}

	g.status.Publish(domain.StatusAvailable{ModelVersion: result.Model})
	return result.Text, nil
}

func (g *Gateway) generateOffline(ctx context.Context, text string, cfg domain.AiConfiguration) (string, error) {
	result, err := g.offline.Generate(ctx, text, cfg)
	if err != nil {
		cls := g.classifier.Classify(err)
		if errors.Is(err, domain.ErrUnsupported) {
			// Not an error condition of the backend, just a missing
			// capability: report Unavailable without an Error status.
			g.status.Publish(domain.StatusUnavailable{Reason: offlineUnavailableReason})
		} else {
			g.status.Publish(domain.StatusError{Cause: cls, Recoverable: cls.Recoverable})
		}
		g.logger.Debug("offline generate failed", "error", err)
		return "", cls
	}

	g.status.Publish(domain.StatusAvailable{ModelVersion: result.Model})
	return result.Text, nil
}

// fail classifies err, publishes the matching Error status, and returns the
// classified failure.
func (g *Gateway) fail(err error) error {
	cls := g.classifier.Classify(err)
	g.status.Publish(domain.StatusError{Cause: cls, Recoverable: cls.Recoverable})
	g.logger.Debug("generate failed", "kind", cls.Kind.String(), "error", err)
	return cls
}

// IsModeAvailable reports whether the given mode can currently serve calls.
// Online reflects the environment pre-flight; Offline reflects the latest
// published capability.
func (g *Gateway) IsModeAvailable(mode domain.Mode) bool {
	switch mode {
	case domain.ModeOnline:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return g.env.Check(ctx) == nil
	case domain.ModeOffline:
		return g.offline.Available()
	default:
		return false
	}
}

// ObserveStatus streams backend health, starting from the latest known state.
func (g *Gateway) ObserveStatus(ctx context.Context) <-chan domain.ServiceStatus {
	return g.status.Subscribe(ctx)
}

// ObserveOfflineCapability streams the offline backend's readiness.
func (g *Gateway) ObserveOfflineCapability(ctx context.Context) <-chan domain.OfflineCapability {
	return g.offline.ObserveCapability(ctx)
}

// Close stops the status feed.
func (g *Gateway) Close() {
	g.status.Close()
}

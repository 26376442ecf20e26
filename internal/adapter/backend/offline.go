package backend

import (
	"context"
	"log/slog"

	"parley/internal/broadcast"
	"parley/internal/domain"
)

// offlineUnavailableReason is reported until a local inference engine ships.
const offlineUnavailableReason = "local inference engine not installed"

// OfflineBackend is the local-inference backend. It cannot serve calls yet:
// every Generate fails with an unsupported-operation cause, and the
// capability stream reports Checking followed by Unavailable.
type OfflineBackend struct {
	capability *broadcast.Broadcaster[domain.OfflineCapability]
	logger     *slog.Logger
}

var _ domain.Backend = (*OfflineBackend)(nil)

// NewOfflineBackend creates the offline backend and runs its capability probe.
func NewOfflineBackend(logger *slog.Logger) *OfflineBackend {
	b := &OfflineBackend{
		capability: broadcast.New[domain.OfflineCapability](true),
		logger:     logger,
	}
	b.capability.Publish(domain.CapabilityChecking{})
	b.capability.Publish(domain.CapabilityUnavailable{Reason: offlineUnavailableReason})
	return b
}

// Name implements domain.Backend.
func (b *OfflineBackend) Name() string { return string(domain.ModeOffline) }

// Generate implements domain.Backend.
func (b *OfflineBackend) Generate(context.Context, string, domain.AiConfiguration) (*domain.GenerateResult, error) {
	return nil, domain.NewDomainError("OfflineBackend.Generate", domain.ErrUnsupported, offlineUnavailableReason)
}

// ObserveCapability streams the backend's self-reported readiness, starting
// from the latest known state.
func (b *OfflineBackend) ObserveCapability(ctx context.Context) <-chan domain.OfflineCapability {
	return b.capability.Subscribe(ctx)
}

// Available reports whether the latest capability is Available.
func (b *OfflineBackend) Available() bool {
	latest, ok := b.capability.Latest()
	if !ok {
		return false
	}
	_, available := latest.(domain.CapabilityAvailable)
	return available
}

// Close stops the capability feed.
func (b *OfflineBackend) Close() {
	b.capability.Close()
}

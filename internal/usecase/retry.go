package usecase

import (
	"context"
	"log/slog"

	"parley/internal/domain"
)

// RetryWorkflow re-runs a failed exchange. It never creates a message: the
// failed assistant message is flipped back to Processing and finalized in
// place, keeping its id and position.
type RetryWorkflow struct {
	store   domain.MessageStore
	config  domain.ConfigProvider
	gateway domain.Gateway
	logger  *slog.Logger
}

// NewRetryWorkflow creates a retry workflow.
func NewRetryWorkflow(store domain.MessageStore, config domain.ConfigProvider, gateway domain.Gateway, logger *slog.Logger) *RetryWorkflow {
	return &RetryWorkflow{
		store:   store,
		config:  config,
		gateway: gateway,
		logger:  logger,
	}
}

// Retry re-runs the exchange that produced the assistant message with the
// given id. Preconditions (assistant author, failed, retryable) are checked
// before any store mutation.
func (w *RetryWorkflow) Retry(ctx context.Context, messageID string) (domain.Message, error) {
	msg, ok := w.store.Get(messageID)
	if !ok {
		return domain.Message{}, domain.NewDomainError("Retry", domain.ErrNotFound, messageID)
	}

	if msg.Role != domain.RoleAssistant {
		return domain.Message{}, domain.NewDomainError("Retry", domain.ErrNotRetryable, "only assistant messages can be retried")
	}
	failed, isFailed := msg.Status.(domain.StatusFailed)
	if !isFailed || !failed.Retryable {
		return domain.Message{}, domain.NewDomainError("Retry", domain.ErrNotRetryable, messageID)
	}

	msg.Status = domain.StatusProcessing{}
	if err := w.store.Update(msg); err != nil {
		return domain.Message{}, domain.WrapOp("Retry: mark processing", err)
	}

	cfg, err := w.config.Snapshot(ctx)
	if err != nil {
		return failExchange(w.store, msg, err, true)
	}
	if err := cfg.Validate(); err != nil {
		return failExchange(w.store, msg, err, false)
	}

	prompt, err := w.originalPrompt(messageID)
	if err != nil {
		// Without the original user request this message can never succeed.
		return failExchange(w.store, msg, err, false)
	}

	return finishExchange(ctx, w.store, w.gateway, w.logger, msg, prompt, cfg)
}

// originalPrompt locates the user message immediately preceding messageID in
// the timestamp-ordered view and returns its text.
func (w *RetryWorkflow) originalPrompt(messageID string) (string, error) {
	list := w.store.Snapshot()
	for i, m := range list {
		if m.ID != messageID {
			continue
		}
		if i == 0 || list[i-1].Role != domain.RoleUser {
			return "", domain.NewDomainError("Retry", domain.ErrMissingOriginal, messageID)
		}
		return list[i-1].Content, nil
	}
	return "", domain.NewDomainError("Retry", domain.ErrNotFound, messageID)
}

package usecase

import (
	"context"
	"log/slog"
	"strings"

	"parley/internal/domain"
)

// SendWorkflow drives the "send message" exchange: persist the user message,
// insert an assistant placeholder so observers never see a gap, call the
// gateway, then finalize the placeholder in place.
type SendWorkflow struct {
	store   domain.MessageStore
	config  domain.ConfigProvider
	gateway domain.Gateway
	logger  *slog.Logger
}

// NewSendWorkflow creates a send workflow.
func NewSendWorkflow(store domain.MessageStore, config domain.ConfigProvider, gateway domain.Gateway, logger *slog.Logger) *SendWorkflow {
	return &SendWorkflow{
		store:   store,
		config:  config,
		gateway: gateway,
		logger:  logger,
	}
}

// Send runs one exchange for the raw user input. On success it returns the
// finalized assistant message. Failures after the placeholder exists are
// recorded on the placeholder, not thrown; only store mutation failures
// surface raw.
func (w *SendWorkflow) Send(ctx context.Context, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, domain.NewDomainError("Send", domain.ErrInvalidInput, "blank message")
	}

	user := domain.NewUserMessage(text)
	if err := w.store.Add(user); err != nil {
		return domain.Message{}, domain.WrapOp("Send: add user message", err)
	}

	placeholder := domain.NewAssistantPlaceholder()
	if err := w.store.Add(placeholder); err != nil {
		// The user message stays behind without an assistant counterpart.
		// Known accepted inconsistency; there is no compensating delete.
		w.logger.Warn("placeholder insert failed, user message orphaned",
			"user_id", user.ID, "error", err)
		return domain.Message{}, domain.WrapOp("Send: add placeholder", err)
	}

	cfg, err := w.config.Snapshot(ctx)
	if err != nil {
		return failExchange(w.store, placeholder, err, true)
	}

	if err := cfg.Validate(); err != nil {
		// A bad configuration will not self-correct, so no retry is offered.
		return failExchange(w.store, placeholder, err, false)
	}

	return finishExchange(ctx, w.store, w.gateway, w.logger, placeholder, text, cfg)
}

// finishExchange performs the gateway call for an in-flight exchange and
// finalizes the placeholder. Shared between send and retry.
func finishExchange(ctx context.Context, store domain.MessageStore, gateway domain.Gateway, logger *slog.Logger, placeholder domain.Message, prompt string, cfg domain.AiConfiguration) (domain.Message, error) {
	response, err := gateway.Generate(ctx, prompt, cfg)
	if err != nil {
		logger.Debug("gateway call failed", "message_id", placeholder.ID, "error", err)
		return failExchange(store, placeholder, err, true)
	}

	placeholder.Content = response
	placeholder.Status = domain.StatusSent{}
	if uerr := store.Update(placeholder); uerr != nil {
		return domain.Message{}, domain.WrapOp("finalize exchange", uerr)
	}
	return placeholder, nil
}

// failExchange records a terminal failure on the placeholder. The content
// starts with "Error:" so a renderer can show the failure inline, and the
// status carries the classified cause plus the retry gate.
func failExchange(store domain.MessageStore, placeholder domain.Message, cause error, retryable bool) (domain.Message, error) {
	placeholder.Content = "Error: " + cause.Error()
	placeholder.Status = domain.StatusFailed{Cause: cause, Retryable: retryable}
	if uerr := store.Update(placeholder); uerr != nil {
		return domain.Message{}, domain.WrapOp("record exchange failure", uerr)
	}
	return placeholder, cause
}

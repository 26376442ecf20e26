package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parley/internal/domain"
	"parley/internal/infra/tracer"
)

// EnvironmentChecker verifies that the runtime environment can reach the
// online backend at all (endpoint configured, platform capability present).
type EnvironmentChecker interface {
	Check(ctx context.Context) error
}

// SessionProvider supplies a ready-to-use auth token for the proxy call.
// Readiness failures are reported as errors, not empty tokens.
type SessionProvider interface {
	Token(ctx context.Context) (string, error)
}

// OnlineConfig configures the online backend.
type OnlineConfig struct {
	BaseURL      string
	DefaultModel string
	Client       ClientConfig
}

// OnlineBackend calls the remote AI proxy. Before any network I/O it runs
// the environment pre-flight and the session readiness check; either failing
// aborts the call.
type OnlineBackend struct {
	baseURL      string
	defaultModel string
	env          EnvironmentChecker
	session      SessionProvider
	client       *http.Client
	logger       *slog.Logger
}

// NewOnlineBackend creates the online backend.
func NewOnlineBackend(cfg OnlineConfig, env EnvironmentChecker, session SessionProvider, logger *slog.Logger) *OnlineBackend {
	return &OnlineBackend{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
		env:          env,
		session:      session,
		client:       NewHTTPClient(cfg.Client),
		logger:       logger,
	}
}

// Name implements domain.Backend.
func (b *OnlineBackend) Name() string { return string(domain.ModeOnline) }

// Available reports whether the environment pre-flight currently passes.
func (b *OnlineBackend) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.env.Check(ctx) == nil
}

// --- proxy wire types ---

type generateRequest struct {
	Message         string                 `json:"message"`
	ModelParameters domain.ModelParameters `json:"modelParameters"`
}

type generateResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// Generate implements domain.Backend.
func (b *OnlineBackend) Generate(ctx context.Context, text string, cfg domain.AiConfiguration) (*domain.GenerateResult, error) {
	ctx, span := tracer.StartSpan(ctx, "backend.generate",
		trace.WithAttributes(tracer.StringAttr("backend", b.Name())),
	)
	defer span.End()

	if err := b.env.Check(ctx); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("environment check: %w", err)
	}

	token, err := b.session.Token(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("session: %w: %v", domain.ErrAuthInvalid, err)
	}

	body, err := json.Marshal(generateRequest{
		Message:         text,
		ModelParameters: cfg.Params,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	respBody, err := doJSONRequest(ctx, b.client, b.baseURL+"/v1/generate", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if strings.TrimSpace(genResp.Response) == "" {
		// Transport succeeded but the payload is unusable.
		err := domain.WrapOp("OnlineBackend.Generate", domain.ErrEmptyResponse)
		tracer.RecordError(span, err)
		return nil, err
	}

	model := genResp.Model
	if model == "" {
		model = b.defaultModel
	}

	tracer.SetOK(span)
	b.logger.Debug("generate completed", "backend", b.Name(), "model", model)

	return &domain.GenerateResult{Text: genResp.Response, Model: model}, nil
}

// --- default collaborator implementations ---

// ConfiguredEnvironment checks that the proxy endpoint is a usable URL.
type ConfiguredEnvironment struct {
	BaseURL string
}

// Check implements EnvironmentChecker.
func (e ConfiguredEnvironment) Check(context.Context) error {
	if strings.TrimSpace(e.BaseURL) == "" {
		return fmt.Errorf("%w: proxy base URL not configured", domain.ErrUnavailable)
	}
	u, err := url.Parse(e.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: proxy base URL %q is not a valid URL", domain.ErrUnavailable, e.BaseURL)
	}
	return nil
}

// StaticSession supplies a fixed API token from configuration.
type StaticSession struct {
	APIKey string
}

// Token implements SessionProvider.
func (s StaticSession) Token(context.Context) (string, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return "", fmt.Errorf("no API key configured")
	}
	return s.APIKey, nil
}

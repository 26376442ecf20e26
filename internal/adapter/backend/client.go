package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"

	"parley/internal/domain"
)

// maxResponseBody is the maximum response body size read from the proxy.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Default proxy client timeouts.
const (
	defaultConnTimeout = 30 * time.Second
	defaultRespTimeout = 120 * time.Second
)

// Default connection pool settings: one host, moderate concurrency,
// long-lived connections.
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 120 * time.Second
)

// ClientConfig configures the HTTP client used for proxy calls.
type ClientConfig struct {
	ConnTimeout time.Duration
	RespTimeout time.Duration
}

// NewHTTPClient creates an *http.Client with a pooled transport suitable for
// repeated calls against a single proxy endpoint.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout == 0 {
		respTimeout = defaultRespTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: respTimeout,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ForceAttemptHTTP2:     true,
		},
		Timeout: connTimeout + respTimeout,
	}
}

// googleError is the googleapis error envelope the proxy returns on failure.
type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// doJSONRequest performs a JSON POST and returns the response body. Non-200
// responses become *domain.RemoteError so the classifier can map the proxy's
// canonical status codes.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

// mapHTTPError turns a non-200 proxy response into a *domain.RemoteError.
// The canonical code comes from the error envelope when present, otherwise
// from the HTTP status.
func mapHTTPError(statusCode int, body []byte) error {
	var ge googleError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Status != "" {
		return &domain.RemoteError{
			Code:    parseCanonicalCode(ge.Error.Status),
			Message: ge.Error.Message,
		}
	}

	return &domain.RemoteError{
		Code:    codeFromHTTPStatus(statusCode),
		Message: fmt.Sprintf("HTTP %d: %s", statusCode, truncate(string(body), 256)),
	}
}

// parseCanonicalCode resolves a canonical status name ("UNAUTHENTICATED")
// to its codes.Code. Unrecognized names map to Unknown.
func parseCanonicalCode(name string) codes.Code {
	var c codes.Code
	if err := c.UnmarshalJSON([]byte(strconv.Quote(name))); err != nil {
		return codes.Unknown
	}
	return c
}

func codeFromHTTPStatus(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	default:
		if statusCode >= 500 {
			return codes.Unavailable
		}
		return codes.Unknown
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

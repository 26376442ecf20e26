package usecase

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"google.golang.org/grpc/codes"

	"parley/internal/domain"
)

// ErrorClassifier reduces arbitrary failure causes to the stable error
// taxonomy. Remote proxy failures carry canonical status codes and go
// through a finer-grained secondary mapping; everything else falls back to
// structural matching on the error chain.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new classifier.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// networkErrorPatterns are message fragments that mark transport-level
// failures whose concrete error types got flattened to strings upstream.
var networkErrorPatterns = []string{
	"connection refused", "connection reset", "no such host",
	"broken pipe", "network is unreachable", "i/o timeout",
}

// Classify maps err to a *domain.Classified. Already-classified errors pass
// through unchanged. A nil err returns nil.
func (c *ErrorClassifier) Classify(err error) *domain.Classified {
	if err == nil {
		return nil
	}
	if cls := domain.ClassifiedFrom(err); cls != nil {
		return cls
	}
	if re := domain.RemoteErrorFrom(err); re != nil {
		return classifyRemote(err, re.Code)
	}
	return classifyGeneric(err)
}

// classifyRemote maps the remote proxy's canonical status codes.
// PermissionDenied is the only remote outcome that is never recoverable,
// regardless of its kind's default.
func classifyRemote(err error, code codes.Code) *domain.Classified {
	var kind domain.ErrorKind
	recoverable := true

	switch code {
	case codes.Unauthenticated:
		kind = domain.KindUnauthorized
	case codes.PermissionDenied:
		kind = domain.KindUnauthorized
		recoverable = false
	case codes.InvalidArgument:
		kind = domain.KindValidation
		recoverable = false
	case codes.NotFound:
		kind = domain.KindNotFound
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Internal, codes.Aborted, codes.Canceled, codes.Unknown:
		kind = domain.KindServiceUnavailable
	default:
		kind = domain.KindUnknown
	}

	return &domain.Classified{Kind: kind, Cause: err, Recoverable: recoverable}
}

// classifyGeneric is the fallback tier: structural matches on the error
// chain, then message patterns, then Unknown (conservatively retryable).
func classifyGeneric(err error) *domain.Classified {
	var kind domain.ErrorKind

	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.DeadlineExceeded):
		kind = domain.KindNetwork
	case errors.Is(err, domain.ErrAuthInvalid):
		kind = domain.KindUnauthorized
	case errors.Is(err, domain.ErrInvalidInput):
		kind = domain.KindValidation
	case errors.Is(err, domain.ErrNotFound):
		kind = domain.KindNotFound
	case errors.Is(err, domain.ErrUnavailable):
		kind = domain.KindServiceUnavailable
	case matchesNetworkPattern(err.Error()):
		kind = domain.KindNetwork
	default:
		kind = domain.KindUnknown
	}

	return &domain.Classified{
		Kind:        kind,
		Cause:       err,
		Recoverable: kind.Retryable(),
	}
}

func matchesNetworkPattern(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range networkErrorPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

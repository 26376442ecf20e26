package domain

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// RemoteError is a failure reported by the remote AI proxy. The proxy speaks
// the googleapis error model, so Code is a canonical gRPC status code. The
// classifier maps these to the error taxonomy with finer grain than generic
// error matching provides.
type RemoteError struct {
	Code    codes.Code
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call failed: %s: %s", e.Code, e.Message)
}

// RemoteErrorFrom extracts a *RemoteError from err's chain, or nil.
func RemoteErrorFrom(err error) *RemoteError {
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}
	return nil
}

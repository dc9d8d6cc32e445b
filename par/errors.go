package par

import (
	"errors"

	apperrors "github.com/jrsteele09/go-par-server/internal/errors"
)

var (
	ErrConfiguration    = errors.New("invalid request_uri expiry configuration")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownReference = errors.New("unknown request_uri")
	ErrRequestExpired   = errors.New("request_uri expired")
	ErrClientMismatch   = errors.New("client_ids do not match")

	// Store contract errors
	ErrNotFound         = apperrors.ErrNotFound
	ErrDuplicateKey     = apperrors.ErrDuplicateKey
	ErrStoreUnavailable = apperrors.ErrStoreUnavailable
)

// InvalidArgumentError is a rejected caller argument. Reason is safe to show to clients.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return ErrInvalidArgument.Error() + ": " + e.Reason
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgument(reason string) error {
	return &InvalidArgumentError{Reason: reason}
}

// OAuth2 error codes reported for service failures
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeServerError    = "server_error"
)

// ErrorCode returns the OAuth2 error code for an error returned by the Service.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownReference),
		errors.Is(err, ErrRequestExpired),
		errors.Is(err, ErrInvalidArgument):
		return ErrorCodeInvalidRequest
	case errors.Is(err, ErrClientMismatch):
		return ErrorCodeInvalidClient
	default:
		return ErrorCodeServerError
	}
}

// Describe returns the OAuth2 error code and a description that is safe to send to a client.
// Internal failures are not described beyond their class.
func Describe(err error) (code, description string) {
	code = ErrorCode(err)
	var argErr *InvalidArgumentError
	if errors.As(err, &argErr) {
		return code, argErr.Reason
	}
	for _, known := range []error{ErrInvalidArgument, ErrUnknownReference, ErrRequestExpired, ErrClientMismatch} {
		if errors.Is(err, known) {
			return code, known.Error()
		}
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return code, "request store unavailable"
	}
	return code, "internal error"
}

package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is matched by transport failures.
	ErrNetwork = errors.New("optimizer unreachable")
	// ErrStatus is matched by non-2xx responses.
	ErrStatus = errors.New("optimizer returned an error status")
	// ErrMalformedResponse is matched by bodies failing JSON decoding or the
	// endpoint schema.
	ErrMalformedResponse = errors.New("malformed optimizer response")
)

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindStatus    ErrorKind = "status"
	KindMalformed ErrorKind = "malformed"
)

// RequestError is returned by clients when a request fails.
type RequestError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: %s: status %d: %v", e.Endpoint, ErrStatus, e.StatusCode, e.Err)
	case KindMalformed:
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, ErrMalformedResponse, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, ErrNetwork, e.Err)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrMalformedResponse:
		return e.Kind == KindMalformed
	}
	return false
}

// KindOf returns the kind of a RequestError found in err's chain, or "" when
// there is none.
func KindOf(err error) ErrorKind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

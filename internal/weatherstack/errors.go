package weatherstack

import (
	"errors"
	"fmt"
)

// Kind classifies a weatherstack error
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidAPIKey
	KindInvalidLocation
	KindAPIRequest
	KindUsageLimit
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAPIKey:
		return "invalid_api_key"
	case KindInvalidLocation:
		return "invalid_location"
	case KindAPIRequest:
		return "api_request"
	case KindUsageLimit:
		return "usage_limit"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is returned by every client operation. StatusCode is the HTTP
// status when one was received and ErrorCode the service error code when
// the service reported one; both are zero otherwise.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	ErrorCode  int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrTimeout) works on any *Error of that kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalidAPIKey   = &Error{Kind: KindInvalidAPIKey}
	ErrInvalidLocation = &Error{Kind: KindInvalidLocation}
	ErrAPIRequest      = &Error{Kind: KindAPIRequest}
	ErrUsageLimit      = &Error{Kind: KindUsageLimit}
	ErrTimeout         = &Error{Kind: KindTimeout}
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

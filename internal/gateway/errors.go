package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrGatewayUnreachable        = errors.New("payment gateway unreachable")
	ErrGatewayRejected           = errors.New("payment gateway rejected the request")
	ErrMalformedUpstreamResponse = errors.New("malformed payment gateway response")
)

// Error carries the gateway's own detail next to one of the sentinel kinds above.
type Error struct {
	Kind       error
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Detail is the gateway-facing part of the error, safe to show to the caller.
func (e *Error) Detail() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// IsUpstreamFailure reports whether err came from talking to the gateway.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrGatewayUnreachable) ||
		errors.Is(err, ErrGatewayRejected) ||
		errors.Is(err, ErrMalformedUpstreamResponse)
}

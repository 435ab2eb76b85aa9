package sam

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialsRejected is returned when the login form was rendered
	// again instead of redirecting, the error flag is set as a side effect.
	ErrCredentialsRejected = errors.New("sam: password login failed, the password was incorrect")
	// ErrAlreadyFlagged is returned without making any request once the error
	// flag is set, it stays until the flag is cleared by hand.
	ErrAlreadyFlagged = errors.New("sam: password was incorrect last time, clear the error flag in the store before retrying")
	// ErrNoCachedData is returned by GetCached when there is nothing fresh to serve.
	ErrNoCachedData = errors.New("sam: no fresh cached data for this month")
)

// TransportError is a failed request: network failure, timeout or an
// unexpected status code.
type TransportError struct {
	Op string
	// Status is 0 when no response was received.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sam: %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("sam: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a response the portal is not expected to give.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sam: %s: %s", e.Op, e.Reason)
}

// ParseError is a timesheet page whose calendar could not be read.
type ParseError struct {
	Reason string
	// Text is the offending input, if any.
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	msg := "sam: parse timesheet: " + e.Reason
	if e.Text != "" {
		msg += fmt.Sprintf(" (%q)", e.Text)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

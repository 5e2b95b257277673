// Package errcode defines the stable error codes a wake cycle can absorb.
package errcode

import "errors"

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK Code = "ok"

	NetworkUnavailable   Code = "network_unavailable"
	FetchFailed          Code = "fetch_failed"
	StorageUnavailable   Code = "storage_unavailable"
	HardwareQueryFailure Code = "hardware_query_failure"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the operation, a message and the cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

// New builds an *E.
func New(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var x interface{ Code() Code }
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

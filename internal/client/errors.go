package client

import (
	"errors"
	"fmt"
)

// FailureKind classifies a transport failure.
type FailureKind int

const (
	FailureNetwork     FailureKind = iota // DNS, connection reset, timeout
	FailureStatus                         // non-2xx HTTP status
	FailureContentType                    // 2xx but not JSON
	FailureDecode                         // JSON that does not match the expected shape
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureStatus:
		return "status"
	case FailureContentType:
		return "content-type"
	case FailureDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Failure is the value every transport-level problem is reported as.
// Status is the HTTP status code when a response was received, otherwise 0.
type Failure struct {
	Kind   FailureKind
	URL    string
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("GET %s: %s failure (status %d): %v", f.URL, f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("GET %s: %s failure: %v", f.URL, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// StatusOf returns the HTTP status carried by a *Failure anywhere in err's
// chain, or 0.
func StatusOf(err error) int {
	var f *Failure
	if errors.As(err, &f) {
		return f.Status
	}
	return 0
}

// KindOf returns the FailureKind of err and whether err carried a *Failure.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

package errorsx

import (
	"errors"
	"fmt"
)

// ReasonedError pairs an error with the pipeline stage it came from.
// The reason survives further wrapping and is readable by log sinks
// and the transport's failure classifier.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Err)
}

func (e ReasonedError) Unwrap() error { return e.Err }

// Wrap tags err with a reason code. A nil err stays nil; an err that
// already carries a reason keeps its original one, so the innermost
// tag wins.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason reports the code carried by err, or ReasonUnknown.
func Reason(err error) ReasonCode {
	var re ReasonedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err carries the given reason code.
func HasReason(err error, reason ReasonCode) bool {
	return err != nil && Reason(err) == reason
}

package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoderUnavailable is returned when no usable encoder is registered
	// for the requested format.
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrMalformedImage is returned by tag writers that cannot find the
	// structure they need in the encoded bytes.
	ErrMalformedImage = errors.New("malformed encoded image")
)

// OptimizerError describes a failed run of the external PNG optimizer.
type OptimizerError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *OptimizerError) Error() string {
	msg := fmt.Sprintf("optimizer %q failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OptimizerError) Unwrap() error { return e.Err }

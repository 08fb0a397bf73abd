// Package flowerrors contains the typed errors returned across phononflow.
//
// Errors raised by a single pipeline are wrapped in ErrStageFailed so that the caller can tell
// which structure and stage failed. When several pipelines fail, the batch returns a
// multierror.Error from github.com/hashicorp/go-multierror holding one ErrStageFailed per failure.
package flowerrors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Process exit codes used by the phononflow command.
const (
	ExitCodeOK              = 0
	ExitCodeFailure         = 1
	ExitCodeInvalidArgument = 2
	ExitCodeTimeout         = 124
)

// ErrInvalidArgument is returned when some input, e.g. a configuration field, is invalid.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "maxBlocks"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrNotFound is returned whenever some named resource, e.g. an executor label, isn't found.
type ErrNotFound struct {
	Type    string
	Value   string
	Message string
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrWalltimeExceeded is returned when a job runs past the wall-clock limit of its executor.
type ErrWalltimeExceeded struct {
	Job      string
	Walltime time.Duration
}

func (err *ErrWalltimeExceeded) Error() string {
	return fmt.Sprintf("job %s exceeded walltime of %s", err.Job, err.Walltime)
}

// ErrStageFailed records which stage of which structure's pipeline failed.
type ErrStageFailed struct {
	Structure string
	Stage     string
	Cause     error
}

func (err *ErrStageFailed) Error() string {
	return fmt.Sprintf("stage %s failed for structure %s: %s", err.Stage, err.Structure, err.Cause)
}

func (err *ErrStageFailed) Unwrap() error {
	return err.Cause
}

// ExitCodeFromError maps error types to process exit codes.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
// A walltime timeout anywhere in the chain wins. Errors raised while a stage was running are
// runtime failures even when their cause is an ErrNotFound or ErrInvalidArgument; only errors
// raised before submission map to ExitCodeInvalidArgument.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitCodeOK
	}
	{
		var e *ErrWalltimeExceeded
		if errors.As(err, &e) {
			return ExitCodeTimeout
		}
	}
	{
		var e *ErrStageFailed
		if errors.As(err, &e) {
			return ExitCodeFailure
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return ExitCodeInvalidArgument
		}
	}
	{
		var e *ErrNotFound
		if errors.As(err, &e) {
			return ExitCodeInvalidArgument
		}
	}
	return ExitCodeFailure
}

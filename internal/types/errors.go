package types

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrAuthorizationDenied is returned when the user declines or fails authentication.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrSessionInvalid is returned when a privileged call is made without a valid session.
	ErrSessionInvalid = errors.New("authorization session is not valid")
	// ErrSessionExpired is returned when the OS no longer honours the cached credential.
	ErrSessionExpired = errors.New("authorization session expired")
	// ErrCancelled marks a result that was cut short by cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrSuperseded marks scan results from a generation that is no longer current.
	ErrSuperseded = fmt.Errorf("superseded by a newer scan: %w", ErrCancelled)
)

// IsCancelled reports whether err means "no authoritative result" rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// CommandError reports a privileged command that ran and failed, or could not be started.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := "command failed"
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("command failed (exit code %d)", e.ExitCode)
	}
	if e.Output != "" {
		msg += ": " + e.Output
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ScanPermissionError reports a filesystem entry the scanner could not read.
type ScanPermissionError struct {
	Path string
	Err  error
}

func (e *ScanPermissionError) Error() string {
	return "permission denied: " + e.Path
}

func (e *ScanPermissionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return fs.ErrPermission
}

// DeletionError reports a path that could not be moved to the Trash.
type DeletionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DeletionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return e.Path + ": " + e.Reason
}

func (e *DeletionError) Unwrap() error { return e.Err }

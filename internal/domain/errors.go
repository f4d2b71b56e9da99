package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingScriptBinding marks a command whose script path was never bound.
	ErrMissingScriptBinding = errors.New("command has no script binding")
	// ErrUnsupportedFolderURI marks a workspace folder outside the file scheme.
	ErrUnsupportedFolderURI = errors.New("non-file:// uri's not currently supported")
	// ErrFlightCheckFailed blocks command execution until checks pass or are disabled.
	ErrFlightCheckFailed = errors.New("flight check failed")
	// ErrResumeUnsupported is returned where resume search is not implemented.
	ErrResumeUnsupported = errors.New("resume search is not implemented on Windows")
	// ErrNothingToResume is returned when no resumable command has run yet.
	ErrNothingToResume = errors.New("cannot resume the last search because no search was run yet")
	// ErrSessionAbsent is returned by operations that need a live session.
	ErrSessionAbsent = errors.New("no terminal session")
	// ErrSentinelTampered signals that the sentinel was renamed or removed.
	ErrSentinelTampered = errors.New("canary file was renamed or removed")
	// ErrNoCustomTasks is returned when runCustomTask has nothing to offer.
	ErrNoCustomTasks = errors.New("no custom tasks defined")
	// ErrUnknownCommand is returned for names outside the command table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrSuperseded ends a command whose terminal was replaced by a newer invocation.
	ErrSuperseded = errors.New("superseded by a newer command")
)

// FlightCheckError aggregates every missing external tool into one message.
type FlightCheckError struct {
	Missing []string
}

func (e *FlightCheckError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, tool := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s not found on your PATH.", tool))
	}
	return "Make sure you have the required command line tools installed. " + strings.Join(parts, " ")
}

func (e *FlightCheckError) Unwrap() error {
	return ErrFlightCheckFailed
}

// UnparseableResultError reports a result line that could not be parsed.
type UnparseableResultError struct {
	Line string
}

func (e *UnparseableResultError) Error() string {
	return fmt.Sprintf("did not match anything in filename: [%s] could not open file", e.Line)
}

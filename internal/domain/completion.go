package domain

// Verdict classifies one sentinel notification.
type Verdict int

const (
	// VerdictSuccess means the invocation finished and the payload holds results.
	VerdictSuccess Verdict = iota
	// VerdictFailure means the external tool reported failure or cancellation.
	VerdictFailure
	// VerdictUnresolved means the sentinel could not be read; the outcome is unknown.
	VerdictUnresolved
	// VerdictTampered means the sentinel was renamed or removed.
	VerdictTampered
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	case VerdictUnresolved:
		return "unresolved"
	case VerdictTampered:
		return "tampered"
	default:
		return "unknown"
	}
}

// CompletionEvent is emitted by the completion channel for each sentinel event.
type CompletionEvent struct {
	Generation uint64
	Verdict    Verdict
	// Payload holds the result records (everything after the first line) on success.
	Payload string
	Err     error
}

// Position is a 0-based editor position.
type Position struct {
	Line   int
	Column int
}

// OpenTarget is one file to open, optionally at a position.
type OpenTarget struct {
	Path     string
	Position *Position
}

// OpenRequest is what the editor adapter receives.
type OpenRequest struct {
	Target  OpenTarget
	Preview bool
}

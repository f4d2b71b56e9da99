package domain

import "fmt"

// SessionState is the lifecycle of the shared terminal session.
type SessionState int

const (
	SessionAbsent SessionState = iota
	SessionCreated
	SessionActive
	SessionDisposed
)

func (s SessionState) String() string {
	switch s {
	case SessionAbsent:
		return "absent"
	case SessionCreated:
		return "created"
	case SessionActive:
		return "active"
	case SessionDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionPaths are the session-scoped temp files shared with the scripts.
type SessionPaths struct {
	TempDir      string
	Sentinel     string
	Selection    string
	LastQuery    string
	LastPosition string
	Explain      string
}

// TerminalRef is a weak reference to a host terminal. It carries no
// ownership; callers must check liveness with the host before using it.
type TerminalRef struct {
	ID         string
	Generation uint64
}

// IsZero reports whether the reference points nowhere.
func (r TerminalRef) IsZero() bool {
	return r.ID == ""
}

// TerminalSpec is what a terminal host needs to open the session terminal.
type TerminalSpec struct {
	Name      string
	Env       map[string]string
	ShellPath string
	WorkDir   string
	// HideFromUser creates the terminal in the background; Show brings it forward.
	HideFromUser bool
}

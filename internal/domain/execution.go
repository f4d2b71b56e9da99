package domain

// ExecutionResult wraps details from the command executor.
type ExecutionResult struct {
	Ran        bool
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMS int64
	Err        error
}

// WatchEventKind distinguishes content changes from structural changes.
type WatchEventKind int

const (
	// WatchContentChanged means the watched file was written.
	WatchContentChanged WatchEventKind = iota
	// WatchStructural means the watched file was renamed, replaced or removed.
	WatchStructural
)

// WatchEvent is delivered by a file watcher subscription.
type WatchEvent struct {
	Kind WatchEventKind
	Path string
	Err  error
}

// MessageLevel is the severity of a user-facing message.
type MessageLevel string

const (
	MessageInfo    MessageLevel = "info"
	MessageWarning MessageLevel = "warning"
	MessageError   MessageLevel = "error"
)

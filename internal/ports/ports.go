// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the orchestration core and
// external adapters (infrastructure). The core never talks to tmux, fsnotify,
// SQLite or the host editor directly; it only sees the interfaces below, which
// keeps the completion state machine and the focus controller testable with
// in-memory fakes.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., TerminalHost, Watcher, Editor)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/fif-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.fif/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// CommandExecutor runs a program outside the terminal session and captures
// its output. Used for the flight check script and `rg --type-list`.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) (domain.ExecutionResult, error)
}

// TerminalHost owns the host-level interactive terminals.
// Exactly one terminal is opened by the session manager at a time.
type TerminalHost interface {
	Name() string
	Available(ctx context.Context) bool
	Open(ctx context.Context, spec domain.TerminalSpec) (domain.TerminalRef, error)
	Close(ctx context.Context, ref domain.TerminalRef) error
	SendText(ctx context.Context, ref domain.TerminalRef, text string) error
	Show(ctx context.Context, ref domain.TerminalRef) error
	Hide(ctx context.Context, ref domain.TerminalRef) error
	Maximize(ctx context.Context, ref domain.TerminalRef) error
	// Alive reports whether ref still points at an open terminal.
	Alive(ctx context.Context, ref domain.TerminalRef) bool
	// ActiveTerminal returns the terminal that currently has focus, if any.
	ActiveTerminal(ctx context.Context) (domain.TerminalRef, bool)
	// ActiveTerminalChanges delivers host-level focus change notifications.
	ActiveTerminalChanges() <-chan domain.TerminalRef
}

// TerminationNotifier is implemented by hosts that acknowledge terminal
// teardown. The returned channel is closed once ref has terminated.
type TerminationNotifier interface {
	Terminated(ref domain.TerminalRef) <-chan struct{}
}

// Watcher arms filesystem watches.
type Watcher interface {
	Watch(path string) (WatchSubscription, error)
}

// WatchSubscription is one armed watch. Close invalidates it; no event is
// delivered after Close returns.
type WatchSubscription interface {
	Events() <-chan domain.WatchEvent
	Close() error
}

// Clock abstracts time so deferred work can be tested without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// Dispatcher posts work onto the orchestrator's event loop. Callbacks from
// watchers, timers and the terminal host never mutate state directly; they
// post a closure instead.
type Dispatcher interface {
	Post(fn func())
}

// Editor performs navigation in the host editor.
type Editor interface {
	Open(ctx context.Context, req domain.OpenRequest) error
}

// Notifier surfaces messages to the user through the host editor.
type Notifier interface {
	Notify(level domain.MessageLevel, text string)
}

// Chooser gathers user choices before a command is built. Both methods return
// ok=false when the user dismissed the prompt.
type Chooser interface {
	ChooseTypes(ctx context.Context, options []domain.TypeOption, current []string) (types []string, ok bool, err error)
	ChooseTask(ctx context.Context, tasks []domain.CustomTask) (task domain.CustomTask, ok bool, err error)
}

// SelectionWriter writes the editor selection to the side-channel file.
type SelectionWriter interface {
	WriteSelection(path, text string) error
}

// HistoryRepository persists invocation records.
type HistoryRepository interface {
	Save(record domain.HistoryRecord) error
	Records(limit int) ([]domain.HistoryRecord, error)
	LastResumable() (domain.HistoryRecord, bool, error)
	Clear() error
	Path() string
}

// CacheRepository stores tool output with a TTL.
type CacheRepository interface {
	Get(key string) (domain.CacheEntry, bool, error)
	Set(entry domain.CacheEntry) error
	Clear() error
	Dir() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stderr, log file).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}

package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for session files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultToolCacheDuration is how long the ripgrep type list is cached
	DefaultToolCacheDuration = 10 * time.Minute
	// DefaultCommandTimeout bounds the flight check script and type-list probes
	DefaultCommandTimeout = 10 * time.Second
	// DeferredDisposeDelay postpones killing the terminal after use when the
	// host gives no termination acknowledgement.
	DeferredDisposeDelay = 100 * time.Millisecond
	// SentinelSettleDelay coalesces the truncate+write event pair of one sentinel write
	SentinelSettleDelay = 30 * time.Millisecond
)

// Session file names inside the per-session temp directory
const (
	SessionDirPrefix     = "fif-"
	SentinelFileName     = "snitch"
	SelectionFileName    = "selection"
	LastQueryFileName    = "last_query"
	LastPositionFileName = "last_position"
	ExplainFileName      = "paths_explain"
)

// Terminal defaults
const (
	DefaultTerminalName    = "FindItFaster"
	DefaultTerminalBackend = "tmux"
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 30
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)

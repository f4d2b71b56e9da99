package domain

import "time"

// HistoryRecord captures one command invocation and its verdict.
type HistoryRecord struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Command     CommandName `json:"command"`
	CommandLine string      `json:"command_line"`
	Resumable   bool        `json:"resumable"`
	Verdict     string      `json:"verdict"`
	ResultCount int         `json:"result_count"`
	SearchRoots []string    `json:"search_roots"`
	TypeFilter  []string    `json:"type_filter,omitempty"`
	DurationMS  int64       `json:"duration_ms"`
}

// CacheEntry stores cached tool output addressed by key.
type CacheEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Package history persists invocation records.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// SQLiteStore persists history in a SQLite database. When the database cannot
// be opened it degrades to a FileStore next to it.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	mu       sync.Mutex
}

// NewSQLiteStore creates (or opens) dir/history.db.
func NewSQLiteStore(dir string, logger ports.Logger) *SQLiteStore {
	path := filepath.Join(dir, "history.db")
	fallback := NewFileStore(dir)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		logger.Warn("history dir unavailable, using jsonl", map[string]interface{}{"error": err.Error()})
		return &SQLiteStore{path: path, fallback: fallback}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Warn("sqlite unavailable, using jsonl", map[string]interface{}{"error": err.Error()})
		return &SQLiteStore{path: path, fallback: fallback}
	}
	store := &SQLiteStore{db: db, path: path, fallback: fallback}
	if err := store.init(); err != nil {
		_ = db.Close()
		logger.Warn("sqlite schema failed, using jsonl", map[string]interface{}{"error": err.Error()})
		return &SQLiteStore{path: path, fallback: fallback}
	}
	return store
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS invocations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT,
		timestamp TEXT,
		command TEXT,
		command_line TEXT,
		resumable INTEGER,
		verdict TEXT,
		result_count INTEGER,
		search_roots TEXT,
		type_filter TEXT,
		duration_ms INTEGER
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.HistoryRecord) error {
	if s.db == nil {
		return s.fallback.Save(record)
	}
	roots, err := json.Marshal(record.SearchRoots)
	if err != nil {
		return err
	}
	types, err := json.Marshal(record.TypeFilter)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO invocations
		(id, timestamp, command, command_line, resumable, verdict, result_count, search_roots, type_filter, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Timestamp.UTC().Format(domain.TimestampFormat),
		string(record.Command),
		record.CommandLine,
		boolToInt(record.Resumable),
		record.Verdict,
		record.ResultCount,
		string(roots),
		string(types),
		record.DurationMS,
	)
	return err
}

const selectColumns = "SELECT id, timestamp, command, command_line, resumable, verdict, result_count, search_roots, type_filter, duration_ms FROM invocations"

// Records returns the newest entries first. limit <= 0 returns everything.
func (s *SQLiteStore) Records(limit int) ([]domain.HistoryRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit)
	}
	query := selectColumns + " ORDER BY seq DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LastResumable returns the most recent resumable invocation.
func (s *SQLiteStore) LastResumable() (domain.HistoryRecord, bool, error) {
	if s.db == nil {
		return s.fallback.LastResumable()
	}
	row := s.db.QueryRow(selectColumns + " WHERE resumable = 1 ORDER BY seq DESC LIMIT 1")
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return domain.HistoryRecord{}, false, nil
	}
	if err != nil {
		return domain.HistoryRecord{}, false, err
	}
	return rec, true, nil
}

// Prune deletes records older than retain.
func (s *SQLiteStore) Prune(now time.Time, retain time.Duration) (int64, error) {
	if s.db == nil {
		return s.fallback.Prune(now, retain)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-retain).UTC().Format(domain.TimestampFormat)
	res, err := s.db.Exec("DELETE FROM invocations WHERE datetime(timestamp) < datetime(?)", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	_, err := s.db.Exec("DELETE FROM invocations")
	return err
}

// Path returns the database path, or the jsonl path when degraded.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback.Path()
	}
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (domain.HistoryRecord, error) {
	var (
		rec       domain.HistoryRecord
		ts        string
		command   string
		resumable int
		roots     string
		types     string
	)
	if err := row.Scan(&rec.ID, &ts, &command, &rec.CommandLine, &resumable, &rec.Verdict, &rec.ResultCount, &roots, &types, &rec.DurationMS); err != nil {
		return domain.HistoryRecord{}, err
	}
	if t, err := time.Parse(domain.TimestampFormat, ts); err == nil {
		rec.Timestamp = t
	}
	rec.Command = domain.CommandName(command)
	rec.Resumable = resumable == 1
	if err := json.Unmarshal([]byte(roots), &rec.SearchRoots); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("decode search roots: %w", err)
	}
	if err := json.Unmarshal([]byte(types), &rec.TypeFilter); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("decode type filter: %w", err)
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)

// Package state records the history of mirror runs in a local SQLite database.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseFile is created inside the state directory
const DatabaseFile = "drivemirror.db"

// Run statuses
const (
	StatusSuccess = "success" // every file downloaded or skipped
	StatusPartial = "partial" // completed with failed files or folders
	StatusFailed  = "failed"  // aborted before the walk completed
)

// Manager handles run history persistence
type Manager struct {
	db *sql.DB
}

// RunRecord represents a single mirror run
type RunRecord struct {
	ID            string
	FolderID      string
	Destination   string
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	FilesTotal    int
	Downloaded    int
	Skipped       int
	Failed        int
	FoldersFailed int
	Bytes         int64
	Error         string
}

// NewManager opens (and creates if needed) the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		folder_id TEXT NOT NULL,
		destination TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		files_total INTEGER DEFAULT 0,
		downloaded INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		folders_failed INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_folder_time ON runs(folder_id, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records a finished run; an empty ID is filled with a new UUID
func (m *Manager) SaveRun(record *RunRecord) error {
	switch record.Status {
	case StatusSuccess, StatusPartial, StatusFailed:
	default:
		return fmt.Errorf("invalid status: %s (must be '%s', '%s', or '%s')",
			record.Status, StatusSuccess, StatusPartial, StatusFailed)
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	query := `
		INSERT INTO runs (id, folder_id, destination, start_time, end_time, status,
			files_total, downloaded, skipped, failed, folders_failed, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.ID,
		record.FolderID,
		record.Destination,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.FilesTotal,
		record.Downloaded,
		record.Skipped,
		record.Failed,
		record.FoldersFailed,
		record.Bytes,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

const selectRuns = `
	SELECT id, folder_id, destination, start_time, end_time, status,
		files_total, downloaded, skipped, failed, folders_failed, bytes, error
	FROM runs
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var record RunRecord
	var errText sql.NullString
	err := s.Scan(
		&record.ID,
		&record.FolderID,
		&record.Destination,
		&record.StartTime,
		&record.EndTime,
		&record.Status,
		&record.FilesTotal,
		&record.Downloaded,
		&record.Skipped,
		&record.Failed,
		&record.FoldersFailed,
		&record.Bytes,
		&errText,
	)
	record.Error = errText.String
	return record, err
}

func (m *Manager) queryRuns(query string, args ...any) ([]RunRecord, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// GetHistory retrieves the most recent runs of one folder
func (m *Manager) GetHistory(folderID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return m.queryRuns(selectRuns+"WHERE folder_id = ? ORDER BY start_time DESC LIMIT ?", folderID, limit)
}

// GetAllHistory retrieves the most recent runs across all folders
func (m *Manager) GetAllHistory(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return m.queryRuns(selectRuns+"ORDER BY start_time DESC LIMIT ?", limit)
}

// GetLastSuccess retrieves the last fully successful run of a folder
// Returns nil, nil when there is none
func (m *Manager) GetLastSuccess(folderID string) (*RunRecord, error) {
	row := m.db.QueryRow(selectRuns+"WHERE folder_id = ? AND status = ? ORDER BY start_time DESC LIMIT 1",
		folderID, StatusSuccess)

	record, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

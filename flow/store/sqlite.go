package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/flowcheck/flow"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It keeps validation history in a single-file database. Designed for:
//   - Local development with zero setup
//   - CI caches checked alongside the workflow repository
//   - Prototyping before migrating to a shared database
//
// SQLiteStore uses WAL mode for concurrent reads and auto-migrates its
// schema on first use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./flowcheck.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically creates the database file and required tables,
// enables WAL mode, and configures a busy timeout.
//
// Example:
//
//	st, err := store.NewSQLiteStore("./flowcheck.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// createTables creates the required database schema if it doesn't exist.
func (s *SQLiteStore) createTables(ctx context.Context) error {
	reportsTable := `
		CREATE TABLE IF NOT EXISTS validation_reports (
			id TEXT NOT NULL PRIMARY KEY,
			workflow TEXT NOT NULL,
			report TEXT NOT NULL,
			error_count INTEGER NOT NULL,
			warning_count INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, reportsTable); err != nil {
		return fmt.Errorf("failed to create validation_reports table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_reports_workflow ON validation_reports(workflow, created_at)"); err != nil {
		return fmt.Errorf("failed to create idx_reports_workflow: %w", err)
	}
	return nil
}

// SaveReport persists a record (implements Store). Saving an existing ID
// replaces the stored row.
func (s *SQLiteStore) SaveReport(ctx context.Context, rec Record) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO validation_reports (id, workflow, report, error_count, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workflow = excluded.workflow,
			report = excluded.report,
			error_count = excluded.error_count,
			warning_count = excluded.warning_count,
			created_at = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Workflow, string(reportJSON),
		rec.Report.ErrorCount(), rec.Report.WarningCount(),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// LoadReport retrieves a record by ID (implements Store).
func (s *SQLiteStore) LoadReport(ctx context.Context, id string) (Record, error) {
	if err := s.checkOpen(); err != nil {
		return Record{}, err
	}

	query := `
		SELECT id, workflow, report, created_at
		FROM validation_reports
		WHERE id = ?
	`
	return s.scanRecord(s.db.QueryRowContext(ctx, query, id))
}

// LoadLatest retrieves the most recent record for a workflow (implements
// Store).
func (s *SQLiteStore) LoadLatest(ctx context.Context, workflow string) (Record, error) {
	if err := s.checkOpen(); err != nil {
		return Record{}, err
	}

	query := `
		SELECT id, workflow, report, created_at
		FROM validation_reports
		WHERE workflow = ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanRecord(s.db.QueryRowContext(ctx, query, workflow))
}

// ListReports returns records for a workflow, newest first (implements
// Store).
func (s *SQLiteStore) ListReports(ctx context.Context, workflow string, limit int) ([]Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, workflow, report, created_at
		FROM validation_reports
		WHERE workflow = ?
		ORDER BY created_at DESC
	`
	args := []any{workflow}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []Record
	for rows.Next() {
		rec, err := s.scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	return recs, nil
}

// Close closes the database connection (implements Store). Double-close
// is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(row *sql.Row) (Record, error) {
	rec, err := scanReportRow(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) scanRecordRow(rows *sql.Rows) (Record, error) {
	return scanReportRow(rows)
}

func scanReportRow(row rowScanner) (Record, error) {
	var (
		rec        Record
		reportJSON string
		createdAt  string
	)
	if err := row.Scan(&rec.ID, &rec.Workflow, &reportJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan report row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	rec.CreatedAt = ts

	var report flow.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	rec.Report = report
	return rec, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/flowcheck/flow"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for CI fleets where many validators share one history
// database. Uses connection pooling and replaces rows transactionally.
//
// Schema:
//   - validation_reports: one row per validation run
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example:
//
//	user:password@tcp(localhost:3306)/flowcheck?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	st, err := store.NewMySQLStore(dsn)
//
// The store verifies connectivity with a ping and creates its tables on
// first use.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore{db: db}
	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

// createTables creates the required database schema if it doesn't exist.
func (m *MySQLStore) createTables(ctx context.Context) error {
	reportsTable := `
		CREATE TABLE IF NOT EXISTS validation_reports (
			id VARCHAR(255) NOT NULL PRIMARY KEY,
			workflow VARCHAR(255) NOT NULL,
			report JSON NOT NULL,
			error_count INT NOT NULL,
			warning_count INT NOT NULL,
			created_at TIMESTAMP(6) NOT NULL,
			INDEX idx_workflow_created (workflow, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, reportsTable); err != nil {
		return fmt.Errorf("failed to create validation_reports table: %w", err)
	}
	return nil
}

// SaveReport persists a record (implements Store).
func (m *MySQLStore) SaveReport(ctx context.Context, rec Record) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO validation_reports (id, workflow, report, error_count, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			workflow = VALUES(workflow),
			report = VALUES(report),
			error_count = VALUES(error_count),
			warning_count = VALUES(warning_count),
			created_at = VALUES(created_at)
	`
	_, err = m.db.ExecContext(ctx, query,
		rec.ID, rec.Workflow, string(reportJSON),
		rec.Report.ErrorCount(), rec.Report.WarningCount(),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// LoadReport retrieves a record by ID (implements Store).
func (m *MySQLStore) LoadReport(ctx context.Context, id string) (Record, error) {
	if err := m.checkOpen(); err != nil {
		return Record{}, err
	}

	query := `
		SELECT id, workflow, report, created_at
		FROM validation_reports
		WHERE id = ?
	`
	return m.scanRecord(m.db.QueryRowContext(ctx, query, id))
}

// LoadLatest retrieves the most recent record for a workflow (implements
// Store).
func (m *MySQLStore) LoadLatest(ctx context.Context, workflow string) (Record, error) {
	if err := m.checkOpen(); err != nil {
		return Record{}, err
	}

	query := `
		SELECT id, workflow, report, created_at
		FROM validation_reports
		WHERE workflow = ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	return m.scanRecord(m.db.QueryRowContext(ctx, query, workflow))
}

// ListReports returns records for a workflow, newest first (implements
// Store).
func (m *MySQLStore) ListReports(ctx context.Context, workflow string, limit int) ([]Record, error) {
	if err := m.checkOpen(); err != nil {
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

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []Record
	for rows.Next() {
		rec, err := scanMySQLRow(rows)
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
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

func (m *MySQLStore) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return nil
}

func (m *MySQLStore) scanRecord(row *sql.Row) (Record, error) {
	rec, err := scanMySQLRow(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func scanMySQLRow(row rowScanner) (Record, error) {
	var (
		rec        Record
		reportJSON string
	)
	if err := row.Scan(&rec.ID, &rec.Workflow, &reportJSON, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan report row: %w", err)
	}

	var report flow.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	rec.Report = report
	return rec, nil
}

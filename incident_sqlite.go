package argus

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// SQLiteIncidentStore is an IncidentStore backed by a SQLite file, so
// incident history can be inspected with standard SQLite tooling.
type SQLiteIncidentStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool

	insertStmt  *sql.Stmt
	similarStmt *sql.Stmt
}

const incidentSchema = `
CREATE TABLE IF NOT EXISTS incidents (
	id              TEXT PRIMARY KEY,
	metric_name     TEXT NOT NULL,
	percentage_drop REAL NOT NULL,
	occurred_at     INTEGER NOT NULL,
	root_cause      TEXT NOT NULL DEFAULT '',
	resolution      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_incidents_metric ON incidents(metric_name, occurred_at DESC);
`

// NewSQLiteIncidentStore opens (or creates) the incident database at path.
func NewSQLiteIncidentStore(path string) (*SQLiteIncidentStore, error) {
	if path == "" {
		path = "incidents.db"
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open incident store: %w", err)
	}

	if _, err := db.Exec(incidentSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create incident schema: %w", err)
	}

	insertStmt, err := db.Prepare(`INSERT OR REPLACE INTO incidents
		(id, metric_name, percentage_drop, occurred_at, root_cause, resolution)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	similarStmt, err := db.Prepare(`SELECT id, metric_name, percentage_drop, occurred_at, root_cause, resolution
		FROM incidents
		WHERE metric_name = ? AND ABS(percentage_drop - ?) <= ?
		ORDER BY occurred_at DESC
		LIMIT ?`)
	if err != nil {
		insertStmt.Close()
		db.Close()
		return nil, fmt.Errorf("prepare similar query: %w", err)
	}

	return &SQLiteIncidentStore{db: db, insertStmt: insertStmt, similarStmt: similarStmt}, nil
}

// SaveIncident inserts or replaces an incident record.
func (s *SQLiteIncidentStore) SaveIncident(ctx context.Context, inc Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("incident store is closed")
	}

	_, err := s.insertStmt.ExecContext(ctx,
		inc.ID, inc.MetricName, inc.PercentageDrop, inc.OccurredAt.UnixNano(),
		inc.RootCause, inc.Resolution)
	if err != nil {
		return fmt.Errorf("save incident %s: %w", inc.ID, err)
	}
	return nil
}

// SimilarIncidents runs the nearest-neighbor contract: same metric name,
// percentage drop within q.Tolerance points, most recent first, capped at
// q.Limit results.
func (s *SQLiteIncidentStore) SimilarIncidents(ctx context.Context, q SimilarIncidentQuery) ([]Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("incident store is closed")
	}

	tolerance := q.Tolerance
	if tolerance <= 0 {
		tolerance = defaultIncidentTolerance
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultIncidentLimit
	}

	rows, err := s.similarStmt.QueryContext(ctx, q.MetricName, q.PercentageDrop, tolerance, limit)
	if err != nil {
		return nil, fmt.Errorf("similar incidents for %s: %w", q.MetricName, err)
	}
	defer rows.Close()

	incidents := []Incident{}
	for rows.Next() {
		var inc Incident
		var occurredAt int64
		if err := rows.Scan(&inc.ID, &inc.MetricName, &inc.PercentageDrop,
			&occurredAt, &inc.RootCause, &inc.Resolution); err != nil {
			return nil, err
		}
		inc.OccurredAt = time.Unix(0, occurredAt).UTC()
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// Close releases the prepared statements and the underlying database.
func (s *SQLiteIncidentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.insertStmt.Close()
	s.similarStmt.Close()
	return s.db.Close()
}

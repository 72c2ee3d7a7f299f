package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcomes recorded for an operation.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

const timestampLayout = "2006-01-02 15:04:05"

// OperationMetric records metadata for a single planner operation.
type OperationMetric struct {
	Operation    string
	Outcome      string
	ItemsTouched int
	LatencyMS    int64
	Timestamp    time.Time
}

// Recorder accepts operation metrics.
type Recorder interface {
	Record(ctx context.Context, m OperationMetric) error
}

// Recorders sends each metric to every recorder in turn and returns the first
// error after trying them all.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, m OperationMetric) error {
	var first error
	for _, r := range rs {
		if err := r.Record(ctx, m); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

var _ Recorder = (*Store)(nil)

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m OperationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operation_metrics (operation, outcome, items_touched, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		m.Operation, m.Outcome, m.ItemsTouched, m.LatencyMS, ts.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// DailySummary aggregates the operations of a single day.
type DailySummary struct {
	Date         string
	Operations   int
	Errors       int
	ItemsTouched int
	AvgLatencyMS float64
}

// GetDailySummary returns one row per day for the last N days, newest first.
func (s *Store) GetDailySummary(ctx context.Context, days int) ([]DailySummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END),
		       COALESCE(SUM(items_touched), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM operation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, OutcomeError, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	var results []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Date, &d.Operations, &d.Errors, &d.ItemsTouched, &d.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timestampLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM operation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}

package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lamitna/internal/database"
)

// GenerationMetric records one menu generation attempt.
type GenerationMetric struct {
	Cuisine          string
	Provenance       string // "ai" or "fallback"
	Reason           string // why the attempt settled the way it did
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	Timestamp        time.Time
}

// Recorder accepts generation metrics.
type Recorder interface {
	RecordGeneration(ctx context.Context, m GenerationMetric) error
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RecordGeneration saves a metric to the database.
func (s *Store) RecordGeneration(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_metrics
			(cuisine, provenance, reason, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Cuisine, m.Provenance, m.Reason, m.Model, m.PromptTokens, m.CompletionTokens,
		m.Latency.Milliseconds(), database.FormatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation metric: %w", err)
	}
	return nil
}

// DailyUsage represents generation totals for a single day.
type DailyUsage struct {
	Date             string
	AIRuns           int
	FallbackRuns     int
	PromptTokens     int
	CompletionTokens int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
			SUM(CASE WHEN provenance = 'ai' THEN 1 ELSE 0 END),
			SUM(CASE WHEN provenance = 'fallback' THEN 1 ELSE 0 END),
			SUM(prompt_tokens),
			SUM(completion_tokens)
		FROM generation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.AIRuns, &u.FallbackRuns, &u.PromptTokens, &u.CompletionTokens); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(s.now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}

// Fanout forwards each metric to every recorder and returns the first error.
type Fanout []Recorder

// RecordGeneration implements Recorder.
func (f Fanout) RecordGeneration(ctx context.Context, m GenerationMetric) error {
	var first error
	for _, r := range f {
		if err := r.RecordGeneration(ctx, m); err != nil && first == nil {
			first = err
		}
	}
	return first
}

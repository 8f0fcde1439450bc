// Package metrics records LLM and plan-generation activity in SQLite and
// exposes it to Prometheus.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"diet-planner/internal/llm"
)

// ExecutionMetric records metadata for a single LLM call.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// PlanMetric records one meal plan generation.
type PlanMetric struct {
	UserID     string
	Days       int
	Candidates int
	Relaxed    bool
	Failed     bool
	LatencyMS  int64
	Timestamp  time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func timestampOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, timestampOrNow(m.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from llm.AgentMeta. Calls that used
// no tokens are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta llm.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(ctx, MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// RecordPlan saves a plan generation record.
func (s *Store) RecordPlan(ctx context.Context, m PlanMetric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plan_metrics (user_id, days, candidates, relaxed, failed, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.Days, m.Candidates, m.Relaxed, m.Failed, m.LatencyMS, timestampOrNow(m.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to record plan metric: %w", err)
	}
	return nil
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(timestamp, 1, 10) AS day,
			COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COUNT(*)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalExecution); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// PlanStats summarizes plan generations over a period.
type PlanStats struct {
	Total        int
	Failed       int
	Relaxed      int
	AvgLatencyMS float64
}

// GetPlanStats summarizes plan generations of the last N days.
func (s *Store) GetPlanStats(ctx context.Context, days int) (PlanStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var st PlanStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(failed), 0), COALESCE(SUM(relaxed), 0), COALESCE(AVG(latency_ms), 0)
		FROM plan_metrics WHERE timestamp >= ?`,
		since,
	).Scan(&st.Total, &st.Failed, &st.Relaxed, &st.AvgLatencyMS)
	if err != nil {
		return PlanStats{}, fmt.Errorf("failed to query plan stats: %w", err)
	}
	return st, nil
}

// Cleanup removes records older than the specified number of days and
// returns how many rows were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	var total int64
	for _, table := range []string{"execution_metrics", "plan_metrics"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, threshold)
		if err != nil {
			return total, fmt.Errorf("failed to clean up %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to count deleted rows: %w", err)
		}
		total += n
	}
	return total, nil
}

// MapUsage helper to convert llm.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage llm.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}

package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"diet-planner/internal/llm"
	"diet-planner/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	store := NewStore(db.SQL)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Record(ctx, ExecutionMetric{AgentName: "Extractor", Model: "gemini", PromptTokens: 100, CompletionTokens: 20, Timestamp: now}))
	require.NoError(t, store.Record(ctx, ExecutionMetric{AgentName: "Extractor", Model: "gemini", PromptTokens: 50, CompletionTokens: 10, Timestamp: now}))
	require.NoError(t, store.Record(ctx, ExecutionMetric{AgentName: "Extractor", Model: "gemini", PromptTokens: 7, Timestamp: now.AddDate(0, 0, -40)}))

	// Zero-token calls are not recorded.
	require.NoError(t, store.RecordMeta(ctx, llm.AgentMeta{AgentName: "Extractor"}))

	usage, err := store.GetDailyUsage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, now.Format("2006-01-02"), usage[0].Date)
	assert.Equal(t, 150, usage[0].TotalPrompt)
	assert.Equal(t, 30, usage[0].TotalCompletion)
	assert.Equal(t, 2, usage[0].TotalExecution)

	require.NoError(t, store.RecordPlan(ctx, PlanMetric{UserID: "u1", Days: 7, Candidates: 30, LatencyMS: 4}))
	require.NoError(t, store.RecordPlan(ctx, PlanMetric{UserID: "u1", Days: 7, Relaxed: true, LatencyMS: 8}))
	require.NoError(t, store.RecordPlan(ctx, PlanMetric{UserID: "u2", Days: 3, Failed: true, Timestamp: now.AddDate(0, 0, -40)}))

	stats, err := store.GetPlanStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, PlanStats{Total: 2, Relaxed: 1, AvgLatencyMS: 6}, stats)

	deleted, err := store.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	stats, err = store.GetPlanStats(ctx, 365)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("Extractor", llm.TokenUsage{PromptTokens: 3, CompletionTokens: 4, Model: "m"}, 1500*time.Millisecond)
	assert.Equal(t, "Extractor", m.AgentName)
	assert.Equal(t, "m", m.Model)
	assert.Equal(t, int64(1500), m.LatencyMS)
	assert.False(t, m.Timestamp.IsZero())
}

func TestCollectors(t *testing.T) {
	c := NewCollectors()

	c.ObservePlan(false, true, 20*time.Millisecond)
	c.ObservePlan(false, false, 10*time.Millisecond)
	c.ObservePlan(true, false, time.Millisecond)
	c.ObserveLLM(llm.AgentMeta{AgentName: "Extractor", Usage: llm.TokenUsage{PromptTokens: 120, CompletionTokens: 30}})
	c.ObserveIngest(IngestParsed)
	c.ObserveIngest(IngestParsed)
	c.ObserveCommand("plan")

	assert.Equal(t, 2.0, promtestutil.ToFloat64(c.plansGenerated.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.plansGenerated.WithLabelValues("error")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.plansRelaxed))
	assert.Equal(t, 120.0, promtestutil.ToFloat64(c.llmTokens.WithLabelValues("Extractor", "prompt")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(c.recipesIngested.WithLabelValues(IngestParsed)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.telegramCommands.WithLabelValues("plan")))
	assert.Equal(t, 1, promtestutil.CollectAndCount(c.planDuration))

	var nilCollectors *Collectors
	assert.NotPanics(t, func() { nilCollectors.ObservePlan(true, true, time.Second) })
}

func TestSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), make([]byte, 2048), 0o644))

	h := GetSysHealth(dir)
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)

	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
}

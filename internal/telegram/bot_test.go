package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"diet-planner/internal/app"
	"diet-planner/internal/config"
	"diet-planner/internal/metrics"
	"diet-planner/internal/nutrition"
	"diet-planner/internal/planner"
	"diet-planner/internal/recipe"
	"diet-planner/internal/testutil"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID  int64 = 42
	adminID int64 = 7
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	db := testutil.NewTestDatabase(t)
	cfg := &config.Config{
		DataDir:                t.TempDir(),
		TelegramAllowedUserIDs: []int64{userID},
		AdminTelegramID:        adminID,
		Planner:                config.PlannerConfig{Days: 7, Seed: 3, TopCandidates: 3},
	}
	collectors := metrics.NewCollectors()
	a := app.NewApp(app.Deps{Config: cfg, DB: db, Collectors: collectors})
	sender := &fakeSender{}
	return New(sender, cfg, a, NewSessionRepository(db.SQL), collectors, nil), sender
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text, cmd, args string
		ok              bool
	}{
		{"/plan 3", "plan", "3", true},
		{"/Plan@diet_bot  5 ", "plan", "5", true},
		{"/analyze", "analyze", "", true},
		{" weight=80 ", "", "weight=80", false},
	}
	for _, tt := range tests {
		cmd, args, ok := parseCommand(tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
	}
}

func TestReplyFlow(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	assert.Contains(t, b.reply(ctx, userID, "/help"), "/plan [days]")
	assert.Contains(t, b.reply(ctx, userID, "/nope"), "Unknown command")

	assert.Contains(t, b.reply(ctx, userID, "/analyze"), "no meal plan yet")
	assert.Contains(t, b.reply(ctx, userID, "/shopping"), "no meal plan yet")

	out := b.reply(ctx, userID, "/profile weight=70 height=170 age=40 gender=male exercise_frequency=3 exercise_duration=30")
	assert.Contains(t, out, "Profile saved")

	out = b.reply(ctx, userID, "/profile weight=abc")
	assert.Contains(t, out, "invalid profile")

	assert.Contains(t, b.reply(ctx, userID, "/plan 0"), "Usage")
	assert.Contains(t, b.reply(ctx, userID, "/plan x"), "Usage")

	out = b.reply(ctx, userID, "/plan 2")
	assert.Contains(t, out, "2-day meal plan")
	assert.Contains(t, out, "Target: 2450 kcal")
	assert.Contains(t, out, "*Day 2*")

	out = b.reply(ctx, userID, "/analyze")
	assert.Contains(t, out, "Plan analysis")
	assert.Contains(t, out, "target 2450")

	assert.Contains(t, b.reply(ctx, userID, "/shopping"), "Shopping list")
}

func TestProfileSession(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	assert.Contains(t, b.reply(ctx, userID, "hello"), "/help")

	out := b.reply(ctx, userID, "/profile")
	assert.Contains(t, out, "Your profile")
	assert.Contains(t, out, "diet\\_type")

	out = b.reply(ctx, userID, "diet_type=Vegan; food_allergies=nuts")
	assert.Contains(t, out, "Profile saved")
	assert.Contains(t, out, "Allergies: nuts")

	// the session ends after one answer
	assert.Contains(t, b.reply(ctx, userID, "weight=90"), "/help")
}

func TestClipLink(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<h1>Mango Lassi</h1><div class="recipe-card" data-meal-type="snack">` +
			`<table class="nutrition"><tr><th>Calories</th><td>210</td></tr></table></div>`))
	}))
	defer ts.Close()

	b, _ := newTestBot(t)
	out := b.reply(context.Background(), userID, ts.URL+"/lassi")
	assert.Contains(t, out, "Recipe saved")
	assert.Contains(t, out, "*Mango Lassi* (snack, 210 kcal)")

	ts.Close()
	out = b.reply(context.Background(), userID, ts.URL+"/lassi")
	assert.Contains(t, out, "Error clipping recipe")
}

func TestMetricsCommand(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	assert.Contains(t, b.reply(ctx, userID, "/metrics"), "Admin only")

	out := b.reply(ctx, adminID, "/metrics")
	assert.Contains(t, out, "Usage & Health Report")
	assert.Contains(t, out, "_No data yet_")
	assert.Contains(t, out, "Generated: 0")
	assert.Contains(t, out, "Stored recipes: 0")
}

func updateBody(from int64, text string) string {
	return `{"update_id":1,"message":{"message_id":1,"from":{"id":` + itoa(from) + `,"is_bot":false,"first_name":"A"},` +
		`"chat":{"id":` + itoa(from) + `,"type":"private"},"date":0,"text":"` + text + `"}}`
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func TestServeHTTP(t *testing.T) {
	b, sender := newTestBot(t)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		b.ServeHTTP(rec, req)
		b.Wait()
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post(updateBody(999, "/help")))
	assert.Empty(t, sender.messages())

	assert.Equal(t, http.StatusOK, post(updateBody(userID, "/help")))
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, userID, msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msgs[0].ParseMode)

	assert.Equal(t, http.StatusOK, post(updateBody(adminID, "/help")))
	assert.Len(t, sender.messages(), 2)

	assert.Equal(t, http.StatusBadRequest, post("{"))

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFormatPlan(t *testing.T) {
	plan := &planner.MealPlan{
		Targets:     nutrition.Targets{DailyCalories: 2000, Ratios: nutrition.Ratios{Carb: 0.5, Protein: 0.2, Fat: 0.3}},
		ClusterName: "Active adults",
		Relaxed:     true,
		Days: []planner.DayPlan{{
			Day: 1,
			Meals: []planner.Meal{
				{Slot: "morning_snack", Recipe: &recipe.Recipe{Name: "Trail_Mix", Nutrition: recipe.Nutrition{Calories: 180}}},
				{Slot: "dinner"},
			},
			Totals: planner.DailyTotals{Calories: 180},
		}},
	}

	out := formatPlan(plan)
	assert.Contains(t, out, "Target: 2000 kcal · carbs 50% · protein 20% · fat 30%")
	assert.Contains(t, out, "relaxed")
	assert.Contains(t, out, "Profile: Active adults")
	assert.Contains(t, out, "• Morning Snack: Trail\\_Mix (180 kcal)")
	assert.Contains(t, out, "• Dinner: _No suitable recipe found_")
	assert.Contains(t, out, "Total: 180 kcal")

	failed := formatPlan(&planner.MealPlan{Error: "recipe data unavailable"})
	assert.Contains(t, failed, "Could not generate a plan")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short"))

	line := strings.Repeat("a", 99) + "\n"
	text := strings.Repeat(line, 100)
	chunks := splitMessage(text)
	require.Len(t, chunks, 3)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), maxMessageLen)
	}

	long := strings.Repeat("b", maxMessageLen+10)
	chunks = splitMessage(long)
	require.Len(t, chunks, 2)
	assert.Equal(t, long, strings.Join(chunks, ""))
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	repo := NewSessionRepository(db.SQL)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	s, err := repo.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, repo.Start(ctx, "u1", SessionProfileEdit, "", time.Minute))
	require.NoError(t, repo.Start(ctx, "u2", SessionProfileEdit, "", time.Hour))

	s, err = repo.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, SessionProfileEdit, s.SessionType)

	now = now.Add(2 * time.Minute)
	s, err = repo.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, s)

	now = now.Add(2 * time.Hour)
	n, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.End(ctx, "u2"))
}

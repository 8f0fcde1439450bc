// Package telegram is the chat front end: users keep a profile, request
// plans and read their analysis and shopping list.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"diet-planner/internal/app"
	"diet-planner/internal/config"
	"diet-planner/internal/metrics"
	"diet-planner/internal/planner"
	"diet-planner/internal/profile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	updateTimeout   = 2 * time.Minute
	profileEditTTL  = 10 * time.Minute
	metricsDays     = 7
	maxRequestBytes = 1 << 20
)

// Sender is the part of the Telegram API the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot routes Telegram updates to the application.
type Bot struct {
	api        Sender
	app        *app.App
	cfg        *config.Config
	sessions   *SessionRepository
	collectors *metrics.Collectors
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg *config.Config, a *app.App, sessions *SessionRepository, collectors *metrics.Collectors, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("description", resp.Description))

	return New(api, cfg, a, sessions, collectors, logger), nil
}

// New builds a Bot on an existing sender.
func New(api Sender, cfg *config.Config, a *app.App, sessions *SessionRepository, collectors *metrics.Collectors, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:        api,
		app:        a,
		cfg:        cfg,
		sessions:   sessions,
		collectors: collectors,
		logger:     logger,
	}
}

// ServeHTTP accepts webhook updates. Each message is handled in its own
// goroutine so Telegram gets its 200 right away.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if !b.allowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("telegram_user_id", msg.From.ID), zap.String("username", msg.From.UserName))
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()
		b.processMessage(ctx, msg)
	}()
}

// Wait blocks until in-flight messages are handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) allowed(id int64) bool {
	if id != 0 && id == b.cfg.AdminTelegramID {
		return true
	}
	for _, allowed := range b.cfg.TelegramAllowedUserIDs {
		if id == allowed {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling message", zap.Any("panic", r), zap.Int64("chat_id", msg.Chat.ID))
		}
	}()
	for _, text := range splitMessage(b.reply(ctx, msg.From.ID, msg.Text)) {
		b.send(msg.Chat.ID, text)
	}
}

func (b *Bot) send(chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(out); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// parseCommand splits "/plan@my_bot 3" into "plan" and "3".
func parseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text, false
	}
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head[1:], "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// reply handles one message and returns the Markdown answer.
func (b *Bot) reply(ctx context.Context, telegramID int64, text string) string {
	userID := strconv.FormatInt(telegramID, 10)
	cmd, args, isCommand := parseCommand(text)
	if !isCommand {
		return b.handleText(ctx, userID, args)
	}
	b.collectors.ObserveCommand(cmd)

	switch cmd {
	case "start", "help":
		return helpText
	case "profile":
		return b.handleProfile(ctx, userID, args)
	case "plan":
		return b.handlePlan(ctx, userID, args)
	case "analyze":
		return b.handleAnalyze(ctx, userID)
	case "shopping":
		return b.handleShopping(ctx, userID)
	case "metrics":
		if telegramID != b.cfg.AdminTelegramID {
			return "⛔ *Access Denied*: Admin only."
		}
		return b.handleMetrics(ctx)
	}
	return "Unknown command.\n\n" + helpText
}

func (b *Bot) handleText(ctx context.Context, userID, text string) string {
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return b.handleClip(ctx, userID, text)
	}

	session, err := b.sessions.Active(ctx, userID)
	if err != nil {
		b.logger.Error("failed to load session", zap.String("user_id", userID), zap.Error(err))
	}
	if session == nil || session.SessionType != SessionProfileEdit {
		return "Send /help to see what I can do."
	}
	if err := b.sessions.End(ctx, userID); err != nil {
		b.logger.Warn("failed to end session", zap.String("user_id", userID), zap.Error(err))
	}
	return b.updateProfile(ctx, userID, text)
}

func (b *Bot) handleClip(ctx context.Context, userID, url string) string {
	b.collectors.ObserveCommand("clip")
	rec, err := b.app.ClipURL(ctx, url)
	if err != nil {
		b.logger.Warn("failed to clip recipe", zap.String("user_id", userID), zap.String("url", url), zap.Error(err))
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		return fmt.Sprintf("❌ *Error clipping recipe:*\n```\n%s\n```", safeErr)
	}
	return fmt.Sprintf("✅ *Recipe saved!*\n\n*%s* (%s, %.0f kcal)", esc(rec.Name), rec.MealType, rec.Nutrition.Calories)
}

func (b *Bot) handleProfile(ctx context.Context, userID, args string) string {
	if args != "" {
		return b.updateProfile(ctx, userID, args)
	}

	p, err := b.app.Profile(ctx, userID)
	if err != nil {
		b.logger.Error("failed to load profile", zap.String("user_id", userID), zap.Error(err))
		return "❌ Could not load your profile."
	}
	if err := b.sessions.Start(ctx, userID, SessionProfileEdit, "", profileEditTTL); err != nil {
		b.logger.Warn("failed to start profile session", zap.String("user_id", userID), zap.Error(err))
	}
	return formatProfile(p) + "\nReply with `key=value` pairs to update it, e.g. `weight=72 exercise_frequency=3`.\n" +
		"Keys: " + esc(strings.Join(profile.Keys(), ", "))
}

func (b *Bot) updateProfile(ctx context.Context, userID, input string) string {
	p, err := b.app.UpdateProfile(ctx, userID, input)
	if errors.Is(err, profile.ErrInvalidProfile) {
		return "❌ " + esc(err.Error())
	}
	if err != nil {
		b.logger.Error("failed to update profile", zap.String("user_id", userID), zap.Error(err))
		return "❌ Could not save your profile."
	}
	return "✅ Profile saved.\n\n" + formatProfile(p)
}

func (b *Bot) handlePlan(ctx context.Context, userID, args string) string {
	days := 0
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 || n > 14 {
			return "Usage: /plan [days], with days between 1 and 14."
		}
		days = n
	}

	p, err := b.app.Profile(ctx, userID)
	if err != nil {
		b.logger.Error("failed to load profile", zap.String("user_id", userID), zap.Error(err))
		return "❌ Could not load your profile."
	}

	plan, err := b.app.GeneratePlan(ctx, p, days)
	if errors.Is(err, profile.ErrInvalidProfile) {
		return "❌ " + esc(err.Error()) + "\nFix it with /profile."
	}
	if err != nil && plan == nil {
		b.logger.Error("failed to generate plan", zap.String("user_id", userID), zap.Error(err))
		return "❌ Could not generate a plan right now."
	}
	if err != nil {
		b.logger.Warn("plan generated but not stored", zap.String("user_id", userID), zap.Error(err))
	}
	return formatPlan(plan)
}

func (b *Bot) handleAnalyze(ctx context.Context, userID string) string {
	report, err := b.app.AnalyzeLatest(ctx, userID)
	if errors.Is(err, planner.ErrPlanNotFound) {
		return "You have no meal plan yet. Send /plan first."
	}
	if err != nil {
		b.logger.Error("failed to analyze plan", zap.String("user_id", userID), zap.Error(err))
		return "❌ Could not analyze your plan."
	}
	return formatReport(report)
}

func (b *Bot) handleShopping(ctx context.Context, userID string) string {
	list, err := b.app.ShoppingList(ctx, userID)
	if errors.Is(err, planner.ErrPlanNotFound) {
		return "You have no meal plan yet. Send /plan first."
	}
	if err != nil {
		b.logger.Error("failed to build shopping list", zap.String("user_id", userID), zap.Error(err))
		return "❌ Could not build your shopping list."
	}
	return "🛒 " + list.Markdown()
}

func (b *Bot) handleMetrics(ctx context.Context) string {
	report, err := b.app.Metrics(ctx, metricsDays)
	if err != nil {
		b.logger.Error("failed to fetch metrics", zap.Error(err))
		return "❌ Error fetching metrics."
	}
	return formatMetrics(report)
}

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath    string
	LogLevel        string
	LogFormat       string
	Development     bool
	ModelBundlePath string
	RecipeCSVPath   string
	DataDir         string

	GhostURL        string
	GhostContentKey string
	GhostAdminKey   string
	GhostRecipeTag  string
	GhostUseAdmin   bool

	GeminiAPIKey      string
	GeminiModel       string
	GeminiRPM         int
	IngestConcurrency int

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	Port                   string

	Planner PlannerConfig
}

// PlannerConfig carries the meal-plan tunables. Zero values are never
// produced by NewFromEnv; every field has a default.
type PlannerConfig struct {
	Days                int
	Seed                int64
	MinStrictResults    int
	CuisineMinMatches   int
	AdvancedMinHard     int
	MinSnackRecipes     int
	MinSlotRecipes      int
	TopUpSample         int
	MinUnusedCandidates int
	TopCandidates       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_path", "data/diet-planner.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("development", false)
	v.SetDefault("model_bundle_path", "")
	v.SetDefault("recipe_csv_path", "data/recipes.csv")
	v.SetDefault("data_dir", "data")

	v.SetDefault("ghost_api_url", "")
	v.SetDefault("ghost_content_api_key", "")
	v.SetDefault("ghost_admin_api_key", "")
	v.SetDefault("ghost_recipe_tag", "recipe")
	v.SetDefault("ghost_use_admin", false)

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_rpm", 15)
	v.SetDefault("ingest_concurrency", 4)

	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_webhook_url", "")
	v.SetDefault("telegram_allowed_user_ids", "")
	v.SetDefault("admin_telegram_id", 0)
	v.SetDefault("port", "8080")

	v.SetDefault("planner_days", 7)
	v.SetDefault("planner_seed", 0)
	v.SetDefault("planner_min_strict_results", 5)
	v.SetDefault("planner_cuisine_min_matches", 10)
	v.SetDefault("planner_advanced_min_hard", 10)
	v.SetDefault("planner_min_snack_recipes", 3)
	v.SetDefault("planner_min_slot_recipes", 5)
	v.SetDefault("planner_top_up_sample", 5)
	v.SetDefault("planner_min_unused_candidates", 3)
	v.SetDefault("planner_top_candidates", 3)
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	// Missing .env is fine; real environment wins over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	allowed, err := parseIDList(v.GetString("telegram_allowed_user_ids"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	ghostAdminKey := v.GetString("ghost_admin_api_key")
	if ghostAdminKey == "" {
		// Fallback to content key if only one is provided
		ghostAdminKey = v.GetString("ghost_content_api_key")
	}

	cfg := &Config{
		DatabasePath:    v.GetString("database_path"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		Development:     v.GetBool("development"),
		ModelBundlePath: v.GetString("model_bundle_path"),
		RecipeCSVPath:   v.GetString("recipe_csv_path"),
		DataDir:         v.GetString("data_dir"),

		GhostURL:        strings.TrimRight(v.GetString("ghost_api_url"), "/"),
		GhostContentKey: v.GetString("ghost_content_api_key"),
		GhostAdminKey:   ghostAdminKey,
		GhostRecipeTag:  v.GetString("ghost_recipe_tag"),
		GhostUseAdmin:   v.GetBool("ghost_use_admin"),

		GeminiAPIKey:      v.GetString("gemini_api_key"),
		GeminiModel:       v.GetString("gemini_model"),
		GeminiRPM:         v.GetInt("gemini_rpm"),
		IngestConcurrency: v.GetInt("ingest_concurrency"),

		TelegramBotToken:       v.GetString("telegram_bot_token"),
		TelegramWebhookURL:     v.GetString("telegram_webhook_url"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        v.GetInt64("admin_telegram_id"),
		Port:                   v.GetString("port"),

		Planner: PlannerConfig{
			Days:                v.GetInt("planner_days"),
			Seed:                v.GetInt64("planner_seed"),
			MinStrictResults:    v.GetInt("planner_min_strict_results"),
			CuisineMinMatches:   v.GetInt("planner_cuisine_min_matches"),
			AdvancedMinHard:     v.GetInt("planner_advanced_min_hard"),
			MinSnackRecipes:     v.GetInt("planner_min_snack_recipes"),
			MinSlotRecipes:      v.GetInt("planner_min_slot_recipes"),
			TopUpSample:         v.GetInt("planner_top_up_sample"),
			MinUnusedCandidates: v.GetInt("planner_min_unused_candidates"),
			TopCandidates:       v.GetInt("planner_top_candidates"),
		},
	}

	if cfg.Planner.Days <= 0 {
		return nil, fmt.Errorf("PLANNER_DAYS must be positive, got %d", cfg.Planner.Days)
	}
	if cfg.Planner.TopCandidates <= 0 {
		return nil, fmt.Errorf("PLANNER_TOP_CANDIDATES must be positive, got %d", cfg.Planner.TopCandidates)
	}

	return cfg, nil
}

// RequireGhost checks the settings needed to read recipe posts from Ghost.
func (c *Config) RequireGhost() error {
	if c.GhostURL == "" {
		return fmt.Errorf("GHOST_API_URL environment variable not set")
	}
	if c.GhostContentKey == "" {
		return fmt.Errorf("GHOST_CONTENT_API_KEY environment variable not set")
	}
	return nil
}

// RequireGemini checks the settings needed by the LLM recipe extractor.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// RequireTelegram checks the settings needed by the bot server.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"diet-planner/internal/analysis"
	"diet-planner/internal/app"
	"diet-planner/internal/config"
	"diet-planner/internal/database"
	"diet-planner/internal/ghost"
	"diet-planner/internal/llm"
	"diet-planner/internal/logger"
	"diet-planner/internal/model"
	"diet-planner/internal/planner"
	"diet-planner/internal/profile"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: cfg.Development})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "plan":
		err = runPlan(ctx, cfg, log, args)
	case "analyze":
		err = runAnalyze(args)
	case "import-csv":
		err = runImportCSV(ctx, cfg, log, args)
	case "ingest":
		err = runIngest(ctx, cfg, log)
	case "recipes":
		err = runRecipes(ctx, cfg, log, args)
	case "clip":
		err = runClip(ctx, cfg, log, args)
	case "metrics-cleanup":
		err = runMetricsCleanup(ctx, cfg, log, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

// openApp opens the database and builds the application. The returned
// function releases the database.
func openApp(cfg *config.Config, log *zap.Logger, deps app.Deps) (*app.App, func(), error) {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.ModelBundlePath != "" {
		bundle, err := model.LoadBundle(cfg.ModelBundlePath)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		deps.Bundle = bundle
	}

	deps.Config = cfg
	deps.DB = db
	deps.Logger = log
	return app.NewApp(deps), func() { db.Close() }, nil
}

func runPlan(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	profilePath := fs.String("profile", "", "Path to the user profile JSON file (required)")
	days := fs.Int("days", cfg.Planner.Days, "Number of days to plan")
	seed := fs.Int64("seed", cfg.Planner.Seed, "Random seed, 0 for a time-based seed")
	out := fs.String("out", "", "Write the plan JSON to this file instead of stdout")
	user := fs.String("user", "cli", "User id the plan is stored under")
	fs.Parse(args)

	if *profilePath == "" {
		fs.Usage()
		return fmt.Errorf("-profile is required")
	}

	p, err := readProfile(*profilePath)
	if err != nil {
		return err
	}
	if p.UserID == "" {
		p.UserID = *user
	}

	cfg.Planner.Seed = *seed
	application, closeDB, err := openApp(cfg, log, app.Deps{})
	if err != nil {
		return err
	}
	defer closeDB()

	plan, err := application.GeneratePlan(ctx, p, *days)
	if err != nil && plan == nil {
		return err
	}
	if err != nil {
		log.Warn("plan was not stored", zap.Error(err))
	}

	if err := writeJSON(*out, plan); err != nil {
		return err
	}
	if plan.Failed() {
		return fmt.Errorf("plan generation failed: %s", plan.Error)
	}
	return nil
}

func readProfile(path string) (profile.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.UserProfile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return profile.UserProfile{}, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return profile.FromMap(m)
}

type analysisOutput struct {
	PlanID     string                       `json:"plan_id"`
	Analysis   analysis.NutritionalAnalysis `json:"analysis"`
	Comparison analysis.Comparison          `json:"comparison"`
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	planPath := fs.String("plan", "", "Path to a meal plan JSON file (required)")
	fs.Parse(args)

	if *planPath == "" {
		fs.Usage()
		return fmt.Errorf("-plan is required")
	}

	data, err := os.ReadFile(*planPath)
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}
	var plan planner.MealPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return fmt.Errorf("failed to parse plan JSON: %w", err)
	}

	report := app.Analyze(&plan)
	return writeJSON("", analysisOutput{
		PlanID:     plan.ID,
		Analysis:   report.Analysis,
		Comparison: report.Comparison,
	})
}

func runImportCSV(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("import-csv", flag.ExitOnError)
	file := fs.String("file", cfg.RecipeCSVPath, "Path to the recipe CSV file")
	fs.Parse(args)

	application, closeDB, err := openApp(cfg, log, app.Deps{})
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := application.ImportCSV(ctx, *file)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d recipes from %s.\n", n, *file)
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := cfg.RequireGhost(); err != nil {
		return err
	}

	deps := app.Deps{Ghost: ghost.NewClient(cfg)}
	if err := cfg.RequireGemini(); err != nil {
		log.Warn("LLM extractor disabled, only recipe-card posts will be ingested", zap.Error(err))
	} else {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		defer gemini.Close()
		deps.TextGen = gemini
	}

	application, closeDB, err := openApp(cfg, log, deps)
	if err != nil {
		return err
	}
	defer closeDB()

	report, err := application.IngestRecipes(ctx)
	fmt.Printf("Fetched %d posts: %d parsed, %d extracted, %d unchanged, %d failed.\n",
		report.Fetched, report.Parsed, report.Extracted, report.Skipped, report.Failed)
	return err
}

func runClip(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("clip", flag.ExitOnError)
	url := fs.String("url", "", "Recipe page to import (required)")
	fs.Parse(args)

	if *url == "" {
		fs.Usage()
		return fmt.Errorf("-url is required")
	}

	var deps app.Deps
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		defer gemini.Close()
		deps.TextGen = gemini
	}

	application, closeDB, err := openApp(cfg, log, deps)
	if err != nil {
		return err
	}
	defer closeDB()

	rec, err := application.ClipURL(ctx, *url)
	if err != nil {
		return err
	}
	fmt.Printf("Saved recipe %d: %s (%s, %.0f kcal).\n", rec.ID, rec.Name, rec.MealType, rec.Nutrition.Calories)
	return nil
}

func runRecipes(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("recipes", flag.ExitOnError)
	mealType := fs.String("meal-type", "", "Only list recipes of this meal type")
	id := fs.Int64("id", 0, "Print one recipe as JSON")
	fs.Parse(args)

	application, closeDB, err := openApp(cfg, log, app.Deps{})
	if err != nil {
		return err
	}
	defer closeDB()

	if *id != 0 {
		rec, err := application.Recipe(ctx, *id)
		if err != nil {
			return err
		}
		return writeJSON("", rec)
	}

	recipes, err := application.ListRecipes(ctx, *mealType)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMEAL\tKCAL\tPREP\tSOURCE")
	for _, r := range recipes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%d\t%s\n", r.ID, r.Name, r.MealType, r.Nutrition.Calories, r.PrepTime, r.Source)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d recipes.\n", len(recipes))
	return nil
}

func runMetricsCleanup(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := fs.Int("days", 30, "Keep records for the last N days")
	fs.Parse(args)

	application, closeDB, err := openApp(cfg, log, app.Deps{})
	if err != nil {
		return err
	}
	defer closeDB()

	affected, err := application.CleanupMetrics(ctx, *days)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println("Usage: diet-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan              Generate a meal plan: -profile file.json [-days N] [-seed S] [-out file]")
	fmt.Println("  analyze           Analyze a saved plan: -plan file.json")
	fmt.Println("  import-csv        Import recipes from a CSV file: -file recipes.csv")
	fmt.Println("  ingest            Fetch and normalize recipes from Ghost")
	fmt.Println("  recipes           List stored recipes: [-meal-type T] [-id N]")
	fmt.Println("  clip              Import a recipe from a web page: -url URL")
	fmt.Println("  metrics-cleanup   Remove old metric records: -days N")
}

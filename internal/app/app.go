// Package app wires the planning core to storage, recipe sources and the
// model bundle. Both the CLI and the bot drive the system through App.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"diet-planner/internal/analysis"
	"diet-planner/internal/clipper"
	"diet-planner/internal/config"
	"diet-planner/internal/database"
	"diet-planner/internal/filter"
	"diet-planner/internal/ghost"
	"diet-planner/internal/llm"
	"diet-planner/internal/metrics"
	"diet-planner/internal/model"
	"diet-planner/internal/nutrition"
	"diet-planner/internal/planner"
	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"
	"diet-planner/internal/shopping"

	"go.uber.org/zap"
)

// Deps are the collaborators an App is built from. Only Config and DB are
// required; Ghost and TextGen are needed for ingestion only.
type Deps struct {
	Config     *config.Config
	DB         *database.DB
	Logger     *zap.Logger
	Bundle     *model.Bundle
	Collectors *metrics.Collectors
	Ghost      ghost.Client
	TextGen    llm.TextGenerator
}

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	db           *database.DB
	bundle       *model.Bundle
	collectors   *metrics.Collectors
	ghostClient  ghost.Client
	extractor    *recipe.Extractor
	clipper      *clipper.Clipper
	recipeRepo   *recipe.Repository
	profileRepo  *profile.Repository
	planRepo     *planner.PlanRepository
	shoppingRepo *shopping.Repository
	metricsStore *metrics.Store

	mu      sync.RWMutex
	recipes recipe.Set

	// serializes recipe writes during concurrent ingestion
	saveMu sync.Mutex
}

// NewApp creates and initializes a new App instance.
func NewApp(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:          d.Config,
		logger:       logger,
		db:           d.DB,
		bundle:       d.Bundle,
		collectors:   d.Collectors,
		ghostClient:  d.Ghost,
		recipeRepo:   recipe.NewRepository(d.DB.SQL, logger),
		profileRepo:  profile.NewRepository(d.DB.SQL),
		planRepo:     planner.NewPlanRepository(d.DB.SQL),
		shoppingRepo: shopping.NewRepository(d.DB.SQL),
		metricsStore: metrics.NewStore(d.DB.SQL),
	}
	if d.TextGen != nil {
		a.extractor = recipe.NewExtractor(d.TextGen)
	}
	a.clipper = clipper.NewClipper(a.extractor)
	return a
}

// Recipes returns the recipe dataset. The first call loads it from the
// database; an empty database falls back to the CSV file at
// RecipeCSVPath, then to the built-in generated set.
func (a *App) Recipes(ctx context.Context) (recipe.Set, error) {
	a.mu.RLock()
	cached := a.recipes
	a.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recipes != nil {
		return a.recipes, nil
	}

	recipes, err := a.recipeRepo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 && a.cfg.RecipeCSVPath != "" {
		if _, statErr := os.Stat(a.cfg.RecipeCSVPath); statErr == nil {
			recipes, err = recipe.LoadCSVFile(a.cfg.RecipeCSVPath)
			if err != nil {
				return nil, err
			}
			a.logger.Info("loaded recipes from CSV", zap.String("path", a.cfg.RecipeCSVPath), zap.Int("count", len(recipes)))
		}
	}
	if len(recipes) == 0 {
		recipes = recipe.Fallback(a.newRand())
		a.logger.Warn("no recipe dataset found, using generated recipes", zap.Int("count", len(recipes)))
	}

	a.recipes = recipes
	return recipes, nil
}

func (a *App) invalidateRecipes() {
	a.mu.Lock()
	a.recipes = nil
	a.mu.Unlock()
}

func (a *App) newRand() *rand.Rand {
	seed := a.cfg.Planner.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (a *App) plannerOptions() planner.Options {
	pc := a.cfg.Planner
	return planner.Options{
		MinSnackRecipes:     pc.MinSnackRecipes,
		MinSlotRecipes:      pc.MinSlotRecipes,
		TopUpSample:         pc.TopUpSample,
		MinUnusedCandidates: pc.MinUnusedCandidates,
		TopCandidates:       pc.TopCandidates,
		Filter: filter.Options{
			MinStrictResults:  pc.MinStrictResults,
			CuisineMinMatches: pc.CuisineMinMatches,
			AdvancedMinHard:   pc.AdvancedMinHard,
		},
		Rand:   a.newRand(),
		Logger: a.logger,
	}
}

// GeneratePlan assigns the user's cluster, screens recipes through the
// model bundle and generates, stores and records a plan. A non-positive
// days uses the configured default. Plans that failed inside the planner
// are returned with their Error set and a nil error.
func (a *App) GeneratePlan(ctx context.Context, p profile.UserProfile, days int) (*planner.MealPlan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = a.cfg.Planner.Days
	}
	start := time.Now()

	recipes, err := a.Recipes(ctx)
	if err != nil {
		// The planner reports the missing data in the plan itself.
		a.logger.Error("failed to load recipes", zap.Error(err))
	}

	cluster, err := a.bundle.AssignCluster(p)
	if err != nil {
		a.logger.Warn("cluster assignment failed, using cluster 0", zap.String("user_id", p.UserID), zap.Error(err))
		cluster = 0
	}
	candidates, err := a.bundle.SuitableRecipes(recipes, cluster)
	if err != nil {
		a.logger.Warn("recipe classifier failed, using all recipes", zap.Error(err))
	}

	plan := planner.New(a.plannerOptions()).GenerateMealPlan(p, cluster, candidates, days)
	if cp, ok := a.bundle.Profile(cluster); ok {
		plan.ClusterName = cp.Name
		plan.ClusterDescription = cp.Description
	}
	elapsed := time.Since(start)

	if err := a.planRepo.Save(ctx, plan); err != nil {
		return plan, fmt.Errorf("failed to save meal plan: %w", err)
	}

	a.collectors.ObservePlan(plan.Failed(), plan.Relaxed, elapsed)
	if err := a.metricsStore.RecordPlan(ctx, metrics.PlanMetric{
		UserID:     p.UserID,
		Days:       days,
		Candidates: plan.CandidateCount,
		Relaxed:    plan.Relaxed,
		Failed:     plan.Failed(),
		LatencyMS:  elapsed.Milliseconds(),
	}); err != nil {
		a.logger.Warn("failed to record plan metric", zap.Error(err))
	}

	a.logger.Info("meal plan generated",
		zap.String("plan_id", plan.ID),
		zap.String("user_id", p.UserID),
		zap.Int("cluster", cluster),
		zap.Int("days", len(plan.Days)),
		zap.Bool("relaxed", plan.Relaxed),
		zap.String("error", plan.Error),
		zap.Duration("elapsed", elapsed),
	)
	return plan, nil
}

// PlanReport is the analysis of a stored plan against its targets.
type PlanReport struct {
	Plan       *planner.MealPlan
	Analysis   analysis.NutritionalAnalysis
	Comparison analysis.Comparison
}

// Analyze summarizes a plan and compares it with the plan's own targets.
func Analyze(plan *planner.MealPlan) PlanReport {
	a := analysis.AnalyzeMealPlan(plan)
	var targets nutrition.Targets
	if plan != nil {
		targets = plan.Targets
	}
	return PlanReport{Plan: plan, Analysis: a, Comparison: analysis.Compare(a, targets)}
}

// AnalyzeLatest analyzes the user's most recent plan. It returns
// planner.ErrPlanNotFound when the user has none.
func (a *App) AnalyzeLatest(ctx context.Context, userID string) (PlanReport, error) {
	plan, err := a.planRepo.Latest(ctx, userID)
	if err != nil {
		return PlanReport{}, err
	}
	return Analyze(plan), nil
}

// ShoppingList returns the shopping list of the user's latest plan,
// building and storing it on first request.
func (a *App) ShoppingList(ctx context.Context, userID string) (*shopping.ShoppingList, error) {
	plan, err := a.planRepo.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := a.shoppingRepo.GetByMealPlanID(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	if list != nil {
		return list, nil
	}

	list = shopping.Build(plan)
	if err := a.shoppingRepo.Save(ctx, list); err != nil {
		a.logger.Warn("failed to save shopping list", zap.String("plan_id", plan.ID), zap.Error(err))
	}
	return list, nil
}

// Profile returns the stored profile for userID.
func (a *App) Profile(ctx context.Context, userID string) (profile.UserProfile, error) {
	return a.profileRepo.Get(ctx, userID)
}

// UpdateProfile applies "key=value" pairs to the stored profile and saves
// it when the result is valid.
func (a *App) UpdateProfile(ctx context.Context, userID, input string) (profile.UserProfile, error) {
	p, err := a.profileRepo.Get(ctx, userID)
	if err != nil {
		return profile.UserProfile{}, err
	}
	if err := p.ParseKeyValues(input); err != nil {
		return p, err
	}
	p.UserID = userID
	if err := p.Validate(); err != nil {
		return p, err
	}
	if err := a.profileRepo.Save(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

// ImportCSV stores the recipes of a CSV file and returns how many were saved.
func (a *App) ImportCSV(ctx context.Context, path string) (int, error) {
	recipes, err := recipe.LoadCSVFile(path)
	if err != nil {
		return 0, err
	}

	a.saveMu.Lock()
	err = a.recipeRepo.SaveAll(ctx, recipes)
	a.saveMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("failed to import recipes: %w", err)
	}

	a.invalidateRecipes()
	a.logger.Info("recipes imported", zap.String("path", path), zap.Int("count", len(recipes)))
	return len(recipes), nil
}

// ClipURL imports the recipe on a web page into the dataset.
func (a *App) ClipURL(ctx context.Context, url string) (*recipe.Recipe, error) {
	res, err := a.clipper.ClipURL(ctx, url)
	if res.Meta != nil && res.Meta.AgentName != "" {
		a.collectors.ObserveLLM(*res.Meta)
		if recErr := a.metricsStore.RecordMeta(ctx, *res.Meta); recErr != nil {
			a.logger.Warn("failed to record clipper metrics", zap.Error(recErr))
		}
	}
	if err != nil {
		a.collectors.ObserveIngest(metrics.IngestFailed)
		return nil, fmt.Errorf("failed to clip %s: %w", url, err)
	}

	rec := res.Recipe
	if err := a.saveRecipe(ctx, &rec); err != nil {
		a.collectors.ObserveIngest(metrics.IngestFailed)
		return nil, err
	}
	if res.Meta != nil {
		a.collectors.ObserveIngest(metrics.IngestExtracted)
	} else {
		a.collectors.ObserveIngest(metrics.IngestParsed)
	}

	a.invalidateRecipes()
	a.logger.Info("recipe clipped", zap.String("url", url), zap.Int64("recipe_id", rec.ID), zap.String("name", rec.Name))
	return &rec, nil
}

// ListRecipes returns the stored recipes, optionally of one meal type.
func (a *App) ListRecipes(ctx context.Context, mealType string) (recipe.Set, error) {
	return a.recipeRepo.List(ctx, mealType)
}

// Recipe returns a stored recipe, or recipe.ErrNotFound.
func (a *App) Recipe(ctx context.Context, id int64) (*recipe.Recipe, error) {
	return a.recipeRepo.Get(ctx, id)
}

// MetricsReport is the usage summary shown to administrators.
type MetricsReport struct {
	Usage   []metrics.DailyUsage
	Plans   metrics.PlanStats
	Recipes int
	Health  metrics.SysHealth
}

// Metrics summarizes the last days of activity.
func (a *App) Metrics(ctx context.Context, days int) (MetricsReport, error) {
	usage, err := a.metricsStore.GetDailyUsage(ctx, days)
	if err != nil {
		return MetricsReport{}, err
	}
	plans, err := a.metricsStore.GetPlanStats(ctx, days)
	if err != nil {
		return MetricsReport{}, err
	}
	count, err := a.recipeRepo.Count(ctx)
	if err != nil {
		return MetricsReport{}, err
	}
	return MetricsReport{
		Usage:   usage,
		Plans:   plans,
		Recipes: count,
		Health:  metrics.GetSysHealth(a.cfg.DataDir),
	}, nil
}

// CleanupMetrics deletes metric records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("retention days must be positive")
	}
	return a.metricsStore.Cleanup(ctx, days)
}

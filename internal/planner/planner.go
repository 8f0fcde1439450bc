// Package planner assembles multi-day meal plans from a filtered recipe set.
package planner

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"diet-planner/internal/filter"
	"diet-planner/internal/nutrition"
	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDataUnavailable is reported when there are no recipes to plan from.
var ErrDataUnavailable = errors.New("recipe data unavailable")

// DefaultDays is the plan length used when the caller has no preference.
const DefaultDays = 7

// Options holds the selection tunables.
type Options struct {
	// MinSnackRecipes is the snack count below which snack slots also draw
	// from breakfast recipes.
	MinSnackRecipes int
	// MinSlotRecipes is the pool size below which a slot is topped up with
	// recipes of other meal types.
	MinSlotRecipes int
	// TopUpSample is the most recipes a top-up adds.
	TopUpSample int
	// MinUnusedCandidates is the unused count below which repeats are allowed.
	MinUnusedCandidates int
	// TopCandidates is how many of the closest recipes a pick is drawn from.
	TopCandidates int

	Filter filter.Options
	Rand   *rand.Rand
	Logger *zap.Logger
}

// DefaultOptions returns the standard tunables. Rand is left nil, so New
// seeds a source from the clock.
func DefaultOptions() Options {
	return Options{
		MinSnackRecipes:     3,
		MinSlotRecipes:      5,
		TopUpSample:         5,
		MinUnusedCandidates: 3,
		TopCandidates:       3,
		Filter:              filter.DefaultOptions(),
	}
}

// Planner generates meal plans. It is not safe for concurrent use because
// of its random source.
type Planner struct {
	opts   Options
	filter *filter.Filter
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates a Planner. Non-positive tunables take their defaults.
func New(opts Options) *Planner {
	def := DefaultOptions()
	for _, f := range []struct{ v, d *int }{
		{&opts.MinSnackRecipes, &def.MinSnackRecipes},
		{&opts.MinSlotRecipes, &def.MinSlotRecipes},
		{&opts.TopUpSample, &def.TopUpSample},
		{&opts.MinUnusedCandidates, &def.MinUnusedCandidates},
		{&opts.TopCandidates, &def.TopCandidates},
	} {
		if *f.v <= 0 {
			*f.v = *f.d
		}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Planner{
		opts:   opts,
		filter: filter.New(opts.Filter, opts.Logger),
		rng:    opts.Rand,
		logger: opts.Logger,
	}
}

// GenerateMealPlan builds a plan of the given number of days. It never
// returns an error: failures, including panics, are reported in the
// plan's Error field and such a plan has no days.
func (pl *Planner) GenerateMealPlan(p profile.UserProfile, clusterID int, recipes recipe.Set, days int) (plan *MealPlan) {
	userID := p.UserID
	if userID == "" {
		userID = "unknown"
	}
	fail := func(err error) *MealPlan {
		pl.logger.Error("meal plan generation failed", zap.String("user_id", userID), zap.Error(err))
		return &MealPlan{
			ID:        uuid.NewString(),
			UserID:    userID,
			ClusterID: clusterID,
			Days:      []DayPlan{},
			Error:     err.Error(),
			CreatedAt: time.Now().UTC(),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			plan = fail(fmt.Errorf("unexpected failure generating meal plan: %v", r))
		}
	}()

	if len(recipes) == 0 {
		return fail(ErrDataUnavailable)
	}
	if days < 1 {
		return fail(fmt.Errorf("invalid number of days: %d", days))
	}

	pattern := PatternFor(p)
	targets := nutrition.TargetsFor(p)
	filtered := pl.filter.Apply(recipes, p, true)

	pl.logger.Debug("planning",
		zap.String("user_id", userID),
		zap.String("pattern", pattern.Name),
		zap.Int("daily_calories", targets.DailyCalories),
		zap.Int("candidates", len(filtered.Recipes)),
		zap.Bool("relaxed", filtered.Relaxed))

	pools := pl.slotPools(pattern, filtered.Recipes)
	used := make(map[int64]bool)

	plan = &MealPlan{
		ID:             uuid.NewString(),
		UserID:         userID,
		ClusterID:      clusterID,
		Pattern:        pattern.Name,
		Targets:        targets,
		Relaxed:        filtered.Relaxed,
		CandidateCount: len(filtered.Recipes),
		Days:           make([]DayPlan, 0, days),
		CreatedAt:      time.Now().UTC(),
	}

	for day := 1; day <= days; day++ {
		meals := make([]Meal, 0, len(pattern.Slots))
		for _, slot := range pattern.Slots {
			target := float64(targets.DailyCalories) * slot.Fraction
			meal := Meal{Slot: slot.Name, Timing: slot.Timing}
			if picked, ok := pl.pick(pools[slot.Name], used, target); ok {
				used[picked.ID] = true
				meal.Recipe = &picked
			}
			meals = append(meals, meal)
		}
		plan.Days = append(plan.Days, DayPlan{Day: day, Meals: meals, Totals: totalsFor(meals)})
	}
	plan.Overall = overallFor(plan.Days)

	return plan
}

// slotPools partitions the candidates per slot. Snack slots fall back to
// breakfast recipes and thin pools are topped up from other meal types.
// Pools are built in slot order so a seeded source gives the same plan.
func (pl *Planner) slotPools(pattern MealPattern, candidates recipe.Set) map[string]recipe.Set {
	pools := make(map[string]recipe.Set, len(pattern.Slots))
	for _, slot := range pattern.Slots {
		if _, ok := pools[slot.Name]; ok {
			continue
		}
		pool := candidates.ByMealType(slot.MealType)
		if slot.MealType == recipe.MealSnack && len(pool) < pl.opts.MinSnackRecipes {
			pool = append(pool, candidates.ByMealType(recipe.MealBreakfast)...)
		}
		if len(pool) < pl.opts.MinSlotRecipes {
			inPool := make(map[int64]bool, len(pool))
			for _, r := range pool {
				inPool[r.ID] = true
			}
			others := candidates.Where(func(r recipe.Recipe) bool { return !inPool[r.ID] })
			pool = append(pool, pl.sample(others, pl.opts.TopUpSample)...)
		}
		pools[slot.Name] = pool
	}
	return pools
}

func (pl *Planner) sample(s recipe.Set, n int) recipe.Set {
	if n > len(s) {
		n = len(s)
	}
	out := make(recipe.Set, 0, n)
	for _, i := range pl.rng.Perm(len(s))[:n] {
		out = append(out, s[i])
	}
	return out
}

// pick draws uniformly from the TopCandidates recipes closest to target
// calories, preferring recipes not yet used in the plan.
func (pl *Planner) pick(pool recipe.Set, used map[int64]bool, target float64) (recipe.Recipe, bool) {
	unused := pool.Where(func(r recipe.Recipe) bool { return !used[r.ID] })
	candidates := pool
	if len(unused) >= pl.opts.MinUnusedCandidates {
		candidates = unused
	}
	if len(candidates) == 0 {
		return recipe.Recipe{}, false
	}

	ranked := make(recipe.Set, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Nutrition.Calories-target) < math.Abs(ranked[j].Nutrition.Calories-target)
	})

	top := pl.opts.TopCandidates
	if top > len(ranked) {
		top = len(ranked)
	}
	return ranked[pl.rng.Intn(top)], true
}

func roundEven(v float64) float64 { return math.RoundToEven(v) }

package analysis

import (
	"math/rand"
	"testing"

	"diet-planner/internal/nutrition"
	"diet-planner/internal/planner"
	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meal(id int64, name string, n recipe.Nutrition) planner.Meal {
	return planner.Meal{Slot: "lunch", Recipe: &recipe.Recipe{ID: id, Name: name, Nutrition: n}}
}

func TestAnalyzeEmptyPlan(t *testing.T) {
	assert.Equal(t, NutritionalAnalysis{}, AnalyzeMealPlan(&planner.MealPlan{}))
	assert.Equal(t, NutritionalAnalysis{}, AnalyzeMealPlan(nil))

	failed := &planner.MealPlan{Error: planner.ErrDataUnavailable.Error()}
	a := AnalyzeMealPlan(failed)
	assert.Zero(t, a.MealCoverage)
	assert.Zero(t, a.VarietyScore)
}

func TestAnalyzeMealPlan(t *testing.T) {
	plan := &planner.MealPlan{Days: []planner.DayPlan{
		{Day: 1, Meals: []planner.Meal{
			meal(1, "Oats", recipe.Nutrition{Calories: 400, Protein: 20, Carbs: 60, Fat: 10, Sodium: 100, Fiber: 8}),
			meal(2, "Salad", recipe.Nutrition{Calories: 600, Protein: 30, Carbs: 40, Fat: 30, Sodium: 500, Fiber: 6}),
		}},
		{Day: 2, Meals: []planner.Meal{
			meal(1, "Oats", recipe.Nutrition{Calories: 400, Protein: 20, Carbs: 60, Fat: 10, Sodium: 100, Fiber: 8}),
			{Slot: "dinner"},
		}},
	}}

	a := AnalyzeMealPlan(plan)
	assert.Equal(t, 2, a.Days)
	assert.Equal(t, 700.0, a.AvgCalories)
	assert.Equal(t, 35.0, a.AvgProtein)
	assert.Equal(t, 80.0, a.AvgCarbs)
	assert.Equal(t, 25.0, a.AvgFat)
	assert.Equal(t, 350.0, a.AvgSodium)
	assert.Equal(t, 11.0, a.AvgFiber)

	// 140 + 320 + 225 = 685
	assert.Equal(t, 46.7, a.CarbsPercent)
	assert.Equal(t, 20.4, a.ProteinPercent)
	assert.Equal(t, 32.8, a.FatPercent)

	assert.Equal(t, 2, a.UniqueRecipes)
	assert.Equal(t, 3, a.TotalMeals)
	assert.Equal(t, 66.7, a.VarietyScore)
	assert.Equal(t, 75.0, a.MealCoverage)
}

func TestAnalyzeAllPlaceholders(t *testing.T) {
	plan := &planner.MealPlan{Days: []planner.DayPlan{{Day: 1, Meals: []planner.Meal{{Slot: "lunch"}, {Slot: "dinner"}}}}}
	a := AnalyzeMealPlan(plan)
	assert.Zero(t, a.MealCoverage)
	assert.Zero(t, a.VarietyScore)
	assert.Zero(t, a.CarbsPercent)
}

func TestAnalyzeGeneratedPlan(t *testing.T) {
	opts := planner.DefaultOptions()
	opts.Rand = rand.New(rand.NewSource(11))
	plan := planner.New(opts).GenerateMealPlan(profile.UserProfile{}, 0, recipe.Fallback(rand.New(rand.NewSource(11))), 7)
	require.False(t, plan.Failed(), plan.Error)

	a := AnalyzeMealPlan(plan)
	assert.Equal(t, 100.0, a.MealCoverage)
	assert.Equal(t, 21, a.TotalMeals)
	assert.Equal(t, 100.0, a.VarietyScore, "27 fallback recipes cover 21 slots without repeats")
	assert.InDelta(t, plan.Overall.AvgDailyCalories, a.AvgCalories, 0.5)
}

func TestCompare(t *testing.T) {
	a := NutritionalAnalysis{Days: 7, AvgCalories: 2205, CarbsPercent: 48.2, ProteinPercent: 22.1, FatPercent: 29.7}
	c := Compare(a, nutrition.Targets{DailyCalories: 2450, Ratios: nutrition.Ratios{Carb: 0.5, Protein: 0.25, Fat: 0.25}})

	assert.Equal(t, 2450, c.TargetCalories)
	assert.Equal(t, -245.0, c.CalorieDelta)
	assert.Equal(t, -10.0, c.CalorieDeltaPct)
	assert.True(t, c.WithinCalorieBand)
	assert.Equal(t, -1.8, c.CarbsDeltaPts)
	assert.Equal(t, -2.9, c.ProteinDeltaPts)
	assert.Equal(t, 4.7, c.FatDeltaPts)

	empty := Compare(NutritionalAnalysis{}, nutrition.Targets{DailyCalories: 2000})
	assert.Equal(t, Comparison{TargetCalories: 2000}, empty)
}

// Package analysis summarizes a finished meal plan.
package analysis

import (
	"diet-planner/internal/nutrition"
	"diet-planner/internal/planner"
	"diet-planner/internal/recipe"
)

// NutritionalAnalysis is the summary of a plan. All values are zero for a
// plan without days.
type NutritionalAnalysis struct {
	Days int `json:"days"`

	AvgCalories float64 `json:"avg_calories"`
	AvgProtein  float64 `json:"avg_protein"`
	AvgCarbs    float64 `json:"avg_carbs"`
	AvgFat      float64 `json:"avg_fat"`
	AvgSodium   float64 `json:"avg_sodium"`
	AvgFiber    float64 `json:"avg_fiber"`

	ProteinPercent float64 `json:"protein_pct"`
	CarbsPercent   float64 `json:"carbs_pct"`
	FatPercent     float64 `json:"fat_pct"`

	UniqueRecipes int     `json:"unique_recipes"`
	TotalMeals    int     `json:"total_meals"`
	VarietyScore  float64 `json:"variety_score"`
	MealCoverage  float64 `json:"meal_coverage"`
}

// AnalyzeMealPlan computes averages, macro split, variety and coverage.
// It works on any plan, including ones decoded from storage.
func AnalyzeMealPlan(plan *planner.MealPlan) NutritionalAnalysis {
	var a NutritionalAnalysis
	if plan == nil || len(plan.Days) == 0 {
		return a
	}

	var sum recipe.Nutrition
	names := make(map[string]bool)
	slots := 0
	for _, day := range plan.Days {
		for _, m := range day.Meals {
			slots++
			if !m.Filled() {
				continue
			}
			sum = sum.Add(m.Recipe.Nutrition)
			names[m.Recipe.Name] = true
			a.TotalMeals++
		}
	}

	n := float64(len(plan.Days))
	a.Days = len(plan.Days)
	a.AvgCalories = sum.Calories / n
	a.AvgProtein = sum.Protein / n
	a.AvgCarbs = sum.Carbs / n
	a.AvgFat = sum.Fat / n
	a.AvgSodium = sum.Sodium / n
	a.AvgFiber = sum.Fiber / n

	if c, p, f, ok := nutrition.MacroPercentages(a.AvgProtein, a.AvgCarbs, a.AvgFat); ok {
		a.CarbsPercent, a.ProteinPercent, a.FatPercent = c, p, f
	}

	a.UniqueRecipes = len(names)
	if a.TotalMeals > 0 {
		a.VarietyScore = nutrition.Round1(float64(a.UniqueRecipes) / float64(a.TotalMeals) * 100)
	}
	if slots > 0 {
		a.MealCoverage = nutrition.Round1(float64(a.TotalMeals) / float64(slots) * 100)
	}
	return a
}

// Comparison is how an analyzed plan measures up to its targets.
// Deltas are actual minus target, in percentage points for macros.
type Comparison struct {
	TargetCalories    int     `json:"target_calories"`
	CalorieDelta      float64 `json:"calorie_delta"`
	CalorieDeltaPct   float64 `json:"calorie_delta_pct"`
	CarbsDeltaPts     float64 `json:"carbs_delta_pts"`
	ProteinDeltaPts   float64 `json:"protein_delta_pts"`
	FatDeltaPts       float64 `json:"fat_delta_pts"`
	WithinCalorieBand bool    `json:"within_calorie_band"`
}

// CalorieBandPct is the deviation still counted as on target.
const CalorieBandPct = 10.0

// Compare reports the deviation of a plan's averages from its targets.
func Compare(a NutritionalAnalysis, t nutrition.Targets) Comparison {
	c := Comparison{TargetCalories: t.DailyCalories}
	if a.Days == 0 {
		return c
	}
	c.CalorieDelta = nutrition.Round1(a.AvgCalories - float64(t.DailyCalories))
	if t.DailyCalories > 0 {
		c.CalorieDeltaPct = nutrition.Round1(c.CalorieDelta / float64(t.DailyCalories) * 100)
	}
	c.CarbsDeltaPts = nutrition.Round1(a.CarbsPercent - t.Carb*100)
	c.ProteinDeltaPts = nutrition.Round1(a.ProteinPercent - t.Protein*100)
	c.FatDeltaPts = nutrition.Round1(a.FatPercent - t.Fat*100)
	c.WithinCalorieBand = c.CalorieDeltaPct >= -CalorieBandPct && c.CalorieDeltaPct <= CalorieBandPct
	return c
}

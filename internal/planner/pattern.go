package planner

import (
	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"
)

// Pattern names.
const (
	PatternRegular             = "regular"
	PatternSmallFrequent       = "small_frequent"
	PatternIntermittentFasting = "intermittent_fasting"
)

// MealSlot is one meal in the daily schedule.
type MealSlot struct {
	Name     string
	MealType string
	Timing   string
	Fraction float64
}

// MealPattern is a named, ordered daily schedule whose fractions sum to 1.
type MealPattern struct {
	Name  string
	Slots []MealSlot
}

var patterns = map[string]MealPattern{
	PatternSmallFrequent: {
		Name: PatternSmallFrequent,
		Slots: []MealSlot{
			{Name: "breakfast", MealType: recipe.MealBreakfast, Timing: "7-8 AM", Fraction: 0.2},
			{Name: "morning_snack", MealType: recipe.MealSnack, Timing: "10-11 AM", Fraction: 0.1},
			{Name: "lunch", MealType: recipe.MealLunch, Timing: "12-1 PM", Fraction: 0.3},
			{Name: "afternoon_snack", MealType: recipe.MealSnack, Timing: "3-4 PM", Fraction: 0.1},
			{Name: "dinner", MealType: recipe.MealDinner, Timing: "6-7 PM", Fraction: 0.3},
		},
	},
	PatternIntermittentFasting: {
		Name: PatternIntermittentFasting,
		Slots: []MealSlot{
			{Name: "lunch", MealType: recipe.MealLunch, Timing: "12-2 PM", Fraction: 0.4},
			{Name: "dinner", MealType: recipe.MealDinner, Timing: "6-8 PM", Fraction: 0.6},
		},
	},
	PatternRegular: {
		Name: PatternRegular,
		Slots: []MealSlot{
			{Name: "breakfast", MealType: recipe.MealBreakfast, Timing: "7-9 AM", Fraction: 0.25},
			{Name: "lunch", MealType: recipe.MealLunch, Timing: "12-2 PM", Fraction: 0.35},
			{Name: "dinner", MealType: recipe.MealDinner, Timing: "6-8 PM", Fraction: 0.4},
		},
	},
}

// PatternFor picks the schedule from the meal size preference, then the
// diet type. Meal size wins when both apply.
func PatternFor(p profile.UserProfile) MealPattern {
	switch {
	case p.MealSizePreference == "Small frequent meals":
		return patterns[PatternSmallFrequent]
	case p.DietType == "Intermittent Fasting":
		return patterns[PatternIntermittentFasting]
	}
	return patterns[PatternRegular]
}

// PatternByName looks up a schedule by name.
func PatternByName(name string) (MealPattern, bool) {
	pat, ok := patterns[name]
	return pat, ok
}

// Package nutrition derives daily calorie and macronutrient targets from a
// user profile.
package nutrition

import (
	"math"
	"strings"

	"diet-planner/internal/profile"
)

// Activity multipliers keyed by weekly exercise score.
const (
	lightActivity    = 1.375
	moderateActivity = 1.55
	highActivity     = 1.725

	lossFactor     = 0.85
	gainFactor     = 1.15
	diabetesFactor = 0.95

	calorieStep = 50
)

// Ratios are the fractions of daily calories from each macronutrient.
// They always sum to 1.
type Ratios struct {
	Carb    float64 `json:"carb_ratio"`
	Protein float64 `json:"protein_ratio"`
	Fat     float64 `json:"fat_ratio"`
}

// Targets is what a meal plan is built towards.
type Targets struct {
	DailyCalories int `json:"daily_calories"`
	Ratios
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p profile.UserProfile) float64 {
	base := 10*p.WeightKg() + 6.25*p.HeightCm() - 5*p.AgeYears()
	if strings.EqualFold(p.GenderOrDefault(), "female") {
		return base - 161
	}
	return base + 5
}

// ActivityMultiplier maps the weekly exercise score to a TDEE factor.
func ActivityMultiplier(p profile.UserProfile) float64 {
	switch score := p.ActivityScore(); {
	case score < 60:
		return lightActivity
	case score < 120:
		return moderateActivity
	default:
		return highActivity
	}
}

// GoalFactor is the deficit or surplus applied for weight loss or gain.
func GoalFactor(p profile.UserProfile) float64 {
	history := strings.ToLower(p.WeightHistory())
	weight, target := p.WeightKg(), p.TargetWeightKg()
	switch {
	case strings.Contains(history, "loss") || target < weight:
		return lossFactor
	case strings.Contains(history, "gain") || target > weight:
		return gainFactor
	}
	return 1.0
}

// CalorieNeeds returns daily calories rounded to the nearest 50 kcal.
// Halfway values round to even steps. The result is never below 50.
func CalorieNeeds(p profile.UserProfile) int {
	daily := BMR(p) * ActivityMultiplier(p) * GoalFactor(p)
	if p.IsDiabetic() {
		daily *= diabetesFactor
	}
	rounded := int(math.RoundToEven(daily/calorieStep)) * calorieStep
	if rounded < calorieStep {
		return calorieStep
	}
	return rounded
}

// MacroRatios returns the carb/protein/fat split for the profile's health
// conditions and activity level.
func MacroRatios(p profile.UserProfile) Ratios {
	r := Ratios{Carb: 0.50, Protein: 0.25, Fat: 0.25}

	if p.IsDiabetic() {
		r = Ratios{Carb: 0.40, Protein: 0.30, Fat: 0.30}
	}
	if p.Cardiovascular == "Present" || p.Hypertension == "Yes" {
		r = Ratios{Carb: 0.45, Protein: 0.30, Fat: 0.25}
	}
	if p.ActivityScore() > 150 {
		r.Carb = math.Max(0.45, r.Carb)
		r.Protein = math.Max(0.30, r.Protein)
		r.Fat = 1 - r.Carb - r.Protein
	}

	total := r.Carb + r.Protein + r.Fat
	return Ratios{Carb: r.Carb / total, Protein: r.Protein / total, Fat: r.Fat / total}
}

// TargetsFor bundles CalorieNeeds and MacroRatios.
func TargetsFor(p profile.UserProfile) Targets {
	return Targets{DailyCalories: CalorieNeeds(p), Ratios: MacroRatios(p)}
}

// MacroPercentages splits macro grams into calorie percentages (4/4/9 kcal
// per gram) rounded to one decimal. ok is false when there are no macro
// calories.
func MacroPercentages(protein, carbs, fat float64) (carbPct, proteinPct, fatPct float64, ok bool) {
	total := protein*4 + carbs*4 + fat*9
	if total <= 0 {
		return 0, 0, 0, false
	}
	return Round1(carbs * 4 / total * 100), Round1(protein * 4 / total * 100), Round1(fat * 9 / total * 100), true
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

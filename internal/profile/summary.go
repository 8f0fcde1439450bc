package profile

import (
	"fmt"
	"math"
	"strings"
)

// BMI returns body-mass index rounded to one decimal, using defaults for
// absent height or weight.
func BMI(p UserProfile) float64 {
	h := p.HeightCm() / 100
	if h <= 0 {
		return 0
	}
	return math.Round(p.WeightKg()/(h*h)*10) / 10
}

// BMICategory buckets a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

// WeightGoal is "loss", "gain" or "maintain", derived the same way the
// calorie calculator derives it.
func WeightGoal(p UserProfile) string {
	history := strings.ToLower(p.WeightHistory())
	switch {
	case strings.Contains(history, "loss") || p.TargetWeightKg() < p.WeightKg():
		return "loss"
	case strings.Contains(history, "gain") || p.TargetWeightKg() > p.WeightKg():
		return "gain"
	default:
		return "maintain"
	}
}

func present(v string) bool {
	l := strings.ToLower(strings.TrimSpace(v))
	return l != "" && l != "none" && l != "no" && l != "absent" && l != "nan"
}

// Summary renders the profile as short human-readable lines.
func Summary(p UserProfile) []string {
	var lines []string

	var conditions []string
	if present(p.Diabetes) {
		conditions = append(conditions, "Diabetes: "+p.Diabetes)
	}
	if strings.EqualFold(p.Hypertension, "Yes") {
		conditions = append(conditions, "Hypertension")
	}
	if strings.EqualFold(p.Cardiovascular, "Present") {
		conditions = append(conditions, "Cardiovascular condition")
	}
	if present(p.DigestiveDisorder) {
		conditions = append(conditions, "Digestive disorder: "+p.DigestiveDisorder)
	}
	if len(conditions) > 0 {
		lines = append(lines, "Health conditions: "+strings.Join(conditions, ", "))
	} else {
		lines = append(lines, "Health conditions: none reported")
	}

	if present(p.FoodAllergies) {
		lines = append(lines, "Allergies: "+p.FoodAllergies)
	}
	if present(p.FoodIntolerances) {
		lines = append(lines, "Intolerances: "+p.FoodIntolerances)
	}

	bmi := BMI(p)
	lines = append(lines, fmt.Sprintf("BMI: %.1f (%s)", bmi, BMICategory(bmi)))

	switch WeightGoal(p) {
	case "loss":
		lines = append(lines, fmt.Sprintf("Weight goal: lose weight (%.0f kg -> %.0f kg)", p.WeightKg(), p.TargetWeightKg()))
	case "gain":
		lines = append(lines, fmt.Sprintf("Weight goal: gain weight (%.0f kg -> %.0f kg)", p.WeightKg(), p.TargetWeightKg()))
	default:
		lines = append(lines, "Weight goal: maintain")
	}

	lines = append(lines, fmt.Sprintf("Exercise: %.0f days/week, %.0f min/session",
		orDefault(p.ExerciseFrequency, DefaultExerciseFrequency), orDefault(p.ExerciseDuration, DefaultExerciseDuration)))

	lines = append(lines, "Diet type: "+p.Category("diet_type"))
	return lines
}

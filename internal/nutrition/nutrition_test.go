package nutrition

import (
	"math"
	"testing"

	"diet-planner/internal/profile"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func referenceProfile() profile.UserProfile {
	return profile.UserProfile{
		Weight:             f(70),
		Height:             f(170),
		Age:                f(40),
		Gender:             "male",
		ExerciseFrequency:  f(3),
		ExerciseDuration:   f(30),
		Diabetes:           "None",
		DietType:           "Regular",
		MealSizePreference: "Regular 3 meals",
	}
}

func TestCalorieNeedsReference(t *testing.T) {
	p := referenceProfile()
	assert.InDelta(t, 1567.5, BMR(p), 1e-9)
	assert.Equal(t, 1.55, ActivityMultiplier(p))
	assert.Equal(t, 1.0, GoalFactor(p))
	assert.Equal(t, 2450, CalorieNeeds(p))

	assert.Equal(t, 2450, CalorieNeeds(profile.UserProfile{}), "defaults match the reference profile")
}

func TestCalorieNeedsMultipleOf50(t *testing.T) {
	for _, w := range []float64{25, 45, 60, 70, 95, 130, 250} {
		for _, a := range []float64{5, 18, 40, 75, 110} {
			for _, g := range []string{"male", "female"} {
				for _, freq := range []float64{0, 1, 3, 7} {
					p := profile.UserProfile{Weight: f(w), Age: f(a), Gender: g, ExerciseFrequency: f(freq), Height: f(160)}
					c := CalorieNeeds(p)
					assert.Positive(t, c)
					assert.Zero(t, c%50, "weight=%v age=%v gender=%s freq=%v", w, a, g, freq)
				}
			}
		}
	}
}

func TestCalorieNeedsFloor(t *testing.T) {
	p := profile.UserProfile{Weight: f(21), Height: f(51), Age: f(120), Gender: "female", TargetWeight: f(20.5)}
	assert.Equal(t, 50, CalorieNeeds(p))
}

func TestCalorieNeedsRoundsHalfToEven(t *testing.T) {
	// 10*60 + 6.25*160 - 5*45 + 5 = 1380; *1.375 = 1897.5 -> 37.95 steps -> 1900
	p := profile.UserProfile{Weight: f(60), Height: f(160), Age: f(45), ExerciseFrequency: f(1), ExerciseDuration: f(30)}
	assert.Equal(t, 1900, CalorieNeeds(p))

	// 1125 -> 22.5 steps, rounds to 22
	assert.Equal(t, 1100, int(math.RoundToEven(1125.0/50))*50)
}

func TestGoalFactor(t *testing.T) {
	tests := []struct {
		name string
		p    profile.UserProfile
		want float64
	}{
		{"stable", profile.UserProfile{}, 1.0},
		{"loss history", profile.UserProfile{WeightChangeHistory: "Recent weight loss"}, 0.85},
		{"lower target", profile.UserProfile{Weight: f(80), TargetWeight: f(72)}, 0.85},
		{"gain history", profile.UserProfile{WeightChangeHistory: "gain"}, 1.15},
		{"higher target", profile.UserProfile{Weight: f(55), TargetWeight: f(60)}, 1.15},
		{"loss wins over higher target", profile.UserProfile{WeightChangeHistory: "loss", Weight: f(55), TargetWeight: f(60)}, 0.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GoalFactor(tt.p))
		})
	}
}

func TestDiabetesReducesCalories(t *testing.T) {
	for _, w := range []float64{50, 70, 90, 120} {
		base := referenceProfile()
		base.Weight = f(w)
		for _, kind := range []string{"Type 1", "Type 2"} {
			diabetic := base
			diabetic.Diabetes = kind
			assert.Less(t, CalorieNeeds(diabetic), CalorieNeeds(base), "weight=%v %s", w, kind)
		}
		prediabetic := base
		prediabetic.Diabetes = "Prediabetic"
		assert.Equal(t, CalorieNeeds(base), CalorieNeeds(prediabetic))
	}
}

func TestMacroRatios(t *testing.T) {
	tests := []struct {
		name string
		p    profile.UserProfile
		want Ratios
	}{
		{"base", profile.UserProfile{}, Ratios{0.50, 0.25, 0.25}},
		{"diabetes", profile.UserProfile{Diabetes: "Type 2"}, Ratios{0.40, 0.30, 0.30}},
		{"prediabetic keeps base", profile.UserProfile{Diabetes: "Prediabetic"}, Ratios{0.50, 0.25, 0.25}},
		{"cardiovascular", profile.UserProfile{Cardiovascular: "Present"}, Ratios{0.45, 0.30, 0.25}},
		{"hypertension overrides diabetes", profile.UserProfile{Diabetes: "Type 1", Hypertension: "Yes"}, Ratios{0.45, 0.30, 0.25}},
		{"very active", profile.UserProfile{ExerciseFrequency: f(5), ExerciseDuration: f(60)}, Ratios{0.50, 0.30, 0.20}},
		{"very active diabetic", profile.UserProfile{Diabetes: "Type 1", ExerciseFrequency: f(6), ExerciseDuration: f(45)}, Ratios{0.45, 0.30, 0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MacroRatios(tt.p)
			assert.InDelta(t, tt.want.Carb, got.Carb, 1e-9)
			assert.InDelta(t, tt.want.Protein, got.Protein, 1e-9)
			assert.InDelta(t, tt.want.Fat, got.Fat, 1e-9)
			assert.InDelta(t, 1.0, got.Carb+got.Protein+got.Fat, 1e-9)
		})
	}
}

func TestTargetsFor(t *testing.T) {
	got := TargetsFor(referenceProfile())
	assert.Equal(t, 2450, got.DailyCalories)
	assert.InDelta(t, 0.5, got.Carb, 1e-9)
}

func TestMacroPercentages(t *testing.T) {
	c, p, fat, ok := MacroPercentages(100, 250, 60)
	assert.True(t, ok)
	// 400 + 1000 + 540 = 1940
	assert.Equal(t, 51.5, c)
	assert.Equal(t, 20.6, p)
	assert.Equal(t, 27.8, fat)

	_, _, _, ok = MacroPercentages(0, 0, 0)
	assert.False(t, ok)
}

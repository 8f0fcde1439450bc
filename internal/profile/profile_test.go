package profile

import (
	"context"
	"errors"
	"testing"

	"diet-planner/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var p UserProfile

	assert.Equal(t, 70.0, p.WeightKg())
	assert.Equal(t, 170.0, p.HeightCm())
	assert.Equal(t, 40.0, p.AgeYears())
	assert.Equal(t, "male", p.GenderOrDefault())
	assert.Equal(t, 90.0, p.ActivityScore())
	assert.Equal(t, 70.0, p.TargetWeightKg())
	assert.Equal(t, "stable", p.WeightHistory())
	assert.Equal(t, Unknown, p.Category("diet_type"))
}

func TestSet(t *testing.T) {
	var p UserProfile

	require.NoError(t, p.Set("Height (cm)", "182.5"))
	require.NoError(t, p.Set("Diet Type", "Vegetarian"))
	require.NoError(t, p.Set("exercise-frequency", "4"))

	require.NotNil(t, p.Height)
	assert.Equal(t, 182.5, *p.Height)
	assert.Equal(t, "Vegetarian", p.DietType)
	assert.Equal(t, 4.0, *p.ExerciseFrequency)

	require.NoError(t, p.Set("height", ""))
	assert.Nil(t, p.Height)

	err := p.Set("weight", "heavy")
	assert.True(t, errors.Is(err, ErrInvalidProfile))

	err = p.Set("shoe_size", "42")
	assert.True(t, errors.Is(err, ErrInvalidProfile))
}

func TestFromMap(t *testing.T) {
	p, err := FromMap(map[string]any{
		"weight":               80.0,
		"age":                  35,
		"gender":               "female",
		"diabetes":             "Type 2",
		"meal_size_preference": "Small frequent meals",
		"something_else":       "ignored",
		"target_weight":        nil,
	})
	require.NoError(t, err)

	assert.Equal(t, 80.0, p.WeightKg())
	assert.Equal(t, 35.0, p.AgeYears())
	assert.Equal(t, "female", p.Gender)
	assert.True(t, p.IsDiabetic())
	assert.Nil(t, p.TargetWeight)

	_, err = FromMap(map[string]any{"height": "tall"})
	assert.Error(t, err)
}

func TestParseKeyValues(t *testing.T) {
	t.Run("SpaceSeparated", func(t *testing.T) {
		var p UserProfile
		require.NoError(t, p.ParseKeyValues("weight=82 height=180 diet_type=Vegan"))
		assert.Equal(t, 82.0, p.WeightKg())
		assert.Equal(t, "Vegan", p.DietType)
	})

	t.Run("SemicolonSeparated", func(t *testing.T) {
		var p UserProfile
		require.NoError(t, p.ParseKeyValues("meal_size_preference=Small frequent meals; food_allergies=Dairy, Nuts"))
		assert.Equal(t, "Small frequent meals", p.MealSizePreference)
		assert.Equal(t, "Dairy, Nuts", p.FoodAllergies)
	})

	t.Run("Malformed", func(t *testing.T) {
		var p UserProfile
		assert.Error(t, p.ParseKeyValues("weight"))
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, UserProfile{}.Validate())
	assert.NoError(t, UserProfile{Weight: Float(70), Height: Float(170), Age: Float(40)}.Validate())

	err := UserProfile{Weight: Float(-3)}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProfile))
	assert.Contains(t, err.Error(), "Weight")

	assert.Error(t, UserProfile{Age: Float(300)}.Validate())
}

func TestBMI(t *testing.T) {
	var p UserProfile
	assert.Equal(t, 24.2, BMI(p))
	assert.Equal(t, "Normal", BMICategory(BMI(p)))

	tests := []struct {
		bmi  float64
		want string
	}{
		{17, "Underweight"},
		{18.5, "Normal"},
		{25, "Overweight"},
		{29.9, "Overweight"},
		{30, "Obese"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BMICategory(tt.bmi))
	}
}

func TestWeightGoal(t *testing.T) {
	assert.Equal(t, "maintain", WeightGoal(UserProfile{}))
	assert.Equal(t, "loss", WeightGoal(UserProfile{WeightChangeHistory: "Recent weight loss"}))
	assert.Equal(t, "loss", WeightGoal(UserProfile{Weight: Float(90), TargetWeight: Float(80)}))
	assert.Equal(t, "gain", WeightGoal(UserProfile{Weight: Float(60), TargetWeight: Float(65)}))
}

func TestSummary(t *testing.T) {
	p := UserProfile{
		Diabetes:      "Type 1",
		Hypertension:  "Yes",
		FoodAllergies: "Dairy",
		DietType:      "Vegetarian",
	}
	lines := Summary(p)

	assert.Contains(t, lines, "Health conditions: Diabetes: Type 1, Hypertension")
	assert.Contains(t, lines, "Allergies: Dairy")
	assert.Contains(t, lines, "BMI: 24.2 (Normal)")
	assert.Contains(t, lines, "Diet type: Vegetarian")

	lines = Summary(UserProfile{Diabetes: "None", FoodAllergies: "none"})
	assert.Contains(t, lines, "Health conditions: none reported")
	assert.NotContains(t, lines, "Allergies: none")
}

func TestRepository(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	repo := NewRepository(db.SQL)
	ctx := context.Background()

	empty, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", empty.UserID)
	assert.Nil(t, empty.Weight)

	p := UserProfile{UserID: "42", Weight: Float(81), DietType: "Pescatarian"}
	require.NoError(t, repo.Save(ctx, p))

	p.Weight = Float(79)
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 79.0, got.WeightKg())
	assert.Equal(t, "Pescatarian", got.DietType)

	assert.Error(t, repo.Save(ctx, UserProfile{}))
}

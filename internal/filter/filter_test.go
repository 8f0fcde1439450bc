package filter

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mk(id int64, name string, ingredients ...string) recipe.Recipe {
	return recipe.Recipe{
		ID:          id,
		Name:        name,
		MealType:    recipe.MealLunch,
		Ingredients: ingredients,
		Nutrition:   recipe.Nutrition{Calories: 400, Carbs: 40, Sodium: 500},
	}
}

func withFlag(r recipe.Recipe, name string, v bool) recipe.Recipe {
	r.Flags.Set(name, v)
	return r
}

func ids(s recipe.Set) []int64 {
	out := make([]int64, len(s))
	for i, r := range s {
		out[i] = r.ID
	}
	return out
}

func TestDairyAllergyNeverReturnsDairy(t *testing.T) {
	dairy := []string{"milk", "cheese", "yogurt", "cream", "butter"}
	p := profile.UserProfile{FoodAllergies: "Dairy"}

	extra := recipe.Set{
		mk(100, "Mac", "pasta", "Cheddar Cheese"),
		mk(101, "Latte", "coffee", "oat milk"),
		mk(102, "Rice Bowl", "rice", "beans"),
	}

	for seed := int64(1); seed <= 20; seed++ {
		src := append(recipe.Fallback(rand.New(rand.NewSource(seed))), extra...)
		got := Apply(src, p, true)
		for _, r := range got.Recipes {
			text := r.IngredientText()
			for _, term := range dairy {
				assert.NotContains(t, text, term, "seed %d recipe %q", seed, r.Name)
			}
		}
	}
}

func TestVegetarianOnlyFlagged(t *testing.T) {
	p := profile.UserProfile{DietType: "Vegetarian"}
	for seed := int64(1); seed <= 20; seed++ {
		src := recipe.Fallback(rand.New(rand.NewSource(seed)))
		got := Apply(src, p, true)
		for _, r := range got.Recipes {
			assert.True(t, r.Flags.Is(recipe.FlagVegetarian), "seed %d recipe %q", seed, r.Name)
		}
	}
}

func TestDietTypeWithoutFlagColumn(t *testing.T) {
	src := recipe.Set{mk(1, "A", "x"), mk(2, "B", "y")}
	got := Apply(src, profile.UserProfile{DietType: "vegan"}, false)
	assert.Equal(t, []int64{1, 2}, ids(got.Recipes))
}

func TestRelaxedNeverSmallerThanStrict(t *testing.T) {
	p := profile.UserProfile{
		Diabetes:          "Type 2",
		Cardiovascular:    "Present",
		Hypertension:      "Yes",
		DigestiveDisorder: "Celiac",
		DietType:          "Vegetarian",
	}
	f := New(DefaultOptions(), nil)
	for seed := int64(1); seed <= 30; seed++ {
		src := recipe.Fallback(rand.New(rand.NewSource(seed)))
		strict := f.run(src, p, true)
		relaxed := f.run(src, p, false)
		assert.GreaterOrEqual(t, len(relaxed), len(strict), "seed %d", seed)

		got := f.Apply(src, p, true)
		if len(strict) < 5 {
			assert.True(t, got.Relaxed)
			assert.Equal(t, ids(relaxed), ids(got.Recipes))
		} else {
			assert.False(t, got.Relaxed)
			assert.Equal(t, ids(strict), ids(got.Recipes))
		}
	}
}

func TestPescatarian(t *testing.T) {
	src := recipe.Set{
		withFlag(mk(1, "Lentil Soup", "lentils", "carrot"), recipe.FlagVegetarian, true),
		withFlag(mk(2, "Grilled Salmon", "salmon fillet", "lemon"), recipe.FlagVegetarian, false),
		withFlag(mk(3, "Surf and Turf", "shrimp", "beef steak"), recipe.FlagVegetarian, false),
		withFlag(mk(4, "Chicken Salad", "chicken", "lettuce"), recipe.FlagVegetarian, false),
		mk(5, "Tuna Melt", "bread", "cheddar"),
	}
	got := Apply(src, profile.UserProfile{DietType: "Pescatarian"}, false)
	assert.Equal(t, []int64{1, 2, 5}, ids(got.Recipes), "fish in the name counts, meat excludes")
}

func TestHealthMedianThresholds(t *testing.T) {
	src := recipe.Set{}
	for i := 1; i <= 6; i++ {
		r := mk(int64(i), fmt.Sprintf("R%d", i), "x")
		r.Nutrition.Carbs = float64(i * 10)
		r.Nutrition.Sodium = float64(700 - i*100)
		src = append(src, r)
	}
	f := New(Options{MinStrictResults: 1}, nil)

	got := f.Apply(src, profile.UserProfile{Diabetes: "Prediabetic"}, true)
	assert.False(t, got.Relaxed)
	assert.Equal(t, []int64{1, 2, 3}, ids(got.Recipes))

	got = f.Apply(src, profile.UserProfile{Hypertension: "Yes"}, true)
	assert.Equal(t, []int64{4, 5, 6}, ids(got.Recipes))

	strict := f.run(src, profile.UserProfile{Diabetes: "Type 1", Hypertension: "Yes"}, true)
	assert.Empty(t, strict)
	got = f.Apply(src, profile.UserProfile{Diabetes: "Type 1", Hypertension: "Yes"}, true)
	assert.True(t, got.Relaxed)
	assert.Len(t, got.Recipes, 6)

	got = f.Apply(src, profile.UserProfile{Diabetes: "Type 1"}, false)
	assert.Len(t, got.Recipes, 6, "health predicates are skipped when relaxed")
	assert.True(t, got.Relaxed)
}

func TestHealthFlags(t *testing.T) {
	src := recipe.Set{
		withFlag(mk(1, "A", "x"), recipe.FlagHeartHealthy, true),
		withFlag(mk(2, "B", "x"), recipe.FlagHeartHealthy, false),
		mk(3, "C", "x"),
		withFlag(mk(4, "D", "x"), recipe.FlagGlutenFree, true),
	}
	f := New(Options{MinStrictResults: 1}, nil)

	got := f.Apply(src, profile.UserProfile{Cardiovascular: "Present"}, true)
	assert.Equal(t, []int64{1}, ids(got.Recipes), "absent flag counts as false once the column exists")

	got = f.Apply(src, profile.UserProfile{DigestiveDisorder: "Celiac"}, true)
	assert.Equal(t, []int64{4}, ids(got.Recipes))
}

func TestTriggeredAllergens(t *testing.T) {
	names := func(as []Allergen) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.Name)
		}
		return out
	}

	assert.Empty(t, TriggeredAllergens(profile.UserProfile{FoodAllergies: "None"}))
	assert.Empty(t, TriggeredAllergens(profile.UserProfile{FoodAllergies: "nan", FoodIntolerances: " "}))
	assert.Equal(t, []string{"nuts"}, names(TriggeredAllergens(profile.UserProfile{FoodAllergies: "Peanuts"})))
	assert.Equal(t, []string{"shellfish", "fish"}, names(TriggeredAllergens(profile.UserProfile{FoodAllergies: "Shellfish"})))
	assert.Equal(t, []string{"dairy", "eggs"}, names(TriggeredAllergens(profile.UserProfile{FoodAllergies: "eggs", FoodIntolerances: "Milk"})))
}

func TestAllergiesApplyWhenRelaxed(t *testing.T) {
	src := recipe.Set{mk(1, "Omelette", "2 eggs", "spinach"), mk(2, "Salad", "lettuce")}
	got := Apply(src, profile.UserProfile{FoodAllergies: "Egg"}, false)
	assert.Equal(t, []int64{2}, ids(got.Recipes))
}

func TestCuisine(t *testing.T) {
	build := func(asian int) recipe.Set {
		var s recipe.Set
		for i := 0; i < 15; i++ {
			r := mk(int64(i+1), "R", "x")
			r.Cuisine = "European"
			if i < asian {
				r.Cuisine = "Asian"
			}
			s = append(s, r)
		}
		return s
	}

	got := Apply(build(10), profile.UserProfile{CuisinePreferences: "asian"}, false)
	assert.Len(t, got.Recipes, 10)

	got = Apply(build(9), profile.UserProfile{CuisinePreferences: "Asian"}, false)
	assert.Len(t, got.Recipes, 15, "too few matches leaves the set alone")

	got = Apply(build(10), profile.UserProfile{CuisinePreferences: "Mixed"}, false)
	assert.Len(t, got.Recipes, 15)
}

func TestCookingSkills(t *testing.T) {
	build := func(hard int) recipe.Set {
		var s recipe.Set
		for i := 0; i < 12; i++ {
			r := mk(int64(i+1), "R", "x")
			r.Difficulty = recipe.DifficultyEasy
			if i < hard {
				r.Difficulty = recipe.DifficultyHard
			}
			s = append(s, r)
		}
		return s
	}

	got := Apply(build(4), profile.UserProfile{CookingSkills: "Beginner"}, false)
	assert.Len(t, got.Recipes, 8)
	for _, r := range got.Recipes {
		assert.NotEqual(t, recipe.DifficultyHard, r.Difficulty)
	}

	got = Apply(build(4), profile.UserProfile{CookingSkills: "Advanced"}, false)
	assert.Len(t, got.Recipes, 12)

	got = Apply(build(10), profile.UserProfile{CookingSkills: "advanced"}, false)
	assert.Len(t, got.Recipes, 10)

	got = Apply(build(4), profile.UserProfile{CookingSkills: "Intermediate"}, false)
	assert.Len(t, got.Recipes, 12)
}

func TestCookingTime(t *testing.T) {
	var src recipe.Set
	for i, minutes := range []int{10, 20, 30, 45, 60} {
		r := mk(int64(i+1), "R", "x")
		r.PrepTime = minutes
		src = append(src, r)
	}

	got := Apply(src, profile.UserProfile{AvailableCookingTime: profile.Float(30)}, false)
	assert.Equal(t, []int64{1, 2, 3}, ids(got.Recipes))

	got = Apply(src, profile.UserProfile{AvailableCookingTime: profile.Float(0)}, false)
	assert.Len(t, got.Recipes, 5)
}

func TestStrictFallbackFromFallbackSet(t *testing.T) {
	src := recipe.Fallback(rand.New(rand.NewSource(7)))
	p := profile.UserProfile{
		Diabetes:          "Type 1",
		Cardiovascular:    "Present",
		Hypertension:      "Yes",
		DigestiveDisorder: "Celiac",
		FoodAllergies:     "dairy",
	}
	got := New(Options{MinStrictResults: 1000}, nil).Apply(src, p, true)
	require.True(t, got.Relaxed)
	for _, r := range got.Recipes {
		assert.False(t, strings.Contains(r.IngredientText(), "yogurt"))
	}
}

package recipe

import (
	"errors"
	"sort"
	"strings"
)

// Meal types a recipe can be tagged with.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// Cooking difficulties.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// ErrNotFound is returned by repository lookups for unknown ids.
var ErrNotFound = errors.New("recipe not found")

// Nutrition holds per-serving nutrition facts. All values are non-negative.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Sodium   float64 `json:"sodium"`
	Fiber    float64 `json:"fiber"`
}

// Add returns the element-wise sum.
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
		Sodium:   n.Sodium + o.Sodium,
		Fiber:    n.Fiber + o.Fiber,
	}
}

// Flags are optional dietary markers. A nil flag means the source did not say.
type Flags struct {
	Vegetarian       *bool `json:"vegetarian,omitempty"`
	Vegan            *bool `json:"vegan,omitempty"`
	GlutenFree       *bool `json:"gluten_free,omitempty"`
	DiabetesFriendly *bool `json:"diabetes_friendly,omitempty"`
	HeartHealthy     *bool `json:"heart_healthy,omitempty"`
	LowSodium        *bool `json:"low_sodium,omitempty"`
}

// Flag names, as used in CSV headers and HTML markup.
const (
	FlagVegetarian       = "vegetarian"
	FlagVegan            = "vegan"
	FlagGlutenFree       = "gluten_free"
	FlagDiabetesFriendly = "diabetes_friendly"
	FlagHeartHealthy     = "heart_healthy"
	FlagLowSodium        = "low_sodium"
)

// FlagNames lists every supported flag.
var FlagNames = []string{FlagVegetarian, FlagVegan, FlagGlutenFree, FlagDiabetesFriendly, FlagHeartHealthy, FlagLowSodium}

func (f *Flags) field(name string) **bool {
	switch name {
	case FlagVegetarian:
		return &f.Vegetarian
	case FlagVegan:
		return &f.Vegan
	case FlagGlutenFree:
		return &f.GlutenFree
	case FlagDiabetesFriendly:
		return &f.DiabetesFriendly
	case FlagHeartHealthy:
		return &f.HeartHealthy
	case FlagLowSodium:
		return &f.LowSodium
	}
	return nil
}

// Get returns the flag value; ok is false when it is absent or unknown.
func (f Flags) Get(name string) (value, ok bool) {
	ptr := f.field(name)
	if ptr == nil || *ptr == nil {
		return false, false
	}
	return **ptr, true
}

// Set assigns a flag by name. Unknown names are ignored.
func (f *Flags) Set(name string, v bool) {
	if ptr := f.field(name); ptr != nil {
		*ptr = &v
	}
}

// Is reports whether the flag is present and true.
func (f Flags) Is(name string) bool {
	v, ok := f.Get(name)
	return ok && v
}

// Recipe is read-only reference data for meal planning.
type Recipe struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	MealType     string    `json:"meal_type"`
	Nutrition    Nutrition `json:"nutrition"`
	Ingredients  []string  `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Flags        Flags     `json:"flags"`
	PrepTime     int       `json:"prep_time,omitempty"`
	Difficulty   string    `json:"cooking_difficulty,omitempty"`
	Cuisine      string    `json:"cuisine,omitempty"`
	Tags         []string  `json:"tags,omitempty"`

	Source          string `json:"source,omitempty"`
	SourceID        string `json:"source_id,omitempty"`
	SourceUpdatedAt string `json:"source_updated_at,omitempty"`
}

// IngredientText is the lower-cased ingredient list joined for keyword search.
func (r Recipe) IngredientText() string {
	return strings.ToLower(strings.Join(r.Ingredients, " "))
}

// Set is a recipe collection that knows which optional attributes its
// source provided.
type Set []Recipe

// HasFlag reports whether any recipe carries the named flag.
func (s Set) HasFlag(name string) bool {
	for _, r := range s {
		if _, ok := r.Flags.Get(name); ok {
			return true
		}
	}
	return false
}

// HasCuisine reports whether any recipe has a cuisine tag.
func (s Set) HasCuisine() bool {
	for _, r := range s {
		if r.Cuisine != "" {
			return true
		}
	}
	return false
}

// HasDifficulty reports whether any recipe has a cooking difficulty.
func (s Set) HasDifficulty() bool {
	for _, r := range s {
		if r.Difficulty != "" {
			return true
		}
	}
	return false
}

// HasPrepTime reports whether any recipe has a prep time.
func (s Set) HasPrepTime() bool {
	for _, r := range s {
		if r.PrepTime > 0 {
			return true
		}
	}
	return false
}

// Where returns the recipes for which keep is true, preserving order.
func (s Set) Where(keep func(Recipe) bool) Set {
	out := make(Set, 0, len(s))
	for _, r := range s {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ByMealType returns the recipes tagged with mealType.
func (s Set) ByMealType(mealType string) Set {
	return s.Where(func(r Recipe) bool { return r.MealType == mealType })
}

// Median of a nutrition field across the set. Zero for an empty set.
func (s Set) Median(field func(Nutrition) float64) float64 {
	if len(s) == 0 {
		return 0
	}
	vals := make([]float64, len(s))
	for i, r := range s {
		vals[i] = field(r.Nutrition)
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// Carbs selects the carbohydrate field for Median.
func Carbs(n Nutrition) float64 { return n.Carbs }

// Sodium selects the sodium field for Median.
func Sodium(n Nutrition) float64 { return n.Sodium }

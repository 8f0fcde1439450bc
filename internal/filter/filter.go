// Package filter narrows a recipe set to what a user can eat, cook and
// tolerate.
package filter

import (
	"strings"

	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"

	"go.uber.org/zap"
)

// Options holds the filter thresholds.
type Options struct {
	// MinStrictResults is the strict result size below which the filter
	// reruns without health-condition predicates.
	MinStrictResults int
	// CuisineMinMatches is the smallest cuisine subset worth restricting to.
	CuisineMinMatches int
	// AdvancedMinHard is the smallest set of Hard recipes an advanced cook
	// is restricted to.
	AdvancedMinHard int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{MinStrictResults: 5, CuisineMinMatches: 10, AdvancedMinHard: 10}
}

// Result is the filtered candidate set.
type Result struct {
	Recipes recipe.Set
	// Relaxed is true when health-condition predicates were skipped.
	Relaxed bool
}

var (
	fishKeywords = []string{"fish", "salmon", "tuna", "cod", "tilapia", "shrimp", "seafood"}
	meatKeywords = []string{"chicken", "beef", "pork", "turkey", "lamb", "meat", "bacon", "ham", "sausage"}
)

// Allergen is a named class of ingredients excluded together.
type Allergen struct {
	Name  string
	Terms []string
}

// Allergens are matched against the allergy text by name or term and
// against ingredient text by term.
var Allergens = []Allergen{
	{Name: "dairy", Terms: []string{"milk", "cheese", "yogurt", "cream", "butter"}},
	{Name: "nuts", Terms: []string{"almond", "walnut", "pecan", "cashew", "pistachio", "nut"}},
	{Name: "gluten", Terms: []string{"wheat", "barley", "rye", "gluten"}},
	{Name: "shellfish", Terms: []string{"shrimp", "crab", "lobster", "clam", "mussel", "shellfish"}},
	{Name: "eggs", Terms: []string{"egg"}},
	{Name: "soy", Terms: []string{"soy", "tofu", "edamame"}},
	{Name: "fish", Terms: []string{"fish", "salmon", "tuna", "cod", "tilapia"}},
}

// Filter applies dietary, health, allergy, cuisine, skill and time
// predicates. Each predicate is skipped when the recipe set does not carry
// the attribute it needs.
type Filter struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Filter. Non-positive thresholds fall back to the defaults.
func New(opts Options, logger *zap.Logger) *Filter {
	def := DefaultOptions()
	if opts.MinStrictResults <= 0 {
		opts.MinStrictResults = def.MinStrictResults
	}
	if opts.CuisineMinMatches <= 0 {
		opts.CuisineMinMatches = def.CuisineMinMatches
	}
	if opts.AdvancedMinHard <= 0 {
		opts.AdvancedMinHard = def.AdvancedMinHard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{opts: opts, logger: logger}
}

// Apply filters with the default options.
func Apply(recipes recipe.Set, p profile.UserProfile, strict bool) Result {
	return New(DefaultOptions(), nil).Apply(recipes, p, strict)
}

// Apply filters recipes for p. In strict mode a result smaller than
// MinStrictResults is replaced by the relaxed result.
func (f *Filter) Apply(recipes recipe.Set, p profile.UserProfile, strict bool) Result {
	out := f.run(recipes, p, strict)
	if strict && len(out) < f.opts.MinStrictResults {
		f.logger.Debug("strict filter too narrow, relaxing",
			zap.Int("strict_count", len(out)), zap.Int("min", f.opts.MinStrictResults))
		return Result{Recipes: f.run(recipes, p, false), Relaxed: true}
	}
	return Result{Recipes: out, Relaxed: !strict}
}

func (f *Filter) run(source recipe.Set, p profile.UserProfile, strict bool) recipe.Set {
	out := f.dietType(source, p)
	if strict {
		out = f.health(source, out, p)
	}
	out = f.allergies(out, p)
	out = f.cuisine(source, out, p)
	out = f.skills(source, out, p)
	out = f.cookingTime(source, out, p)

	f.logger.Debug("filtered recipes",
		zap.Bool("strict", strict), zap.Int("source", len(source)), zap.Int("kept", len(out)))
	return out
}

func (f *Filter) dietType(source recipe.Set, p profile.UserProfile) recipe.Set {
	switch strings.ToLower(p.DietType) {
	case "vegetarian":
		if source.HasFlag(recipe.FlagVegetarian) {
			return source.Where(flagIs(recipe.FlagVegetarian))
		}
	case "vegan":
		if source.HasFlag(recipe.FlagVegan) {
			return source.Where(flagIs(recipe.FlagVegan))
		}
	case "pescatarian":
		if source.HasFlag(recipe.FlagVegetarian) {
			return source.Where(func(r recipe.Recipe) bool {
				if r.Flags.Is(recipe.FlagVegetarian) {
					return true
				}
				text := r.IngredientText() + " " + strings.ToLower(r.Name)
				return containsAny(text, fishKeywords) && !containsAny(text, meatKeywords)
			})
		}
	}
	return source
}

// health narrows out by the user's conditions. Median thresholds come from
// the unfiltered source.
func (f *Filter) health(source, out recipe.Set, p profile.UserProfile) recipe.Set {
	if p.HasGlycemicConcern() {
		if source.HasFlag(recipe.FlagDiabetesFriendly) {
			out = out.Where(flagIs(recipe.FlagDiabetesFriendly))
		} else {
			limit := source.Median(recipe.Carbs)
			out = out.Where(func(r recipe.Recipe) bool { return r.Nutrition.Carbs <= limit })
		}
	}
	if p.Cardiovascular == "Present" && source.HasFlag(recipe.FlagHeartHealthy) {
		out = out.Where(flagIs(recipe.FlagHeartHealthy))
	}
	if p.Hypertension == "Yes" {
		if source.HasFlag(recipe.FlagLowSodium) {
			out = out.Where(flagIs(recipe.FlagLowSodium))
		} else {
			limit := source.Median(recipe.Sodium)
			out = out.Where(func(r recipe.Recipe) bool { return r.Nutrition.Sodium <= limit })
		}
	}
	if p.DigestiveDisorder == "Celiac" && source.HasFlag(recipe.FlagGlutenFree) {
		out = out.Where(flagIs(recipe.FlagGlutenFree))
	}
	return out
}

// TriggeredAllergens returns the allergen classes named by the profile's
// allergies and intolerances.
func TriggeredAllergens(p profile.UserProfile) []Allergen {
	var parts []string
	for _, v := range []string{p.FoodAllergies, p.FoodIntolerances} {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && v != "none" && v != "nan" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	text := strings.Join(parts, " ")

	var triggered []Allergen
	for _, a := range Allergens {
		if strings.Contains(text, a.Name) || containsAny(text, a.Terms) {
			triggered = append(triggered, a)
		}
	}
	return triggered
}

func (f *Filter) allergies(out recipe.Set, p profile.UserProfile) recipe.Set {
	for _, a := range TriggeredAllergens(p) {
		terms := a.Terms
		out = out.Where(func(r recipe.Recipe) bool { return !containsAny(r.IngredientText(), terms) })
	}
	return out
}

func (f *Filter) cuisine(source, out recipe.Set, p profile.UserProfile) recipe.Set {
	pref := strings.ToLower(strings.TrimSpace(p.CuisinePreferences))
	if pref == "" || pref == "mixed" || !source.HasCuisine() {
		return out
	}
	matching := out.Where(func(r recipe.Recipe) bool { return strings.ToLower(r.Cuisine) == pref })
	if len(matching) >= f.opts.CuisineMinMatches {
		return matching
	}
	return out
}

func (f *Filter) skills(source, out recipe.Set, p profile.UserProfile) recipe.Set {
	if !source.HasDifficulty() {
		return out
	}
	isHard := func(r recipe.Recipe) bool { return strings.EqualFold(r.Difficulty, recipe.DifficultyHard) }

	switch strings.ToLower(p.CookingSkills) {
	case "beginner", "basic":
		return out.Where(func(r recipe.Recipe) bool { return !isHard(r) })
	case "advanced":
		if hard := out.Where(isHard); len(hard) >= f.opts.AdvancedMinHard {
			return hard
		}
	}
	return out
}

func (f *Filter) cookingTime(source, out recipe.Set, p profile.UserProfile) recipe.Set {
	limit := p.CookingTime()
	if limit <= 0 || !source.HasPrepTime() {
		return out
	}
	return out.Where(func(r recipe.Recipe) bool { return float64(r.PrepTime) <= limit })
}

func flagIs(name string) func(recipe.Recipe) bool {
	return func(r recipe.Recipe) bool { return r.Flags.Is(name) }
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

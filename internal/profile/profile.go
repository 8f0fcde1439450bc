// Package profile holds the user attributes that drive calorie targets,
// recipe filtering and meal-pattern selection.
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when a numeric attribute is absent.
const (
	DefaultWeight            = 70.0
	DefaultHeight            = 170.0
	DefaultAge               = 40.0
	DefaultGender            = "male"
	DefaultExerciseFrequency = 3.0
	DefaultExerciseDuration  = 30.0
	DefaultWeightHistory     = "stable"

	// Unknown is reported for absent categorical attributes.
	Unknown = "Unknown"
)

// ErrInvalidProfile is returned when a provided attribute is out of range or unparseable.
var ErrInvalidProfile = errors.New("invalid profile")

// UserProfile is an immutable-per-request set of optional user attributes.
// Numeric fields are pointers so that "absent" differs from zero.
type UserProfile struct {
	UserID string `json:"user_id,omitempty"`

	Height            *float64 `json:"height,omitempty" validate:"omitempty,gt=50,lt=275"`
	Weight            *float64 `json:"weight,omitempty" validate:"omitempty,gt=20,lt=400"`
	Age               *float64 `json:"age,omitempty" validate:"omitempty,gte=2,lte=120"`
	Gender            string   `json:"gender,omitempty"`
	ExerciseFrequency *float64 `json:"exercise_frequency,omitempty" validate:"omitempty,gte=0,lte=14"`
	ExerciseDuration  *float64 `json:"exercise_duration,omitempty" validate:"omitempty,gte=0,lte=600"`
	TargetWeight      *float64 `json:"target_weight,omitempty" validate:"omitempty,gt=20,lt=400"`

	WeightChangeHistory string `json:"weight_change_history,omitempty"`
	Diabetes            string `json:"diabetes,omitempty"`
	Hypertension        string `json:"hypertension,omitempty"`
	Cardiovascular      string `json:"cardiovascular,omitempty"`
	DigestiveDisorder   string `json:"digestive_disorder,omitempty"`
	FoodAllergies       string `json:"food_allergies,omitempty"`
	FoodIntolerances    string `json:"food_intolerances,omitempty"`
	DietType            string `json:"diet_type,omitempty"`
	MealSizePreference  string `json:"meal_size_preference,omitempty"`
	CookingSkills       string `json:"cooking_skills,omitempty"`

	AvailableCookingTime *float64 `json:"available_cooking_time,omitempty" validate:"omitempty,gte=0,lte=1440"`
	CuisinePreferences   string   `json:"cuisine_preferences,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate rejects out-of-range numeric attributes. Absent fields are fine.
func (p UserProfile) Validate() error {
	if err := validatorInstance().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// WeightKg returns the weight or DefaultWeight.
func (p UserProfile) WeightKg() float64 { return orDefault(p.Weight, DefaultWeight) }

// HeightCm returns the height or DefaultHeight.
func (p UserProfile) HeightCm() float64 { return orDefault(p.Height, DefaultHeight) }

// AgeYears returns the age or DefaultAge.
func (p UserProfile) AgeYears() float64 { return orDefault(p.Age, DefaultAge) }

// TargetWeightKg returns the target weight, defaulting to the current weight.
func (p UserProfile) TargetWeightKg() float64 { return orDefault(p.TargetWeight, p.WeightKg()) }

// GenderOrDefault returns the gender or DefaultGender.
func (p UserProfile) GenderOrDefault() string {
	if p.Gender == "" {
		return DefaultGender
	}
	return p.Gender
}

// WeightHistory returns the weight change history or DefaultWeightHistory.
func (p UserProfile) WeightHistory() string {
	if p.WeightChangeHistory == "" {
		return DefaultWeightHistory
	}
	return p.WeightChangeHistory
}

// ActivityScore is exercise frequency times duration, with defaults applied.
func (p UserProfile) ActivityScore() float64 {
	return orDefault(p.ExerciseFrequency, DefaultExerciseFrequency) * orDefault(p.ExerciseDuration, DefaultExerciseDuration)
}

// CookingTime returns the available cooking time in minutes, 0 when absent.
func (p UserProfile) CookingTime() float64 { return orDefault(p.AvailableCookingTime, 0) }

// IsDiabetic reports Type 1 or Type 2 diabetes.
func (p UserProfile) IsDiabetic() bool {
	return p.Diabetes == "Type 1" || p.Diabetes == "Type 2"
}

// HasGlycemicConcern also includes prediabetes.
func (p UserProfile) HasGlycemicConcern() bool {
	return p.IsDiabetic() || p.Diabetes == "Prediabetic"
}

// Category returns a categorical attribute by key, or Unknown when absent.
func (p UserProfile) Category(key string) string {
	var v string
	switch key {
	case "gender":
		v = p.Gender
	case "weight_change_history":
		v = p.WeightChangeHistory
	case "diabetes":
		v = p.Diabetes
	case "hypertension":
		v = p.Hypertension
	case "cardiovascular":
		v = p.Cardiovascular
	case "digestive_disorder":
		v = p.DigestiveDisorder
	case "food_allergies":
		v = p.FoodAllergies
	case "food_intolerances":
		v = p.FoodIntolerances
	case "diet_type":
		v = p.DietType
	case "meal_size_preference":
		v = p.MealSizePreference
	case "cooking_skills":
		v = p.CookingSkills
	case "cuisine_preferences":
		v = p.CuisinePreferences
	}
	if v == "" {
		return Unknown
	}
	return v
}

// Numeric returns a numeric attribute by key with defaults applied. The
// second result is false for unknown keys.
func (p UserProfile) Numeric(key string) (float64, bool) {
	switch key {
	case "height":
		return p.HeightCm(), true
	case "weight":
		return p.WeightKg(), true
	case "age":
		return p.AgeYears(), true
	case "exercise_frequency":
		return orDefault(p.ExerciseFrequency, DefaultExerciseFrequency), true
	case "exercise_duration":
		return orDefault(p.ExerciseDuration, DefaultExerciseDuration), true
	case "target_weight":
		return p.TargetWeightKg(), true
	case "available_cooking_time":
		return p.CookingTime(), true
	case "bmi":
		return BMI(p), true
	case "activity_score":
		return p.ActivityScore(), true
	}
	return 0, false
}

var numericKeys = map[string]func(*UserProfile) **float64{
	"height":                 func(p *UserProfile) **float64 { return &p.Height },
	"weight":                 func(p *UserProfile) **float64 { return &p.Weight },
	"age":                    func(p *UserProfile) **float64 { return &p.Age },
	"exercise_frequency":     func(p *UserProfile) **float64 { return &p.ExerciseFrequency },
	"exercise_duration":      func(p *UserProfile) **float64 { return &p.ExerciseDuration },
	"target_weight":          func(p *UserProfile) **float64 { return &p.TargetWeight },
	"available_cooking_time": func(p *UserProfile) **float64 { return &p.AvailableCookingTime },
}

var textKeys = map[string]func(*UserProfile) *string{
	"user_id":               func(p *UserProfile) *string { return &p.UserID },
	"gender":                func(p *UserProfile) *string { return &p.Gender },
	"weight_change_history": func(p *UserProfile) *string { return &p.WeightChangeHistory },
	"diabetes":              func(p *UserProfile) *string { return &p.Diabetes },
	"hypertension":          func(p *UserProfile) *string { return &p.Hypertension },
	"cardiovascular":        func(p *UserProfile) *string { return &p.Cardiovascular },
	"digestive_disorder":    func(p *UserProfile) *string { return &p.DigestiveDisorder },
	"food_allergies":        func(p *UserProfile) *string { return &p.FoodAllergies },
	"food_intolerances":     func(p *UserProfile) *string { return &p.FoodIntolerances },
	"diet_type":             func(p *UserProfile) *string { return &p.DietType },
	"meal_size_preference":  func(p *UserProfile) *string { return &p.MealSizePreference },
	"cooking_skills":        func(p *UserProfile) *string { return &p.CookingSkills },
	"cuisine_preferences":   func(p *UserProfile) *string { return &p.CuisinePreferences },
}

// NormalizeKey maps "Diet Type", "diet-type" and "diet_type" to "diet_type".
// Unit suffixes such as "Height (cm)" are dropped.
func NormalizeKey(key string) string {
	if i := strings.Index(key, "("); i >= 0 {
		key = key[:i]
	}
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	return key
}

// Keys lists every attribute name accepted by Set.
func Keys() []string {
	keys := make([]string, 0, len(numericKeys)+len(textKeys))
	for k := range numericKeys {
		keys = append(keys, k)
	}
	for k := range textKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one attribute from its textual form. An empty value clears it.
func (p *UserProfile) Set(key, value string) error {
	key = NormalizeKey(key)
	value = strings.TrimSpace(value)

	if field, ok := numericKeys[key]; ok {
		ptr := field(p)
		if value == "" {
			*ptr = nil
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidProfile, key, value)
		}
		*ptr = &f
		return nil
	}

	if field, ok := textKeys[key]; ok {
		*field(p) = value
		return nil
	}

	return fmt.Errorf("%w: unknown attribute %q", ErrInvalidProfile, key)
}

// FromMap builds a profile from a loosely typed key/value mapping. Keys not
// recognised are ignored; values of the wrong shape are an error.
func FromMap(m map[string]any) (UserProfile, error) {
	var p UserProfile
	for k, raw := range m {
		key := NormalizeKey(k)
		if _, ok := numericKeys[key]; !ok {
			if _, ok := textKeys[key]; !ok {
				continue
			}
		}

		var s string
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case float32:
			s = strconv.FormatFloat(float64(v), 'f', -1, 32)
		case int:
			s = strconv.Itoa(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		case bool:
			s = strconv.FormatBool(v)
		default:
			s = fmt.Sprint(v)
		}

		if err := p.Set(key, s); err != nil {
			return UserProfile{}, err
		}
	}
	return p, nil
}

// ParseKeyValues applies "key=value" pairs, as typed in chat or on a command line.
// Values may contain spaces when the pairs are separated by ';' or newlines.
func (p *UserProfile) ParseKeyValues(input string) error {
	for _, pair := range splitPairs(input) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: expected key=value, got %q", ErrInvalidProfile, pair)
		}
		if err := p.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func splitPairs(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	var parts []string
	if strings.ContainsAny(input, ";\n") {
		parts = strings.FieldsFunc(input, func(r rune) bool { return r == ';' || r == '\n' })
	} else {
		parts = strings.Fields(input)
	}
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Float is a convenience for building profiles in code.
func Float(v float64) *float64 { return &v }

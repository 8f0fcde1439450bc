package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"diet-planner/internal/nutrition"
	"diet-planner/internal/recipe"
)

// NoRecipe is what an unfilled slot encodes as.
const NoRecipe = "No suitable recipe found"

// Meal is a slot of a day. A nil Recipe means no candidate was found.
type Meal struct {
	Slot   string
	Timing string
	Recipe *recipe.Recipe
}

// Filled reports whether the slot has a recipe.
func (m Meal) Filled() bool { return m.Recipe != nil }

type mealRecord struct {
	MealType       string   `json:"meal_type"`
	Timing         string   `json:"timing"`
	RecipeID       int64    `json:"recipe_id"`
	RecipeName     string   `json:"recipe_name"`
	RecipeMealType string   `json:"recipe_meal_type,omitempty"`
	Ingredients    []string `json:"ingredients"`
	Instructions   string   `json:"instructions"`
	Calories       float64  `json:"calories"`
	Proteins       float64  `json:"proteins"`
	Carbs          float64  `json:"carbs"`
	Fats           float64  `json:"fats"`
	Sodium         float64  `json:"sodium"`
	Fiber          float64  `json:"fiber"`
	PrepTime       int      `json:"prep_time,omitempty"`
}

// MarshalJSON encodes a filled meal as a record and an unfilled one as the
// NoRecipe string.
func (m Meal) MarshalJSON() ([]byte, error) {
	if m.Recipe == nil {
		return json.Marshal(NoRecipe)
	}
	r := m.Recipe
	return json.Marshal(mealRecord{
		MealType:       m.Slot,
		Timing:         m.Timing,
		RecipeID:       r.ID,
		RecipeName:     r.Name,
		RecipeMealType: r.MealType,
		Ingredients:    r.Ingredients,
		Instructions:   r.Instructions,
		Calories:       r.Nutrition.Calories,
		Proteins:       r.Nutrition.Protein,
		Carbs:          r.Nutrition.Carbs,
		Fats:           r.Nutrition.Fat,
		Sodium:         r.Nutrition.Sodium,
		Fiber:          r.Nutrition.Fiber,
		PrepTime:       r.PrepTime,
	})
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (m *Meal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = Meal{}
		return nil
	}
	var rec mealRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to decode meal: %w", err)
	}
	*m = Meal{
		Slot:   rec.MealType,
		Timing: rec.Timing,
		Recipe: &recipe.Recipe{
			ID:           rec.RecipeID,
			Name:         rec.RecipeName,
			MealType:     rec.RecipeMealType,
			Ingredients:  rec.Ingredients,
			Instructions: rec.Instructions,
			PrepTime:     rec.PrepTime,
			Nutrition: recipe.Nutrition{
				Calories: rec.Calories,
				Protein:  rec.Proteins,
				Carbs:    rec.Carbs,
				Fat:      rec.Fats,
				Sodium:   rec.Sodium,
				Fiber:    rec.Fiber,
			},
		},
	}
	return nil
}

// DailyTotals sums a day's meals. Percentages are set only when the day
// has calories.
type DailyTotals struct {
	Calories       float64  `json:"calories"`
	Proteins       float64  `json:"proteins"`
	Carbs          float64  `json:"carbs"`
	Fats           float64  `json:"fats"`
	Sodium         float64  `json:"sodium"`
	Fiber          float64  `json:"fiber"`
	CarbPercent    *float64 `json:"carb_percent,omitempty"`
	ProteinPercent *float64 `json:"protein_percent,omitempty"`
	FatPercent     *float64 `json:"fat_percent,omitempty"`
}

// DayPlan is one day of the plan, meals in pattern order.
type DayPlan struct {
	Day    int         `json:"day"`
	Meals  []Meal      `json:"meals"`
	Totals DailyTotals `json:"daily_totals"`
}

// OverallStats are per-day means over the whole plan.
type OverallStats struct {
	AvgDailyCalories      float64  `json:"avg_daily_calories"`
	AvgDailyProteins      float64  `json:"avg_daily_proteins"`
	AvgDailyCarbs         float64  `json:"avg_daily_carbs"`
	AvgDailyFats          float64  `json:"avg_daily_fats"`
	OverallProteinPercent *float64 `json:"overall_protein_percent,omitempty"`
	OverallCarbPercent    *float64 `json:"overall_carb_percent,omitempty"`
	OverallFatPercent     *float64 `json:"overall_fat_percent,omitempty"`
}

// MealPlan is the result of a generation request. A plan with a non-empty
// Error has no days and must not be used as a plan.
type MealPlan struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	ClusterID          int               `json:"cluster"`
	ClusterName        string            `json:"cluster_name,omitempty"`
	ClusterDescription string            `json:"cluster_description,omitempty"`
	Pattern            string            `json:"pattern,omitempty"`
	Targets            nutrition.Targets `json:"targets"`
	Relaxed            bool              `json:"relaxed_filtering"`
	CandidateCount     int               `json:"candidate_count"`
	Days               []DayPlan         `json:"days"`
	Overall            *OverallStats     `json:"overall_stats,omitempty"`
	Error              string            `json:"error,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// Failed reports whether generation failed.
func (mp *MealPlan) Failed() bool { return mp.Error != "" }

// UnmarshalJSON restores the slot names of unfilled meals from the pattern.
func (mp *MealPlan) UnmarshalJSON(data []byte) error {
	type alias MealPlan
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*mp = MealPlan(a)

	pat, ok := PatternByName(mp.Pattern)
	if !ok {
		return nil
	}
	for d := range mp.Days {
		for i := range mp.Days[d].Meals {
			if i >= len(pat.Slots) {
				break
			}
			m := &mp.Days[d].Meals[i]
			if m.Slot == "" {
				m.Slot = pat.Slots[i].Name
				m.Timing = pat.Slots[i].Timing
			}
		}
	}
	return nil
}

func totalsFor(meals []Meal) DailyTotals {
	var n recipe.Nutrition
	for _, m := range meals {
		if m.Recipe != nil {
			n = n.Add(m.Recipe.Nutrition)
		}
	}
	t := DailyTotals{
		Calories: n.Calories,
		Proteins: n.Protein,
		Carbs:    n.Carbs,
		Fats:     n.Fat,
		Sodium:   n.Sodium,
		Fiber:    n.Fiber,
	}
	if t.Calories > 0 {
		if c, p, f, ok := nutrition.MacroPercentages(t.Proteins, t.Carbs, t.Fats); ok {
			t.CarbPercent, t.ProteinPercent, t.FatPercent = &c, &p, &f
		}
	}
	return t
}

func overallFor(days []DayPlan) *OverallStats {
	if len(days) == 0 {
		return nil
	}
	var cal, prot, carbs, fats float64
	for _, d := range days {
		cal += d.Totals.Calories
		prot += d.Totals.Proteins
		carbs += d.Totals.Carbs
		fats += d.Totals.Fats
	}
	n := float64(len(days))
	stats := &OverallStats{
		AvgDailyCalories: roundEven(cal / n),
		AvgDailyProteins: roundEven(prot / n),
		AvgDailyCarbs:    roundEven(carbs / n),
		AvgDailyFats:     roundEven(fats / n),
	}
	if c, p, f, ok := nutrition.MacroPercentages(prot, carbs, fats); ok {
		stats.OverallCarbPercent, stats.OverallProteinPercent, stats.OverallFatPercent = &c, &p, &f
	}
	return stats
}

package recipe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var columnAliases = map[string]string{
	"recipe_id":       "id",
	"title":           "name",
	"proteins":        "protein",
	"fats":            "fat",
	"carbohydrates":   "carbs",
	"difficulty":      "cooking_difficulty",
	"prep_time_mins":  "prep_time",
	"cuisine":         "diet_type",
	"cuisine_type":    "diet_type",
	"ingredient_list": "ingredients",
}

func normalizeColumn(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	if alias, ok := columnAliases[h]; ok {
		return alias
	}
	return h
}

// LoadCSVFile reads recipes from a CSV file on disk.
func LoadCSVFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe CSV: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses a recipe table with a header row. Flag columns that are
// missing, or empty in a row, leave the flag absent. The diet_type column
// carries the cuisine tag. SourceID is the id cell, or name and meal type
// when the file has no ids.
func LoadCSV(r io.Reader) (Set, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("recipe CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeColumn(h)] = i
	}
	for _, required := range []string{"name", "meal_type", "calories"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("recipe CSV missing required column %q", required)
		}
	}

	var recipes Set
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := Recipe{
			Name:         get("name"),
			MealType:     strings.ToLower(get("meal_type")),
			Ingredients:  SplitIngredients(get("ingredients")),
			Instructions: get("instructions"),
			Difficulty:   get("cooking_difficulty"),
			Cuisine:      get("diet_type"),
			Source:       "csv",
		}

		if v := get("id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid id %q", line, v)
			}
			rec.ID = id
			rec.SourceID = v
		} else {
			rec.ID = int64(len(recipes) + 1)
			rec.SourceID = strings.ToLower(rec.Name) + "|" + rec.MealType
		}

		nums := []struct {
			col string
			dst *float64
		}{
			{"calories", &rec.Nutrition.Calories},
			{"protein", &rec.Nutrition.Protein},
			{"carbs", &rec.Nutrition.Carbs},
			{"fat", &rec.Nutrition.Fat},
			{"sodium", &rec.Nutrition.Sodium},
			{"fiber", &rec.Nutrition.Fiber},
		}
		for _, n := range nums {
			v := get(n.col)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, n.col, v)
			}
			*n.dst = f
		}

		if v := get("prep_time"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return nil, fmt.Errorf("line %d: invalid prep_time %q", line, v)
			}
			rec.PrepTime = int(f)
		}

		for _, flag := range FlagNames {
			if b, ok := ParseBool(get(flag)); ok {
				rec.Flags.Set(flag, b)
			}
		}

		recipes = append(recipes, rec)
	}

	return recipes, nil
}

// ParseBool accepts the spellings found in exported spreadsheets.
func ParseBool(v string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y", "t", "1.0":
		return true, true
	case "false", "0", "no", "n", "f", "0.0":
		return false, true
	}
	return false, false
}

// SplitIngredients turns a single ingredient cell into a list. Pipes or
// semicolons win over commas when present.
func SplitIngredients(v string) []string {
	v = strings.TrimSpace(strings.Trim(v, "[]"))
	if v == "" {
		return nil
	}
	sep := ","
	switch {
	case strings.Contains(v, "|"):
		sep = "|"
	case strings.Contains(v, ";"):
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		part = strings.Trim(strings.TrimSpace(part), `'"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

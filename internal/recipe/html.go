package recipe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoRecipeCard means the post has no structured recipe markup and needs
// the LLM extractor.
var ErrNoRecipeCard = errors.New("no recipe card in post")

// ParseRecipeHTML reads a post written with the recipe-card markup:
//
//	<div class="recipe-card" data-meal-type="lunch" data-prep-time="20"
//	     data-difficulty="Easy" data-cuisine="Mediterranean">
//	  <ul class="ingredients"><li>...</li></ul>
//	  <ol class="instructions"><li>...</li></ol>
//	  <table class="nutrition"><tr><th>Calories</th><td>420</td></tr>...</table>
//	  <ul class="diet-flags"><li data-flag="vegetarian">yes</li>...</ul>
//	</div>
func ParseRecipeHTML(post PostData) (*Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(post.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse post HTML: %w", err)
	}

	card := doc.Find(".recipe-card").First()
	if card.Length() == 0 {
		return nil, ErrNoRecipeCard
	}

	rec := &Recipe{
		Name:            strings.TrimSpace(card.AttrOr("data-name", post.Title)),
		MealType:        strings.ToLower(strings.TrimSpace(card.AttrOr("data-meal-type", ""))),
		Difficulty:      strings.TrimSpace(card.AttrOr("data-difficulty", "")),
		Cuisine:         strings.TrimSpace(card.AttrOr("data-cuisine", "")),
		Source:          "ghost",
		SourceID:        post.ID,
		SourceUpdatedAt: post.UpdatedAt,
	}

	if v := card.AttrOr("data-prep-time", ""); v != "" {
		minutes, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid data-prep-time %q", v)
		}
		rec.PrepTime = minutes
	}

	card.Find(".ingredients li").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			rec.Ingredients = append(rec.Ingredients, text)
		}
	})

	var steps []string
	card.Find(".instructions li").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			steps = append(steps, text)
		}
	})
	if len(steps) > 0 {
		rec.Instructions = strings.Join(steps, " ")
	} else {
		rec.Instructions = cleanText(card.Find(".instructions").Text())
	}

	var parseErr error
	card.Find("table.nutrition tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(cleanText(row.Find("th").First().Text()))
		value := cleanText(row.Find("td").First().Text())
		if label == "" || value == "" {
			return
		}
		f, err := parseQuantity(value)
		if err != nil {
			parseErr = fmt.Errorf("invalid nutrition value for %s: %w", label, err)
			return
		}
		switch {
		case strings.HasPrefix(label, "calorie"), label == "energy":
			rec.Nutrition.Calories = f
		case strings.HasPrefix(label, "protein"):
			rec.Nutrition.Protein = f
		case strings.HasPrefix(label, "carb"):
			rec.Nutrition.Carbs = f
		case strings.HasPrefix(label, "fat"):
			rec.Nutrition.Fat = f
		case strings.HasPrefix(label, "sodium"):
			rec.Nutrition.Sodium = f
		case strings.HasPrefix(label, "fiber"), strings.HasPrefix(label, "fibre"):
			rec.Nutrition.Fiber = f
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	card.Find(".diet-flags li").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("data-flag", "")))
		if name == "" {
			return
		}
		if v, ok := ParseBool(cleanText(s.Text())); ok {
			rec.Flags.Set(name, v)
		}
	})

	card.Find(".tags li").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			rec.Tags = append(rec.Tags, text)
		}
	})

	if err := Validate(*rec); err != nil {
		return nil, fmt.Errorf("incomplete recipe card: %w", err)
	}
	return rec, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseQuantity reads the leading number of values like "420 kcal" or "12.5g".
func parseQuantity(v string) (float64, error) {
	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || v[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("no number in %q", v)
	}
	return strconv.ParseFloat(v[:end], 64)
}

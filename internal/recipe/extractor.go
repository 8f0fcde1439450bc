package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"diet-planner/internal/llm"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var extractorTemplate = template.Must(template.New("extractor").Parse(extractorPrompt))

// PostData is the raw source document a recipe is extracted from.
type PostData struct {
	ID        string
	Title     string
	UpdatedAt string
	HTML      string
}

// ExtractorResult pairs the extracted recipe with the LLM usage it cost.
type ExtractorResult struct {
	Recipe Recipe
	Meta   llm.AgentMeta
}

// Extractor turns free-form recipe posts into Recipes using an LLM.
type Extractor struct {
	textGen llm.TextGenerator
}

// NewExtractor creates a new Extractor.
func NewExtractor(textGen llm.TextGenerator) *Extractor {
	return &Extractor{textGen: textGen}
}

// ExtractRecipe asks the LLM for structured data and validates the answer.
// The returned recipe carries the post's source id and timestamp.
func (e *Extractor) ExtractRecipe(ctx context.Context, data PostData) (ExtractorResult, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := extractorTemplate.Execute(&buf, data); err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to build extractor prompt: %w", err)
	}

	resp, err := e.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	meta := llm.AgentMeta{
		AgentName: "Extractor",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp.Content)), &rec); err != nil {
		return ExtractorResult{Meta: meta}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}

	if rec.Name == "" {
		rec.Name = data.Title
	}
	rec.ID = 0
	rec.MealType = strings.ToLower(strings.TrimSpace(rec.MealType))
	rec.Source = "ghost"
	rec.SourceID = data.ID
	rec.SourceUpdatedAt = data.UpdatedAt

	if err := Validate(rec); err != nil {
		return ExtractorResult{Recipe: rec, Meta: meta}, fmt.Errorf("LLM returned an unusable recipe: %w", err)
	}

	return ExtractorResult{Recipe: rec, Meta: meta}, nil
}

// Validate checks the fields the planner relies on.
func Validate(r Recipe) error {
	switch r.MealType {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
	default:
		return fmt.Errorf("unknown meal type %q", r.MealType)
	}
	if r.Name == "" {
		return fmt.Errorf("missing name")
	}
	n := r.Nutrition
	if n.Calories <= 0 {
		return fmt.Errorf("calories must be positive")
	}
	if n.Protein < 0 || n.Carbs < 0 || n.Fat < 0 || n.Sodium < 0 || n.Fiber < 0 {
		return fmt.Errorf("nutrition values must be non-negative")
	}
	if r.PrepTime < 0 {
		return fmt.Errorf("prep time must be non-negative")
	}
	return nil
}

// Package clipper imports a recipe from an arbitrary web page.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diet-planner/internal/llm"
	"diet-planner/internal/recipe"

	"github.com/PuerkitoBio/goquery"
)

// Source is the recipe source recorded for clipped pages.
const Source = "web"

const maxPageBytes = 5 << 20

// Clipper fetches web pages and turns them into recipes.
type Clipper struct {
	httpClient *http.Client
	extractor  *recipe.Extractor
}

// Result is a clipped recipe. Meta is nil when no LLM call was needed.
type Result struct {
	Recipe recipe.Recipe
	Meta   *llm.AgentMeta
}

// NewClipper creates a new Clipper. Without an extractor only pages with
// recipe-card markup can be clipped.
func NewClipper(extractor *recipe.Extractor) *Clipper {
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		extractor:  extractor,
	}
}

// ClipURL fetches the page and reads the recipe from its recipe card, or
// asks the extractor when the page has none. The recipe is keyed by url.
func (c *Clipper) ClipURL(ctx context.Context, url string) (Result, error) {
	raw, err := c.fetch(ctx, url)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse page: %w", err)
	}
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	data := recipe.PostData{ID: url, Title: title, HTML: raw}
	rec, err := recipe.ParseRecipeHTML(data)
	if err == nil {
		rec.Source = Source
		return Result{Recipe: *rec}, nil
	}
	if !errors.Is(err, recipe.ErrNoRecipeCard) && c.extractor == nil {
		return Result{}, err
	}
	if c.extractor == nil {
		return Result{}, fmt.Errorf("page has no recipe card and no extractor is configured")
	}

	data.HTML = cleanText(doc)
	res, err := c.extractor.ExtractRecipe(ctx, data)
	meta := res.Meta
	if err != nil {
		return Result{Meta: &meta}, err
	}
	res.Recipe.Source = Source
	return Result{Recipe: res.Recipe, Meta: &meta}, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// cleanText drops page chrome and returns the visible body text.
func cleanText(doc *goquery.Document) string {
	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, header, footer, iframe, form, .ads, #ads").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

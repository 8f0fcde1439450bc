package clipper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"diet-planner/internal/llm"
	"diet-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTextGen struct {
	response string
	err      error
	prompt   string
}

func (m *mockTextGen) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response, Usage: llm.TokenUsage{PromptTokens: 50, CompletionTokens: 20}}, nil
}

const cardPage = `<html><head><title>Berry Oats | Blog</title></head><body>
<h1>Berry Oats</h1>
<div class="recipe-card" data-meal-type="breakfast" data-prep-time="5">
<ul class="ingredients"><li>oats</li><li>berries</li></ul>
<table class="nutrition"><tr><th>Calories</th><td>310</td></tr></table>
</div></body></html>`

const plainPage = `<html><head><script>alert('bad');</script></head><body>
<nav>Home | About</nav>
<h1>Tasty Stew</h1>
<div class="ads">Buy stuff!</div>
<p>Mix beans and water.</p>
<footer>Copyright 2024</footer>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/card", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(cardPage)) })
	mux.HandleFunc("/plain", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(plainPage)) })
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClipURL(t *testing.T) {
	ctx := context.Background()
	ts := newServer(t)

	t.Run("RecipeCard", func(t *testing.T) {
		res, err := NewClipper(nil).ClipURL(ctx, ts.URL+"/card")
		require.NoError(t, err)
		assert.Nil(t, res.Meta)
		assert.Equal(t, "Berry Oats", res.Recipe.Name)
		assert.Equal(t, recipe.MealBreakfast, res.Recipe.MealType)
		assert.Equal(t, Source, res.Recipe.Source)
		assert.Equal(t, ts.URL+"/card", res.Recipe.SourceID)
	})

	t.Run("Extractor", func(t *testing.T) {
		gen := &mockTextGen{response: `{"meal_type": "dinner", "ingredients": ["beans"], "nutrition": {"calories": 390}}`}
		res, err := NewClipper(recipe.NewExtractor(gen)).ClipURL(ctx, ts.URL+"/plain")
		require.NoError(t, err)
		require.NotNil(t, res.Meta)
		assert.Equal(t, 50, res.Meta.Usage.PromptTokens)
		assert.Equal(t, "Tasty Stew", res.Recipe.Name)
		assert.Equal(t, Source, res.Recipe.Source)

		assert.Contains(t, gen.prompt, "Mix beans and water.")
		assert.NotContains(t, gen.prompt, "alert('bad')")
		assert.NotContains(t, gen.prompt, "Buy stuff!")
		assert.NotContains(t, gen.prompt, "Copyright 2024")
		assert.NotContains(t, gen.prompt, "Home | About")
	})

	t.Run("ExtractorError", func(t *testing.T) {
		gen := &mockTextGen{err: errors.New("quota")}
		res, err := NewClipper(recipe.NewExtractor(gen)).ClipURL(ctx, ts.URL+"/plain")
		require.Error(t, err)
		require.NotNil(t, res.Meta)
	})

	t.Run("NoExtractor", func(t *testing.T) {
		_, err := NewClipper(nil).ClipURL(ctx, ts.URL+"/plain")
		assert.Error(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := NewClipper(nil).ClipURL(ctx, ts.URL+"/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"diet-planner/internal/ghost"
	"diet-planner/internal/metrics"
	"diet-planner/internal/recipe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const ghostSource = "ghost"

// IngestReport counts the outcome of one ingestion run.
type IngestReport struct {
	Fetched   int
	Parsed    int
	Extracted int
	Skipped   int
	Failed    int
}

// IngestRecipes fetches recipe posts from Ghost and stores them. Posts
// whose stored version matches their updated_at are skipped. Posts with
// recipe-card markup are parsed directly; the rest go through the LLM
// extractor, throttled to GeminiRPM calls per minute. A failing post is
// logged and counted; only fetch errors and cancellation abort the run.
func (a *App) IngestRecipes(ctx context.Context) (IngestReport, error) {
	var report IngestReport
	if a.ghostClient == nil {
		return report, errors.New("ghost client not configured")
	}

	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	report.Fetched = len(posts)
	a.logger.Info("fetched recipe posts", zap.Int("count", len(posts)))

	limit := rate.Inf
	if a.cfg.GeminiRPM > 0 {
		limit = rate.Limit(float64(a.cfg.GeminiRPM) / 60)
	}
	limiter := rate.NewLimiter(limit, 1)

	concurrency := a.cfg.IngestConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, post := range posts {
		post := post
		g.Go(func() error {
			result, err := a.processPost(gctx, limiter, post)
			a.collectors.ObserveIngest(result)

			mu.Lock()
			switch result {
			case metrics.IngestParsed:
				report.Parsed++
			case metrics.IngestExtracted:
				report.Extracted++
			case metrics.IngestSkipped:
				report.Skipped++
			default:
				report.Failed++
			}
			mu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.logger.Warn("failed to ingest post", zap.String("post_id", post.ID), zap.String("title", post.Title), zap.Error(err))
			}
			return nil
		})
	}

	err = g.Wait()
	if report.Parsed+report.Extracted > 0 {
		a.invalidateRecipes()
	}
	a.logger.Info("ingestion complete",
		zap.Int("parsed", report.Parsed),
		zap.Int("extracted", report.Extracted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	if err != nil {
		return report, fmt.Errorf("ingestion interrupted: %w", err)
	}
	return report, nil
}

// processPost stores one post and reports which path handled it.
func (a *App) processPost(ctx context.Context, limiter *rate.Limiter, post ghost.Post) (string, error) {
	version, err := a.recipeRepo.SourceVersion(ctx, ghostSource, post.ID)
	if err != nil {
		return metrics.IngestFailed, err
	}
	if version != "" && version == post.UpdatedAt {
		return metrics.IngestSkipped, nil
	}

	data := recipe.PostData{
		ID:        post.ID,
		Title:     post.Title,
		UpdatedAt: post.UpdatedAt,
		HTML:      post.HTML,
	}

	rec, err := recipe.ParseRecipeHTML(data)
	if err == nil {
		if err := a.saveRecipe(ctx, rec); err != nil {
			return metrics.IngestFailed, err
		}
		return metrics.IngestParsed, nil
	}
	if !errors.Is(err, recipe.ErrNoRecipeCard) {
		a.logger.Debug("recipe card unusable, trying extractor", zap.String("post_id", post.ID), zap.Error(err))
	}

	if a.extractor == nil {
		return metrics.IngestFailed, fmt.Errorf("post has no usable recipe card and no extractor is configured")
	}
	if err := limiter.Wait(ctx); err != nil {
		return metrics.IngestFailed, err
	}

	res, err := a.extractor.ExtractRecipe(ctx, data)
	if res.Meta.AgentName != "" {
		a.collectors.ObserveLLM(res.Meta)
		if recErr := a.metricsStore.RecordMeta(ctx, res.Meta); recErr != nil {
			a.logger.Warn("failed to record extractor metrics", zap.Error(recErr))
		}
	}
	if err != nil {
		return metrics.IngestFailed, err
	}

	if err := a.saveRecipe(ctx, &res.Recipe); err != nil {
		return metrics.IngestFailed, err
	}
	return metrics.IngestExtracted, nil
}

func (a *App) saveRecipe(ctx context.Context, rec *recipe.Recipe) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	if err := a.recipeRepo.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diet-planner/internal/app"
	"diet-planner/internal/config"
	"diet-planner/internal/database"
	"diet-planner/internal/llm"
	"diet-planner/internal/logger"
	"diet-planner/internal/metrics"
	"diet-planner/internal/model"
	"diet-planner/internal/telegram"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: cfg.Development})
	defer log.Sync()

	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var bundle *model.Bundle
	if cfg.ModelBundlePath != "" {
		if bundle, err = model.LoadBundle(cfg.ModelBundlePath); err != nil {
			log.Fatal("failed to load model bundle", zap.Error(err))
		}
	}

	collectors := metrics.NewCollectors()
	deps := app.Deps{
		Config:     cfg,
		DB:         db,
		Logger:     log,
		Bundle:     bundle,
		Collectors: collectors,
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal("failed to create Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		deps.TextGen = gemini
	}
	application := app.NewApp(deps)

	sessions := telegram.NewSessionRepository(db.SQL)
	if n, err := sessions.CleanupExpired(context.Background()); err != nil {
		log.Warn("failed to clean up sessions", zap.Error(err))
	} else if n > 0 {
		log.Info("expired sessions removed", zap.Int64("count", n))
	}

	bot, err := telegram.NewBot(cfg, application, sessions, collectors, log)
	if err != nil {
		log.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodPost, "/webhook", bot)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(collectors.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("telegram bot server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	bot.Wait()

	log.Info("server exiting")
}

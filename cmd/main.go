package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kdduha/glowu/backend/internal/config"
	"github.com/kdduha/glowu/backend/internal/gateway"
	"github.com/kdduha/glowu/backend/internal/handler"
	"github.com/kdduha/glowu/backend/internal/logger"
	"github.com/kdduha/glowu/backend/internal/service"
	"github.com/kdduha/glowu/backend/internal/upload"
	"github.com/kdduha/glowu/backend/web"

	_ "github.com/kdduha/glowu/backend/docs"
)

// @title GlowU API
// @version 1.0
// @description Skin analysis and skincare recommendations from a facial photo.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if envErr != nil {
		logg.Debug("no .env file loaded", zap.Error(envErr))
	}

	generator, err := newGenerator(ctx, cfg.AI)
	if err != nil {
		logg.Fatal("failed to create model client", zap.Error(err))
	}
	logg.Info("model client ready", zap.String("provider", cfg.AI.Provider))

	advisor := service.NewAdvisorService(logg, gateway.New(generator, logg))
	uploads := handler.NewUploadHandler(logg, upload.NewValidator(cfg.Upload.MaxBytes, cfg.Upload.MaxPixels), advisor)

	pages, err := handler.NewPageHandler(web.FS)
	if err != nil {
		logg.Fatal("failed to load pages", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler.NewRouter(logg, handler.RouterConfig{Timeout: cfg.Server.Timeout}, pages, uploads),
	}

	go func() {
		logg.Info("server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Fatal("server forced to shutdown", zap.Error(err))
	}
	logg.Info("server stopped")
}

func newGenerator(ctx context.Context, cfg config.AIConfig) (gateway.Generator, error) {
	gen := gateway.DefaultGenerationConfig()

	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gateway.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, gen)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderOpenAI:
		return gateway.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, gen), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}

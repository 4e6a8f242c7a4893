package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"surveyengine/internal/app"
	"surveyengine/internal/config"
	"surveyengine/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	slog.Info("endpoints",
		"login", "POST /v1/auth/login",
		"surveys", "POST/GET /v1/surveys",
		"statistics", "GET /v1/surveys/{surveyId}/statistics",
		"sessions", "POST /v1/surveys/{surveyId}/sessions",
		"respondent", "GET /v1/session, POST /v1/session/{answers,back,restart}",
		"live", "WS /v1/ws/surveys/{surveyId}/live",
	)

	if err := a.Run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	slog.Info("server exited")
}

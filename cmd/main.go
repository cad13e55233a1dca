package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"steelcraft-site/internal/app"
	"steelcraft-site/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		slog.Error("failed to assemble app", "err", err)
		os.Exit(1)
	}
	lambda.Start(a.Handler.Handle)
}

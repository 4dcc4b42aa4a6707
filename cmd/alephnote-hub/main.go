package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ustczzh/AlephNote/internal/buildinfo"
	"github.com/ustczzh/AlephNote/internal/hub"
	"github.com/ustczzh/AlephNote/internal/hub/config"
	"github.com/ustczzh/AlephNote/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	if cfg.IssueFor != "" {
		token, err := hub.IssueToken(cfg, cfg.IssueFor)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	logger := logging.New(cfg.LogLevel, "")
	ctx := context.Background()
	logger.Info(ctx, "AlephNote hub", "version", buildinfo.Version, "commit", buildinfo.Commit)

	app, err := hub.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)
}

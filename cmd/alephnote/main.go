package main

import (
	"context"
	"log"
	"os"

	"github.com/ustczzh/AlephNote/internal/buildinfo"
	"github.com/ustczzh/AlephNote/internal/cli"
	"github.com/ustczzh/AlephNote/internal/config"
	"github.com/ustczzh/AlephNote/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "Configuration validation failed", "error", err)
		os.Exit(1)
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "App init failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)

}

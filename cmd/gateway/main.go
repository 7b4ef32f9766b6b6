// Command gateway runs the reference companion gateway: a gRPC endpoint
// backed by PostgreSQL for records and an S3-compatible store for blobs.
//
// With -mint <user id> it prints an access token for that user and exits.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/server"
	"github.com/dmitrijs2005/companion/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.MintUserID != "" {
		if err := server.Mint(os.Stdout, cfg, cfg.MintUserID); err != nil {
			log.Fatalf("mint: %v", err)
		}
		return
	}

	level := os.Getenv("GATEWAY_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logger := logging.NewJSON(os.Stdout, level)

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}

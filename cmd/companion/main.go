package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/companion/internal/client/cli"
	"github.com/dmitrijs2005/companion/internal/client/config"
	"github.com/dmitrijs2005/companion/internal/logging"
)

func main() {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := os.Getenv("COMPANION_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := logging.NewText(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.NewOpener(cfg, logger, os.Stderr))
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zork-argento/gateway/internal/assistant"
	"github.com/zork-argento/gateway/internal/config"
	"github.com/zork-argento/gateway/internal/server"
	"github.com/zork-argento/gateway/internal/store"
	"github.com/zork-argento/gateway/internal/zork"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		runCmd(nil)
		return
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "version":
		fmt.Printf("zork-gateway %s (%s)\n", Version, Commit)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `zork-gateway

Usage:
  zork-gateway [run] [flags]
  zork-gateway version

Commands:
  run         Start the HTTP gateway (default when no command is given).
  version     Print build information.

Configuration comes from environment variables (OPENAI_API_KEY,
OPENAI_ASSISTANT_ID, PORT, DB_PATH, ...) and an optional YAML file.

`)
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config file path (env vars override)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "db_path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()
	logger.Info("store ready", "db_path", cfg.DBPath)

	api, err := assistant.New(assistant.Options{
		APIKey:      cfg.OpenAIAPIKey,
		AssistantID: cfg.AssistantID,
	})
	if err != nil {
		logger.Error("failed to build assistant client", "error", err)
		os.Exit(1)
	}

	svc, err := zork.NewService(zork.ServiceOptions{
		Logger:       logger,
		Store:        st,
		API:          api,
		PollInterval: cfg.RunPollInterval,
		WaitTimeout:  cfg.RunWaitTimeout,
	})
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Options{
		Logger:  logger,
		Config:  cfg,
		Service: svc,
		Version: Version,
	})
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	_ = srv.Close()
}

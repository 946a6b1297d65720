package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hunterwarburton/fva/internal/app"
	"github.com/hunterwarburton/fva/internal/config"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/tui"
)

func main() {
	configPath := flag.String("config", os.Getenv("FVA_CONFIG"), "Path to YAML config file")
	logPath := flag.String("log", "", "Write logs to this file instead of discarding them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// The terminal belongs to the UI.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger.SetOutput(logOut)
	logger.InitLevel(cfg.LogLevel)

	ctx := context.Background()
	services, err := app.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize services: %v\n", err)
		os.Exit(1)
	}
	defer services.Close(ctx)

	p := tea.NewProgram(tui.New(services.Pipeline, cfg.Index.Namespace, cfg.Timeouts.Generation+cfg.Timeouts.Retrieval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}

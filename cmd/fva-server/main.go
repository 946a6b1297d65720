package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hunterwarburton/fva/internal/app"
	"github.com/hunterwarburton/fva/internal/auth"
	"github.com/hunterwarburton/fva/internal/config"
	"github.com/hunterwarburton/fva/internal/library"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("FVA_CONFIG"), "Path to YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	importPath := flag.String("import-library", "", "Import a JSON catalog into the SQL library source and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	logger.InitLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *importPath != "" {
		if err := importLibrary(ctx, cfg.Library.Source, *importPath); err != nil {
			logger.Error("Library import failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	logger.Info("Starting FVA web server...")
	services, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize services: %v", err)
		os.Exit(1)
	}
	defer services.Close(context.Background())

	srvCfg := server.Config{
		Pipeline:  services.Pipeline,
		Chat:      services.Chat,
		Sources:   services.Index,
		Namespace: cfg.Index.Namespace,
		Policy:    services.Policy,
	}

	store, err := library.Open(ctx, cfg.Library.Source)
	if err != nil {
		logger.Warn("Document library unavailable: %v", err)
		srvCfg.LibraryErr = err
	} else {
		srvCfg.Library = store
		if js, ok := store.(*library.JSONStore); ok && cfg.Library.Watch {
			watchLibrary(ctx, js)
		}
	}

	if cfg.Auth.Enabled() {
		srvCfg.Auth = auth.NewAuth0(auth.Auth0Config{
			Domain:            cfg.Auth.Domain,
			ClientID:          cfg.Auth.ClientID,
			ClientSecret:      cfg.Auth.ClientSecret,
			CallbackURL:       cfg.Auth.CallbackURL,
			LogoutCallbackURL: cfg.Auth.LogoutCallbackURL,
		})
		srvCfg.Sessions = auth.NewSessions(cfg.Auth.SessionSecret, 12*time.Hour, strings.HasPrefix(cfg.Auth.CallbackURL, "https://"))
		logger.Info("Auth0 login enabled for %s", cfg.Auth.Domain)
	} else {
		logger.Warn("AUTH0_DOMAIN not set, serving without login")
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		logger.Error("Failed to create server: %v", err)
		os.Exit(1)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("Shutting down web server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown: %v", err)
	}
	logger.Info("Web server has been shut down")
}

func watchLibrary(ctx context.Context, store *library.JSONStore) {
	w, err := library.NewWatcher(store)
	if err != nil {
		logger.Warn("Library file watching disabled: %v", err)
		return
	}
	w.OnReload = func(err error) {
		if err == nil {
			logger.Info("Library catalog reloaded from %s", store.Path())
		}
	}
	go func() {
		defer w.Close()
		w.Run(ctx)
	}()
}

// importLibrary loads a JSON catalog into the configured SQL store.
func importLibrary(ctx context.Context, source, jsonPath string) error {
	src, err := library.OpenJSON(jsonPath)
	if err != nil {
		return err
	}
	docs, err := src.List(ctx)
	if err != nil {
		return err
	}

	dst, err := library.Open(ctx, source)
	if err != nil {
		return err
	}
	defer dst.Close()

	importer, ok := dst.(library.Importer)
	if !ok {
		return errors.New("library source " + source + " is not a database")
	}
	n, err := importer.Import(ctx, docs)
	if err != nil {
		return err
	}
	logger.Info("Imported %d documents into %s", n, source)
	return nil
}

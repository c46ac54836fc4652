package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bodul/crossgen/internal/auth"
	"github.com/bodul/crossgen/internal/clue"
	"github.com/bodul/crossgen/internal/config"
	"github.com/bodul/crossgen/internal/logger"
	"github.com/bodul/crossgen/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("CROSSGEN_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	logCfg, err := logger.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Invalid logging configuration", "error", err)
		os.Exit(1)
	}
	_, logCloser, err := logger.Initialize(logCfg)
	if err != nil {
		logger.Error("Impossible d'initialiser les logs", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(*configPath); err != nil {
		logger.Error("Server stopped", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.Open(ctx, storage.Config{
		Driver:       cfg.Storage.Driver,
		SQLitePath:   cfg.Storage.SQLitePath,
		DatabaseURL:  cfg.Storage.DatabaseURL,
		ProjectID:    cfg.Storage.ProjectID,
		QueryTimeout: cfg.Storage.QueryTimeout,
	})
	if err != nil {
		return err
	}
	store := NewStore(repo)
	defer store.Close()
	logger.Info("Storage ready", "driver", cfg.Storage.Driver)

	var describer clue.Describer
	if cfg.Clues.Enabled() {
		gemini, err := clue.NewGemini(ctx, cfg.Clues.ProjectID, cfg.Clues.Region, cfg.Clues.Model)
		if err != nil {
			return err
		}
		defer gemini.Close()
		describer = gemini
		logger.Info("Client Gemini initialisé", "project", cfg.Clues.ProjectID, "model", cfg.Clues.Model)
	} else {
		logger.Info("GCP_PROJECT_ID non défini, définitions désactivées")
	}

	tokens, err := auth.TokenizerConfig{
		KeyReader: rand.Reader,
		Validity:  cfg.Auth.TokenValidity,
	}.NewTokenizer()
	if err != nil {
		return err
	}

	srv := NewServer(cfg, store, describer, tokens)
	defer srv.Close()

	httpServer := newHTTPServer(":"+cfg.Server.Port, srv)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serveur démarré", "url", "http://localhost:"+cfg.Server.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newHTTPServer serves srv on addr. Shutdown cancels srv so that open
// event streams return and the drain can finish.
func newHTTPServer(addr string, srv *Server) *http.Server {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(srv.cancel)
	return httpServer
}

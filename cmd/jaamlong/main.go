// Command jaamlong runs the bridge coordinator HTTP API.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/saingsab/jaamlong/internal/chain"
	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/coordinator"
	"github.com/saingsab/jaamlong/internal/httpapi"
	"github.com/saingsab/jaamlong/internal/metrics"
	"github.com/saingsab/jaamlong/internal/signer"
	"github.com/saingsab/jaamlong/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; environment-only without it)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger store.Ledger
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to the database")
		}
		ledger = pg
		logger.Info().Msg("connected to the database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set; using in-memory ledger")
		ledger = store.NewMemory()
	}
	defer ledger.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	gateway := chain.NewGateway(ledger, &cfg.Chain, logger, m)
	defer gateway.Close()

	signerClient := signer.NewClient(cfg.Signer.Endpoint, cfg.Signer.Username, cfg.Signer.Password, cfg.Chain.RPCTimeout)
	coord := coordinator.New(ledger, gateway, signerClient, cfg, logger, m)
	api := httpapi.NewServer(coord, ledger, cfg.Server, logger)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(registry),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("coordinator started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	// Broadcasts already accepted by a destination chain must still reach a
	// terminal state.
	coord.Drain()
	logger.Info().Msg("stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

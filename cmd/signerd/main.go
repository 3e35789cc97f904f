// Command signerd runs the transaction-signing service. It holds the bridge
// signing key and exposes the two signing endpoints behind bearer-token auth.
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

	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/metrics"
	"github.com/saingsab/jaamlong/internal/signer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; environment-only without it)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(*configPath); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}

	lvl, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	if cfg.Signer.PrivateKey == "" {
		logger.Fatal().Msg("PRIVATE_KEY must be set")
	}
	if cfg.Signer.SecretKey == "" {
		logger.Fatal().Msg("SECRET_KEY must be set")
	}

	registry := prometheus.NewRegistry()
	service, err := signer.NewService(cfg.Signer, logger, metrics.New(registry))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise signer")
	}

	server := &http.Server{
		Addr:         cfg.Signer.Addr,
		Handler:      service.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", cfg.Signer.Addr).Msg("signer started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/petitbac/go/internal/eventbus"
	"github.com/mcdev12/petitbac/go/internal/game"
	"github.com/mcdev12/petitbac/go/internal/gateway"
	"github.com/mcdev12/petitbac/go/internal/results"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCmd(&Config{}).ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway failed")
	}
}

func serve(ctx context.Context, cfg *Config) error {
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	defaults, err := loadDefaults(cfg.configFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := game.Options{
		Defaults:    defaults,
		IdleTimeout: cfg.idleTimeout,
	}
	checks := make(map[string]gateway.HealthCheck)

	if cfg.natsURL != "" {
		jsCfg := eventbus.DefaultJetStreamConfig()
		jsCfg.URL = cfg.natsURL

		publisher, err := eventbus.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to event bus: %w", err)
		}
		defer publisher.Close()

		mirror := eventbus.NewMirror(publisher, jsCfg.SubjectPrefix, eventbus.DefaultQueueSize, nil)
		go mirror.Run(ctx)
		opts.Sink = mirror
		checks["event_bus"] = publisher.Ping
	}

	var archive gateway.ResultsProvider
	if dsn := cfg.resultsDSN(); dsn != "" {
		repo, err := results.NewRepository(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to results database: %w", err)
		}
		defer repo.Close()

		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}

		recorder := results.NewRecorder(repo, 0)
		go recorder.Run(ctx)
		opts.Archiver = recorder
		archive = repo
		checks["database"] = repo.Ping
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.PublicURL = cfg.publicURL
	gatewayConfig.ConnectionConfig.RateLimit = rate.Limit(cfg.rateLimit)
	gatewayConfig.ConnectionConfig.RateBurst = cfg.rateBurst

	service := gateway.NewService(gatewayConfig, opts, archive)
	for name, check := range checks {
		service.AddHealthCheck(name, check)
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str("addr", server.Addr).
		Bool("event_bus", opts.Sink != nil).
		Bool("archive", archive != nil).
		Dur("idle_timeout", cfg.idleTimeout).
		Msg("starting game gateway")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		service.Stop()
		return fmt.Errorf("http server failed: %w", err)
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	// WebSocket connections are hijacked and survive Shutdown.
	return service.Stop()
}

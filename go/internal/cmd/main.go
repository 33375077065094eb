package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := loadConfig()
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if !cfg.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger := log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	// the orchestrator outlives the signal so in-flight requests can drain
	runCtx, cancelRun := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := services.Orchestrator.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("orchestrator exited")
		}
	}()

	if recovered, err := services.Orchestrator.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("session recovery failed")
	} else if !recovered {
		log.Info().Msg("no session to recover")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := services.Gateway.Start(runCtx); err != nil {
			log.Error().Err(err).Msg("gateway exited")
		}
	}()

	if services.Listener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting outbox listener")
			if err := services.Listener.Start(runCtx); err != nil {
				log.Error().Err(err).Msg("outbox listener exited")
			}
		}()
	}

	server := setupServer(cfg, services)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Run persists the live session before returning
	cancelRun()
	wg.Wait()
	log.Info().Msg("graceful shutdown complete")
}

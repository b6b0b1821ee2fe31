package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/adapters/auth"
	router "github.com/vidmesh/vidmesh/internal/adapters/http"
	signaladapter "github.com/vidmesh/vidmesh/internal/adapters/signal"
	"github.com/vidmesh/vidmesh/internal/app"
	"github.com/vidmesh/vidmesh/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	presence := app.NewPresence()
	gateway := app.NewGateway(presence, app.SimplePolicy{})
	verifier := auth.NewHMACVerifier(cfg.Secret)
	limiter := signaladapter.NewJoinRateLimiter(10, time.Minute)
	ctl := signaladapter.NewController(gateway, verifier, limiter, cfg)

	r := router.SetupRouter(ctx, cfg, ctl, gateway, verifier, gateway)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("vidmesh signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

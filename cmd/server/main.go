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

	router "github.com/avelose/scraplink/internal/adapters/http"
	signalws "github.com/avelose/scraplink/internal/adapters/signal"
	"github.com/avelose/scraplink/internal/app"
	"github.com/avelose/scraplink/internal/config"
	"github.com/avelose/scraplink/internal/storage/redisstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	rdb, err := redisstore.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connection established")

	reg := app.NewRegistry()
	relay := app.NewRouter(reg)
	limiter := app.NewSignalRateLimiter(cfg.RateLimit, cfg.RateLimitInterval)
	ctl := signalws.NewController(reg, relay, limiter, cfg)

	r := router.SetupRouter(cfg, router.Deps{
		Signal:      ctl,
		Profiles:    redisstore.NewProfileStore(rdb),
		Transcripts: redisstore.NewTranscriptStore(rdb),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("scraplink relay started")
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
	reg.Shutdown()
	log.Info().Msg("Server exited gracefully")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/pokedex-browser/pkg/browse"
	"github.com/Sternrassler/pokedex-browser/pkg/catalog"
	"github.com/Sternrassler/pokedex-browser/pkg/client"
	"github.com/Sternrassler/pokedex-browser/pkg/config"
	"github.com/Sternrassler/pokedex-browser/pkg/logging"
	"github.com/Sternrassler/pokedex-browser/pkg/render"
	"github.com/Sternrassler/pokedex-browser/pkg/session"
	"github.com/Sternrassler/pokedex-browser/pkg/web"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n\n%s", err, config.Usage())
		os.Exit(2)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	handler, closeClient, err := newHandler(cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeClient()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr).
			Str("catalog", cfg.BaseURL).
			Int("page_size", cfg.PageSize).
			Str("sessions", cfg.SessionBackend).
			Msg("Starting catalog server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newHandler wires client, fetcher, controller, renderer and server.
func newHandler(cfg config.Config, store session.Store, logger zerolog.Logger) (http.Handler, func(), error) {
	clientCfg := client.DefaultConfig(cfg.UserAgent)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.Timeout = cfg.HTTPTimeout
	clientCfg.Retry.MaxAttempts = cfg.MaxAttempts

	apiClient, err := client.New(clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create catalog client: %w", err)
	}

	fetcherCfg := catalog.DefaultConfig()
	fetcherCfg.PageSize = cfg.PageSize
	fetcherCfg.DetailConcurrency = cfg.DetailConcurrency
	fetcherCfg.DetailTimeout = cfg.HTTPTimeout

	fetcher, err := catalog.NewFetcher(apiClient, fetcherCfg)
	if err != nil {
		apiClient.Close()
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}

	controller, err := browse.NewController(fetcher)
	if err != nil {
		apiClient.Close()
		return nil, nil, fmt.Errorf("create controller: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		apiClient.Close()
		return nil, nil, err
	}

	srv, err := web.New(web.Config{
		Controller: controller,
		Store:      store,
		Renderer:   renderer,
		Logger:     logger.With().Str("component", "web").Logger(),
		// a page is a list call plus one round of parallel detail calls
		LoadTimeout: 2*cfg.HTTPTimeout + 5*time.Second,
		SessionTTL:  cfg.SessionTTL,
	})
	if err != nil {
		apiClient.Close()
		return nil, nil, err
	}

	return srv.Handler(), func() { apiClient.Close() }, nil
}

// newStore builds the configured session backend.
func newStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (session.Store, func(), error) {
	if cfg.SessionBackend != config.BackendRedis {
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
	}
	logger.Info().Str("addr", cfg.RedisURL).Msg("Connected to Redis")

	return session.NewRedisStore(redisClient, cfg.SessionTTL), func() { redisClient.Close() }, nil
}

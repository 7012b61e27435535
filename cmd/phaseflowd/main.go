package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/phaseflow/phaseflow/internal/api"
	"github.com/phaseflow/phaseflow/internal/cache"
	"github.com/phaseflow/phaseflow/internal/config"
	"github.com/phaseflow/phaseflow/internal/health"
	"github.com/phaseflow/phaseflow/internal/llm"
	"github.com/phaseflow/phaseflow/internal/metrics"
	"github.com/phaseflow/phaseflow/internal/planner"
	"github.com/phaseflow/phaseflow/internal/prompt"
	"github.com/phaseflow/phaseflow/internal/retry"
	"github.com/phaseflow/phaseflow/internal/session"
	"github.com/phaseflow/phaseflow/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("backend", cfg.GenerationBackend).
		Str("model", cfg.Model).
		Msg("starting phaseflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Store
	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// Generation provider
	var provider llm.Provider
	switch {
	case cfg.GeminiEnabled():
		provider, err = llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey,
			llm.WithGeminiModel(cfg.Model),
			llm.WithGeminiLogger(logger),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init Gemini provider")
		}
	default:
		provider = llm.NewGatewayProvider(cfg.GatewayAPIKey,
			llm.WithGatewayURL(cfg.GatewayURL),
			llm.WithModel(cfg.Model),
			llm.WithHTTPClient(&http.Client{Timeout: cfg.GenerationTimeout}),
			llm.WithLogger(logger),
		)
	}

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := st.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Metrics
	m := metrics.New()

	// Planner service
	opts := []planner.Option{
		planner.WithLimits(prompt.Limits{
			MaxProfileChars:     cfg.MaxProfileChars,
			MaxDescriptionChars: cfg.MaxDescriptionChars,
			MaxArtifactChars:    cfg.MaxArtifactChars,
			MaxRefinementChars:  cfg.MaxRefinementChars,
		}),
		planner.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
			Jitter:      cfg.RetryJitter,
		}),
		planner.WithMetrics(m),
		planner.WithLogger(logger),
	}
	if cfg.CacheCapacity > 0 {
		opts = append(opts, planner.WithCache(
			cache.New[string, string](cfg.CacheCapacity, cfg.CacheTTL),
		))
	}
	svc := planner.NewService(provider, opts...)

	// Sessions
	var sessions *session.Manager
	if cfg.AuthMode == "session" {
		sessions, err = session.NewManager(st, cfg.SessionSecret, cfg.SessionTTL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init session manager")
		}

		// Periodic idle-session cleanup
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := sessions.PruneIdle(); err != nil {
						logger.Warn().Err(err).Msg("session prune failed")
					}
				}
			}
		}()
	}

	// API server
	srv := api.NewServer(
		api.ServerConfig{
			ListenAddr: cfg.ListenAddr,
			AuthConfig: api.AuthConfig{
				Mode:     cfg.AuthMode,
				APIKey:   cfg.APIKey,
				Sessions: sessions,
			},
			RateLimit: api.RateLimitConfig{
				RPS:   cfg.RateLimitRPS,
				Burst: cfg.RateLimitBurst,
			},
			CORSOrigins: cfg.CORSOrigins,
		},
		svc, st, sessions, checker, m,
		&api.RuntimeConfig{
			Environment:       cfg.Environment,
			LogLevel:          cfg.LogLevel,
			ListenAddr:        cfg.ListenAddr,
			GenerationBackend: cfg.GenerationBackend,
			Model:             cfg.Model,
			AuthMode:          cfg.AuthMode,
			RateLimitRPS:      cfg.RateLimitRPS,
			RateLimitBurst:    cfg.RateLimitBurst,
		},
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	cancel()

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("phaseflow stopped")
}

// Command smoketest verifies the deployment prerequisites: it opens the
// store, runs migrations, and sends one trivial completion through the
// configured generation backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phaseflow/phaseflow/internal/config"
	"github.com/phaseflow/phaseflow/internal/llm"
	"github.com/phaseflow/phaseflow/internal/store"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ok := true

	// Store check: open, migrate, ping.
	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.DBPath).Msg("store check FAILED")
		ok = false
	} else {
		if err := st.DB().PingContext(ctx); err != nil {
			logger.Error().Err(err).Msg("store ping FAILED")
			ok = false
		} else {
			logger.Info().Str("db_path", cfg.DBPath).Msg("store check ok")
		}
		st.Close()
	}

	// Generation check: one tiny round trip.
	var provider llm.Provider
	switch {
	case cfg.GeminiEnabled():
		provider, err = llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, llm.WithGeminiModel(cfg.Model))
		if err != nil {
			logger.Error().Err(err).Msg("gemini init FAILED")
			os.Exit(1)
		}
	default:
		provider = llm.NewGatewayProvider(cfg.GatewayAPIKey,
			llm.WithGatewayURL(cfg.GatewayURL),
			llm.WithModel(cfg.Model),
			llm.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		)
	}

	start := time.Now()
	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		UserPrompt: "Reply with the single word OK.",
	})
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.GenerationBackend).Msg("generation check FAILED")
		ok = false
	} else {
		logger.Info().
			Str("backend", cfg.GenerationBackend).
			Str("model", resp.Model).
			Dur("elapsed", time.Since(start)).
			Str("reply", strings.TrimSpace(resp.Text)).
			Msg("generation check ok")
	}

	if !ok {
		fmt.Fprintln(os.Stderr, "smoketest: FAILED")
		os.Exit(1)
	}
	fmt.Println("smoketest: all checks passed")
}

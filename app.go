package main

import (
	"fmt"

	"github.com/Skufu/Health-Info-Assistant/internal/config"
	"github.com/Skufu/Health-Info-Assistant/internal/history"
	"github.com/Skufu/Health-Info-Assistant/internal/llm"
	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/video"
)

func retryPolicy(cfg config.RetryConfig) llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
	}
}

// buildChain wires Gemini, then Groq, then the canned local answers.
// A tier without an API key is skipped.
func buildChain(cfg *config.Config) (*llm.Chain, error) {
	l := log.L()
	policy := retryPolicy(cfg.Retry)

	var tiers []llm.Tier
	if cfg.Gemini.APIKey != "" {
		tiers = append(tiers, llm.Tier{
			Provider: llm.NewGeminiClient(llm.GeminiConfig{
				APIKey:  cfg.Gemini.APIKey,
				BaseURL: cfg.Gemini.BaseURL,
				Model:   cfg.Gemini.Model,
				Timeout: cfg.Gemini.Timeout,
			}),
			Retry: policy,
		})
	} else {
		l.Warn().Str(log.FieldProvider, "gemini").Msg("api key not set, tier disabled")
	}

	if cfg.Groq.APIKey != "" {
		tiers = append(tiers, llm.Tier{
			Provider: llm.NewGroqClient(llm.GroqConfig{
				APIKey:  cfg.Groq.APIKey,
				BaseURL: cfg.Groq.BaseURL,
				Model:   cfg.Groq.Model,
				Timeout: cfg.Groq.Timeout,
			}),
			Retry: policy,
		})
	} else {
		l.Warn().Str(log.FieldProvider, "groq").Msg("api key not set, tier disabled")
	}

	local, err := llm.NewLocalProvider()
	if err != nil {
		return nil, fmt.Errorf("load local answers: %w", err)
	}
	return llm.NewChain(local, tiers...), nil
}

func buildHistory(cfg config.HistoryConfig) (history.Store, error) {
	switch cfg.Driver {
	case "memory":
		return history.NewMemoryStore(), nil
	case "sqlite", "":
		store, err := history.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// buildVideoCache uses Redis when enabled and reachable, otherwise an
// in-process cache.
func buildVideoCache(cfg *config.Config) video.Cache {
	l := log.L()
	if !cfg.Redis.Enabled {
		return video.NewMemoryCache()
	}
	cache, err := video.NewRedisCache(video.RedisOptions{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		l.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unavailable, using in-memory video cache")
		return video.NewMemoryCache()
	}
	l.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return cache
}

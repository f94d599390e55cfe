package commands

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/rohan1090/market-risk-os/internal/features"
	"github.com/rohan1090/market-risk-os/internal/gate"
	"github.com/rohan1090/market-risk-os/internal/pipeline"
	"github.com/rohan1090/market-risk-os/internal/providers"
	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/httputil"
	"github.com/rohan1090/market-risk-os/pkg/logger"
	"github.com/rohan1090/market-risk-os/pkg/redis"
)

// ═══════════════════════════════════════════════════════════
// Shared command wiring
// Every command builds its stack through these helpers so the
// provider chain and policy handling stay identical across them.
// ═══════════════════════════════════════════════════════════

// initConfig loads configuration honoring the global flags
func initConfig() (*config.Config, error) {
	// An explicit env file wins; godotenv never overrides variables
	// that are already set
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
		cfg.LogFormat = "console"
	}

	return cfg, nil
}

// buildBarProvider picks the bar source: a fixture path wins, otherwise
// the HTTP chart endpoint with the scrape table as fallback. With Redis
// available both remote sources get distributed rate limits on top of
// their local throttles.
func buildBarProvider(cfg *config.Config, log *logger.Logger, rc *redis.Client) providers.BarProvider {
	if cfg.Pipeline.FixturePath != "" {
		return providers.NewFixtureProvider(cfg.Pipeline.FixturePath, log)
	}

	chartClient := httputil.New(cfg, log)
	scrapeClient := httputil.New(cfg, log)
	if rc != nil && rc.Enabled() {
		limiter := redis.NewRateLimiter(rc, "riskos")
		chartClient = chartClient.WithRateLimiter(limiter, redis.ChartRateLimit)
		scrapeClient = scrapeClient.WithRateLimiter(limiter, redis.ScrapeRateLimit)
	}

	chart := providers.NewChartProvider(chartClient, cfg.Provider.BaseURL,
		cfg.Provider.RatePerSecond, cfg.Provider.RateBurst, log)
	scrape := providers.NewScrapeProvider(scrapeClient, cfg.Provider.ScrapeBaseURL, log)

	return providers.NewFallbackBarProvider(chart, scrape, log)
}

// buildFeatureProvider assembles the feature chain over the bar source.
// A nil or disabled Redis client skips the cache decorator.
func buildFeatureProvider(cfg *config.Config, log *logger.Logger, rc *redis.Client) providers.FeatureProvider {
	bars := buildBarProvider(cfg, log, rc)
	store := features.NewStore(features.Config{
		ShortWindow: cfg.Pipeline.ShortWindow,
		LongWindow:  cfg.Pipeline.LongWindow,
	}, log)

	var provider providers.FeatureProvider = providers.NewStoreProvider(bars, store, cfg.Pipeline.HistoryDays, log)
	if rc != nil && rc.Enabled() && cfg.Provider.CacheTTL > 0 {
		cache := redis.NewCache(rc, "riskos")
		provider = providers.NewCachedFeatureProvider(provider, cache, cfg.Provider.CacheTTL, log)
	}

	return provider
}

// loadGatePolicy loads a YAML policy table and logs its content hash
func loadGatePolicy(path string, log *logger.Logger) (*gate.Policy, error) {
	policy, err := gate.LoadPolicy(path)
	if err != nil {
		return nil, fmt.Errorf("load gate policy: %w", err)
	}

	if hash, err := gate.Hash(policy); err == nil {
		log.WithFields(map[string]interface{}{
			"path": path,
			"hash": hash,
		}).Info("Loaded gate policy")
	}

	return policy, nil
}

// buildOrchestrator assembles the evaluation pipeline from configuration.
// A nil Redis client skips feature caching and distributed throttling.
func buildOrchestrator(cfg *config.Config, log *logger.Logger, rc *redis.Client) (*pipeline.Orchestrator, error) {
	provider := buildFeatureProvider(cfg, log, rc)

	orch, err := pipeline.NewOrchestrator(provider, log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	if cfg.Pipeline.PolicyPath != "" {
		policy, err := loadGatePolicy(cfg.Pipeline.PolicyPath, log)
		if err != nil {
			return nil, err
		}
		orch = orch.WithController(gate.NewController(policy, log))
	}

	return orch, nil
}

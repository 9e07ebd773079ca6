package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ideamesh/backend/internal/billing"
	"github.com/ideamesh/backend/internal/catalog"
	"github.com/ideamesh/backend/internal/modelrouter"
	"github.com/ideamesh/backend/internal/providers"
	"github.com/ideamesh/backend/internal/ratelimit"
)

// loadCatalog reads the model catalog from MODEL_CATALOG_PATH when set,
// falling back to the built-in catalog.
func loadCatalog(logger *slog.Logger) *catalog.Catalog {
	path := os.Getenv("MODEL_CATALOG_PATH")
	if path == "" {
		return catalog.Builtin()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		logger.Error("Failed to load model catalog, using built-in", "path", path, "error", err)
		return catalog.Builtin()
	}
	logger.Info("Loaded model catalog", "path", path)
	return cat
}

// buildProviderClients wires the provider API clients from env credentials.
// Google is left nil when its key is absent; the router surfaces that as a
// configuration error only when a Google model is actually requested.
func buildProviderClients(logger *slog.Logger) modelrouter.Clients {
	clients := modelrouter.Clients{
		OpenAI:    providers.NewOpenAIClient(os.Getenv("OPENAI_API_KEY")),
		Anthropic: providers.NewAnthropicClient(os.Getenv("ANTHROPIC_API_KEY")),
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		clients.Google = providers.NewGoogleClient(key)
	} else {
		logger.Warn("GOOGLE_API_KEY not set, Google models disabled")
	}
	return clients
}

// buildLimiter connects the AI rate limiter to Redis when REDIS_URL is set.
func buildLimiter(logger *slog.Logger) ratelimit.Limiter {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		logger.Warn("REDIS_URL not set, AI rate limiting disabled")
		return ratelimit.NewNoopLimiter()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("Invalid REDIS_URL, AI rate limiting disabled", "error", err)
		return ratelimit.NewNoopLimiter()
	}

	limit := 30
	if raw := os.Getenv("AI_RATE_LIMIT_PER_MINUTE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	return ratelimit.NewSlidingWindowLimiter(redis.NewClient(opts), limit)
}

// loadPriceMap maps billing price ids to plan names from env.
func loadPriceMap() billing.PriceMap {
	prices := billing.PriceMap{}
	if id := os.Getenv("STRIPE_PRICE_BASIC"); id != "" {
		prices[id] = "basic"
	}
	if id := os.Getenv("STRIPE_PRICE_PRO"); id != "" {
		prices[id] = "pro"
	}
	return prices
}

// allowedOrigins returns the CORS allowlist, extendable via CORS_ORIGINS.
func allowedOrigins() []string {
	origins := []string{"http://localhost:3000", "https://app.ideamesh.dev"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return origins
}

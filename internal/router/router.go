package router

import (
	"log/slog"
	"net/http"

	"github.com/ideamesh/backend/internal/auth"
	"github.com/ideamesh/backend/internal/billing"
	"github.com/ideamesh/backend/internal/costing"
	"github.com/ideamesh/backend/internal/dashboard"
	"github.com/ideamesh/backend/internal/handlers"
	"github.com/ideamesh/backend/internal/middleware"
	"github.com/ideamesh/backend/internal/ratelimit"
)

// Config carries the handlers and middleware dependencies for the API.
type Config struct {
	Auth      *auth.Handler
	Billing   *billing.Handler
	Dashboard *dashboard.Handler
	AI        *handlers.AIHandler
	Models    *handlers.ModelsHandler

	AuthService auth.Service
	Gate        middleware.Charger
	Limiter     ratelimit.Limiter
	Log         *slog.Logger
}

// New returns an http.Handler that serves the API under /api/v1.
func New(cfg Config) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	requireAuth := middleware.RequireAuth(cfg.AuthService)
	rateLimit := middleware.RateLimit(cfg.Limiter, cfg.Log)

	mux.HandleFunc(base+"/auth/register", methodPOST(cfg.Auth.Register))
	mux.HandleFunc(base+"/auth/login", methodPOST(cfg.Auth.Login))

	mux.HandleFunc(base+"/models", methodGET(cfg.Models.ListModels))

	mux.Handle(base+"/account/me", chain(methodGET(cfg.Dashboard.GetMe), requireAuth))
	mux.Handle(base+"/account/charges", chain(methodGET(cfg.Dashboard.ListCharges), requireAuth))

	// Subscription and purchase events arrive from the billing provider,
	// not a logged-in browser. Neither endpoint takes end-user auth; credits
	// are only minted from verified processor payloads.
	mux.HandleFunc(base+"/billing/webhook", methodPOST(cfg.Billing.Webhook))
	mux.HandleFunc(base+"/billing/topup", methodPOST(cfg.Billing.TopUp))

	aiRoute := func(action costing.ActionKind, h http.HandlerFunc) http.Handler {
		charge := middleware.CreditCharge(cfg.Gate, action, cfg.Log)
		return chain(methodPOST(h), requireAuth, rateLimit, charge)
	}
	mux.Handle(base+"/ai/chat", aiRoute(costing.ActionChatMessage, cfg.AI.ChatMessage))
	mux.Handle(base+"/ai/ideas", aiRoute(costing.ActionGenerateIdeas, cfg.AI.GenerateIdeas))
	mux.Handle(base+"/ai/expand", aiRoute(costing.ActionExpandIdea, cfg.AI.ExpandIdea))
	mux.Handle(base+"/ai/images", aiRoute(costing.ActionImageGenerate, cfg.AI.GenerateImage))
	mux.Handle(base+"/ai/images/regenerate", aiRoute(costing.ActionImageRegenerate, cfg.AI.GenerateImage))

	return mux
}

// chain wraps h in the given middlewares, outermost first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

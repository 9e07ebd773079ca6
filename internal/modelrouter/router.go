// Package modelrouter resolves an abstract model id to a live provider
// binding at generation time. Unlike cost estimation, resolution here is
// strict: execution must never silently run against a different model than
// the one billed.
package modelrouter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ideamesh/backend/internal/catalog"
	"github.com/ideamesh/backend/internal/providers"
)

// ErrUnsupportedModel covers type mismatches and providers this deployment
// cannot serve. Surfaced to clients as a bad request.
var ErrUnsupportedModel = errors.New("unsupported model")

// ErrMissingGoogleCredentials means a Google model was requested but
// GOOGLE_API_KEY is not configured. This is a deployment misconfiguration
// (server error), not bad input.
var ErrMissingGoogleCredentials = errors.New("missing GOOGLE_API_KEY for Google model")

// Clients carries the provider client handles built at startup. Google is nil
// when its credential is absent; the other providers authenticate per request.
type Clients struct {
	OpenAI    *providers.OpenAIClient
	Anthropic *providers.AnthropicClient
	Google    *providers.GoogleClient
}

// Binding is a resolved, ready-to-call provider/model pair. ModelName is the
// provider-facing name with the catalog's "provider/" namespace stripped.
type Binding struct {
	Descriptor catalog.ModelDescriptor
	ModelName  string
	Text       providers.TextClient
	Image      providers.ImageClient
}

type Router struct {
	catalog *catalog.Catalog
	clients Clients
	log     *slog.Logger
}

func New(c *catalog.Catalog, clients Clients, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{catalog: c, clients: clients, log: log}
}

// ResolveTextModel resolves a text model id (or the default when empty) to a
// binding for chat and graph generation.
func (r *Router) ResolveTextModel(modelID string) (*Binding, error) {
	desc, err := r.catalog.Resolve(modelID, catalog.TypeText)
	if err != nil {
		return nil, err
	}
	b := &Binding{Descriptor: desc, ModelName: providerModelName(desc)}
	switch desc.Provider {
	case catalog.ProviderOpenAI:
		b.Text = r.clients.OpenAI
	case catalog.ProviderAnthropic:
		b.Text = r.clients.Anthropic
	case catalog.ProviderGoogle:
		if r.clients.Google == nil {
			r.log.Error("google model requested without GOOGLE_API_KEY", "model_id", desc.ID)
			return nil, ErrMissingGoogleCredentials
		}
		b.Text = r.clients.Google
	default:
		return nil, fmt.Errorf("%w: provider %q", ErrUnsupportedModel, desc.Provider)
	}
	return b, nil
}

// ResolveImageModel resolves an image model id (or the default when empty) to
// a binding for image generation.
func (r *Router) ResolveImageModel(modelID string) (*Binding, error) {
	desc, err := r.catalog.Resolve(modelID, catalog.TypeImage)
	if err != nil {
		return nil, err
	}
	b := &Binding{Descriptor: desc, ModelName: providerModelName(desc)}
	switch desc.Provider {
	case catalog.ProviderOpenAI:
		b.Image = r.clients.OpenAI
	case catalog.ProviderGoogle:
		if r.clients.Google == nil {
			r.log.Error("google model requested without GOOGLE_API_KEY", "model_id", desc.ID)
			return nil, ErrMissingGoogleCredentials
		}
		b.Image = r.clients.Google
	default:
		return nil, fmt.Errorf("%w: provider %q", ErrUnsupportedModel, desc.Provider)
	}
	return b, nil
}

func providerModelName(desc catalog.ModelDescriptor) string {
	return strings.TrimPrefix(desc.ID, string(desc.Provider)+"/")
}

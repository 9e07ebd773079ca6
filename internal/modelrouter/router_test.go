package modelrouter

import (
	"errors"
	"testing"

	"github.com/ideamesh/backend/internal/catalog"
	"github.com/ideamesh/backend/internal/providers"
)

func testClients(withGoogle bool) Clients {
	c := Clients{
		OpenAI:    providers.NewOpenAIClient("sk-test"),
		Anthropic: providers.NewAnthropicClient("sk-ant-test"),
	}
	if withGoogle {
		c.Google = providers.NewGoogleClient("g-test")
	}
	return c
}

func TestResolveTextModel(t *testing.T) {
	r := New(catalog.Builtin(), testClients(true), nil)

	t.Run("routes to the right provider", func(t *testing.T) {
		b, err := r.ResolveTextModel("anthropic/claude-sonnet-4-5")
		if err != nil {
			t.Fatalf("ResolveTextModel: %v", err)
		}
		if b.Text == nil {
			t.Fatal("binding has no text client")
		}
		if b.ModelName != "claude-sonnet-4-5" {
			t.Errorf("provider model name: got %q, want claude-sonnet-4-5", b.ModelName)
		}
	})

	t.Run("empty id resolves the default", func(t *testing.T) {
		b, err := r.ResolveTextModel("")
		if err != nil {
			t.Fatalf("ResolveTextModel: %v", err)
		}
		if !b.Descriptor.Default {
			t.Errorf("expected the default model, got %s", b.Descriptor.ID)
		}
	})

	t.Run("image model is rejected for text", func(t *testing.T) {
		_, err := r.ResolveTextModel("google/imagen-4.0-generate-001")
		if !errors.Is(err, catalog.ErrModelTypeMismatch) {
			t.Errorf("expected ErrModelTypeMismatch, got %v", err)
		}
	})
}

func TestResolveImageModel(t *testing.T) {
	r := New(catalog.Builtin(), testClients(true), nil)

	b, err := r.ResolveImageModel("openai/gpt-image-1")
	if err != nil {
		t.Fatalf("ResolveImageModel: %v", err)
	}
	if b.Image == nil {
		t.Fatal("binding has no image client")
	}
	if b.ModelName != "gpt-image-1" {
		t.Errorf("provider model name: got %q, want gpt-image-1", b.ModelName)
	}
}

func TestGoogleModelsRequireCredentials(t *testing.T) {
	r := New(catalog.Builtin(), testClients(false), nil)

	if _, err := r.ResolveTextModel("google/gemini-2.5-pro"); !errors.Is(err, ErrMissingGoogleCredentials) {
		t.Errorf("text: expected ErrMissingGoogleCredentials, got %v", err)
	}
	// The image default is a Google model, so the bare default path fails too.
	if _, err := r.ResolveImageModel(""); !errors.Is(err, ErrMissingGoogleCredentials) {
		t.Errorf("image: expected ErrMissingGoogleCredentials, got %v", err)
	}
	// Non-Google models are unaffected.
	if _, err := r.ResolveTextModel("openai/gpt-4.1-mini"); err != nil {
		t.Errorf("openai resolution should not need Google credentials: %v", err)
	}
}

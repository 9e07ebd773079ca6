package catalog

import (
	"errors"
	"testing"
)

func testModels() []ModelDescriptor {
	return []ModelDescriptor{
		{ID: "openai/text-a", Provider: ProviderOpenAI, Type: TypeText, Default: true},
		{ID: "anthropic/text-b", Provider: ProviderAnthropic, Type: TypeText},
		{ID: "google/image-a", Provider: ProviderGoogle, Type: TypeImage, Default: true},
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(testModels(), nil); err != nil {
		t.Fatalf("valid catalog rejected: %v", err)
	}

	t.Run("duplicate id", func(t *testing.T) {
		models := append(testModels(), ModelDescriptor{ID: "openai/text-a", Type: TypeText})
		if _, err := New(models, nil); err == nil {
			t.Error("expected error for duplicate model id")
		}
	})

	t.Run("multiple defaults per type", func(t *testing.T) {
		models := append(testModels(), ModelDescriptor{ID: "google/text-c", Type: TypeText, Default: true})
		if _, err := New(models, nil); err == nil {
			t.Error("expected error for two text defaults")
		}
	})

	t.Run("missing default for present type", func(t *testing.T) {
		models := []ModelDescriptor{
			{ID: "openai/text-a", Type: TypeText, Default: true},
			{ID: "google/image-a", Type: TypeImage},
		}
		if _, err := New(models, nil); err == nil {
			t.Error("expected error for image type without default")
		}
	})

	t.Run("alias to unknown model", func(t *testing.T) {
		if _, err := New(testModels(), map[string]string{"old/x": "missing/y"}); err == nil {
			t.Error("expected error for dangling alias")
		}
	})
}

func TestResolve(t *testing.T) {
	c, err := New(testModels(), map[string]string{"anthropic/text-b-legacy": "anthropic/text-b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Run("known id", func(t *testing.T) {
		m, err := c.Resolve("anthropic/text-b", TypeText)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if m.ID != "anthropic/text-b" {
			t.Errorf("got %s, want anthropic/text-b", m.ID)
		}
	})

	t.Run("alias remaps before lookup", func(t *testing.T) {
		m, err := c.Resolve("anthropic/text-b-legacy", TypeText)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if m.ID != "anthropic/text-b" {
			t.Errorf("got %s, want anthropic/text-b", m.ID)
		}
	})

	t.Run("empty id uses the default", func(t *testing.T) {
		m, err := c.Resolve("", TypeText)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if m.ID != "openai/text-a" {
			t.Errorf("got %s, want openai/text-a", m.ID)
		}
	})

	t.Run("unknown id falls back to the default", func(t *testing.T) {
		m, err := c.Resolve("openai/does-not-exist", TypeImage)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if m.ID != "google/image-a" {
			t.Errorf("got %s, want google/image-a", m.ID)
		}
	})

	t.Run("wrong type is rejected", func(t *testing.T) {
		_, err := c.Resolve("google/image-a", TypeText)
		if !errors.Is(err, ErrModelTypeMismatch) {
			t.Errorf("expected ErrModelTypeMismatch, got %v", err)
		}
	})
}

func TestResolveOrDefault(t *testing.T) {
	c, err := New(testModels(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The lenient path treats a wrong-typed id like an unknown one.
	m, ok := c.ResolveOrDefault("google/image-a", TypeText)
	if !ok {
		t.Fatal("expected fallback to succeed")
	}
	if m.ID != "openai/text-a" {
		t.Errorf("got %s, want openai/text-a", m.ID)
	}

	// With no default for the type there is nothing to price against.
	onlyText := []ModelDescriptor{{ID: "openai/text-a", Type: TypeText, Default: true}}
	c2, err := New(onlyText, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c2.ResolveOrDefault("whatever", TypeImage); ok {
		t.Error("expected ok=false when the type has no default")
	}
}

func TestBuiltinIsValid(t *testing.T) {
	c := Builtin()

	for _, typ := range []ModelType{TypeText, TypeImage} {
		if _, ok := c.DefaultID(typ); !ok {
			t.Errorf("builtin catalog has no default %s model", typ)
		}
	}

	// Legacy ids stored in old maps must keep resolving.
	m, err := c.Resolve("google/gemini-1.5-flash", TypeText)
	if err != nil {
		t.Fatalf("Resolve legacy id: %v", err)
	}
	if m.ID != "google/gemini-2.5-flash" {
		t.Errorf("legacy alias: got %s, want google/gemini-2.5-flash", m.ID)
	}

	if len(c.List()) == 0 {
		t.Error("builtin catalog is empty")
	}
}

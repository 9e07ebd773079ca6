package catalog

import (
	"errors"
	"fmt"
	"sort"
)

type ModelType string

const (
	TypeText  ModelType = "text"
	TypeImage ModelType = "image"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// ErrModelNotFound is returned when an id is unknown and the catalog carries
// no default for the expected type.
var ErrModelNotFound = errors.New("model not found")

// ErrModelTypeMismatch is returned when a known model has a different type
// than the action expects (e.g. a chat action naming an image model).
var ErrModelTypeMismatch = errors.New("model type mismatch")

// Pricing is either token-based (input/output USD per 1k tokens) or per-unit
// (flat USD per unit, optionally split by quality tier). Zero values mean
// "not priced"; the cost estimator clamps unpriced actions to 1 credit.
type Pricing struct {
	InputUSDPer1K    float64            `yaml:"input_usd_per_1k" json:"input_usd_per_1k,omitempty"`
	OutputUSDPer1K   float64            `yaml:"output_usd_per_1k" json:"output_usd_per_1k,omitempty"`
	PerUnitUSD       float64            `yaml:"per_unit_usd" json:"per_unit_usd,omitempty"`
	PerUnitUSDByTier map[string]float64 `yaml:"per_unit_usd_by_tier" json:"per_unit_usd_by_tier,omitempty"`
}

// ModelDescriptor is a static catalog entry, immutable after load.
// IDs are namespaced as "<provider>/<model-name>".
type ModelDescriptor struct {
	ID           string    `yaml:"id" json:"id"`
	Provider     Provider  `yaml:"provider" json:"provider"`
	Type         ModelType `yaml:"type" json:"type"`
	Capabilities []string  `yaml:"capabilities" json:"capabilities,omitempty"`
	Pricing      Pricing   `yaml:"pricing" json:"pricing"`
	DisplayName  string    `yaml:"display_name" json:"display_name,omitempty"`
	Default      bool      `yaml:"default" json:"default"`
}

// Catalog is a read-only model registry built once at startup and passed
// explicitly to the cost estimator and model router.
type Catalog struct {
	models   map[string]ModelDescriptor
	defaults map[ModelType]string
	aliases  map[string]string
}

// New validates and indexes the given descriptors. Each model type present
// must have exactly one default entry.
func New(models []ModelDescriptor, aliases map[string]string) (*Catalog, error) {
	c := &Catalog{
		models:   make(map[string]ModelDescriptor, len(models)),
		defaults: make(map[ModelType]string),
		aliases:  make(map[string]string, len(aliases)),
	}
	for _, m := range models {
		if m.ID == "" {
			return nil, errors.New("catalog: model with empty id")
		}
		if _, dup := c.models[m.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate model id %q", m.ID)
		}
		c.models[m.ID] = m
		if m.Default {
			if prev, ok := c.defaults[m.Type]; ok {
				return nil, fmt.Errorf("catalog: multiple defaults for type %s (%s, %s)", m.Type, prev, m.ID)
			}
			c.defaults[m.Type] = m.ID
		}
	}
	for t := range typesOf(models) {
		if _, ok := c.defaults[t]; !ok {
			return nil, fmt.Errorf("catalog: no default model for type %s", t)
		}
	}
	for from, to := range aliases {
		if _, ok := c.models[to]; !ok {
			return nil, fmt.Errorf("catalog: alias %q points at unknown model %q", from, to)
		}
		c.aliases[from] = to
	}
	return c, nil
}

func typesOf(models []ModelDescriptor) map[ModelType]struct{} {
	set := make(map[ModelType]struct{})
	for _, m := range models {
		set[m.Type] = struct{}{}
	}
	return set
}

// Canonical applies legacy-alias remapping to an id.
func (c *Catalog) Canonical(id string) string {
	if to, ok := c.aliases[id]; ok {
		return to
	}
	return id
}

// DefaultID returns the default model id for a type.
func (c *Catalog) DefaultID(t ModelType) (string, bool) {
	id, ok := c.defaults[t]
	return id, ok
}

// Resolve looks up id (after alias remapping), falling back to the type's
// default when the id is empty or unknown. A known model of the wrong type is
// an ErrModelTypeMismatch; a missing model with no default is ErrModelNotFound.
func (c *Catalog) Resolve(id string, t ModelType) (ModelDescriptor, error) {
	canonical := c.Canonical(id)
	if m, ok := c.models[canonical]; ok {
		if m.Type != t {
			return ModelDescriptor{}, fmt.Errorf("%w: %s is %s, expected %s", ErrModelTypeMismatch, m.ID, m.Type, t)
		}
		return m, nil
	}
	if defID, ok := c.defaults[t]; ok {
		return c.models[defID], nil
	}
	return ModelDescriptor{}, fmt.Errorf("%w: %q (no default for type %s)", ErrModelNotFound, id, t)
}

// ResolveOrDefault is the lenient path used by cost estimation: an unknown or
// wrong-typed id falls back to the type default, and a missing default yields
// ok=false rather than an error. Cost estimation must never hard-fail on a
// bad id; only the model router enforces strict resolution.
func (c *Catalog) ResolveOrDefault(id string, t ModelType) (ModelDescriptor, bool) {
	canonical := c.Canonical(id)
	if m, ok := c.models[canonical]; ok && m.Type == t {
		return m, true
	}
	if defID, ok := c.defaults[t]; ok {
		return c.models[defID], true
	}
	return ModelDescriptor{}, false
}

// List returns all descriptors sorted by id.
func (c *Catalog) List() []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

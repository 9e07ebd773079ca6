package catalog

// Builtin returns the compiled-in catalog used when MODEL_CATALOG_PATH is
// unset. Prices are USD per 1k tokens for text models and USD per image for
// image models.
func Builtin() *Catalog {
	c, err := New(builtinModels, builtinAliases)
	if err != nil {
		// The builtin table is validated by tests; a bad entry is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return c
}

var builtinModels = []ModelDescriptor{
	{
		ID:           "openai/gpt-4.1-mini",
		Provider:     ProviderOpenAI,
		Type:         TypeText,
		Capabilities: []string{"chat", "graph"},
		Pricing:      Pricing{InputUSDPer1K: 0.0004, OutputUSDPer1K: 0.0016},
		DisplayName:  "GPT-4.1 Mini",
		Default:      true,
	},
	{
		ID:           "openai/gpt-4.1-nano",
		Provider:     ProviderOpenAI,
		Type:         TypeText,
		Capabilities: []string{"chat", "graph"},
		Pricing:      Pricing{InputUSDPer1K: 0.0001, OutputUSDPer1K: 0.0004},
		DisplayName:  "GPT-4.1 Nano",
	},
	{
		ID:           "anthropic/claude-haiku-4-5",
		Provider:     ProviderAnthropic,
		Type:         TypeText,
		Capabilities: []string{"chat", "graph"},
		Pricing:      Pricing{InputUSDPer1K: 0.001, OutputUSDPer1K: 0.005},
		DisplayName:  "Claude 4.5 Haiku",
	},
	{
		ID:           "anthropic/claude-sonnet-4-5",
		Provider:     ProviderAnthropic,
		Type:         TypeText,
		Capabilities: []string{"chat", "graph"},
		Pricing:      Pricing{InputUSDPer1K: 0.003, OutputUSDPer1K: 0.015},
		DisplayName:  "Claude 4.5 Sonnet",
	},
	{
		ID:           "google/gemini-2.5-flash",
		Provider:     ProviderGoogle,
		Type:         TypeText,
		Capabilities: []string{"chat", "graph"},
		Pricing:      Pricing{InputUSDPer1K: 0.0005, OutputUSDPer1K: 0.003},
		DisplayName:  "Gemini 2.5 Flash",
	},
	{
		ID:           "google/gemini-2.5-pro",
		Provider:     ProviderGoogle,
		Type:         TypeText,
		Capabilities: []string{"chat", "graph"},
		Pricing:      Pricing{InputUSDPer1K: 0.00125, OutputUSDPer1K: 0.01},
		DisplayName:  "Gemini 2.5 Pro",
	},

	// Image models, priced per generated image.
	{
		ID:           "openai/gpt-image-1",
		Provider:     ProviderOpenAI,
		Type:         TypeImage,
		Capabilities: []string{"image"},
		Pricing: Pricing{PerUnitUSDByTier: map[string]float64{
			"low":    0.02,
			"medium": 0.07,
			"high":   0.17,
		}},
		DisplayName: "GPT Image 1",
	},
	{
		ID:           "google/imagen-4.0-generate-001",
		Provider:     ProviderGoogle,
		Type:         TypeImage,
		Capabilities: []string{"image"},
		Pricing:      Pricing{PerUnitUSD: 0.04},
		DisplayName:  "Imagen 4",
		Default:      true,
	},
	{
		ID:           "google/imagen-4.0-fast-generate-001",
		Provider:     ProviderGoogle,
		Type:         TypeImage,
		Capabilities: []string{"image"},
		Pricing:      Pricing{PerUnitUSD: 0.02},
		DisplayName:  "Imagen 4 Fast",
	},
	{
		ID:           "google/imagen-4.0-ultra-generate-001",
		Provider:     ProviderGoogle,
		Type:         TypeImage,
		Capabilities: []string{"image"},
		Pricing:      Pricing{PerUnitUSD: 0.06},
		DisplayName:  "Imagen 4 Ultra",
	},
}

// builtinAliases maps retired ids still stored in old graphs/chats to their
// current catalog entries.
var builtinAliases = map[string]string{
	"anthropic/claude-4.5-haiku":     "anthropic/claude-haiku-4-5",
	"anthropic/claude-4.5-sonnet":    "anthropic/claude-sonnet-4-5",
	"google/gemini-1.5-flash":        "google/gemini-2.5-flash",
	"google/gemini-1.5-flash-latest": "google/gemini-2.5-flash",
	"google/gemini-1.5-pro":          "google/gemini-2.5-pro",
	"google/gemini-1.5-pro-latest":   "google/gemini-2.5-pro",
	"google/gemini-flash-latest":     "google/gemini-2.5-flash",
	"google/gemini-pro-latest":       "google/gemini-2.5-pro",
	"google/gemini-2.0-flash":        "google/gemini-2.5-flash",
}

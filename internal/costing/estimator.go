// Package costing estimates the credit cost of an AI action before it runs.
// Estimates are deliberately lenient: an unrecognized model id falls back to
// the catalog default so a catalog gap can never block billing. Strict model
// resolution happens later, in the model router.
package costing

import (
	"math"
	"strings"

	"github.com/ideamesh/backend/internal/catalog"
)

// CreditsPerUSD is the global exchange rate: 1000 credits == $1 of model spend.
const CreditsPerUSD = 1000

const avgCharsPerToken = 4

type ActionKind string

const (
	ActionChatMessage     ActionKind = "chatMessage"
	ActionChatStream      ActionKind = "chatStream"
	ActionGenerateIdeas   ActionKind = "generateIdeas"
	ActionExpandIdea      ActionKind = "expandIdea"
	ActionImageGenerate   ActionKind = "imageGenerate"
	ActionImageRegenerate ActionKind = "imageRegenerate"
)

// IsImage reports whether the action is billed per generated image.
func (k ActionKind) IsImage() bool {
	return k == ActionImageGenerate || k == ActionImageRegenerate
}

// textProfile holds the calibrated constants for a token-priced action:
// expected output size (cost must be knowable before generation, so the real
// response length is never used) and the system-prompt overhead in chars.
type textProfile struct {
	outputTokens int
	systemChars  int
}

var textProfiles = map[ActionKind]textProfile{
	ActionChatMessage:   {outputTokens: 220, systemChars: 700},
	ActionChatStream:    {outputTokens: 220, systemChars: 700},
	ActionGenerateIdeas: {outputTokens: 1200, systemChars: 1000},
	ActionExpandIdea:    {outputTokens: 900, systemChars: 1200},
}

// presetImageModels maps a named generation preset to its default image model.
var presetImageModels = map[string]string{
	"standard":    "google/imagen-4.0-fast-generate-001",
	"balanced":    "google/imagen-4.0-generate-001",
	"high-detail": "google/imagen-4.0-ultra-generate-001",
}

// Request describes an action for cost estimation. Size signals are counted
// in characters; image actions may fan out to several models at once.
type Request struct {
	Action       ActionKind
	ModelID      string
	ModelIDs     []string
	InputChars   int
	HistoryChars int
	ImageCount   int
	ImageQuality string
	ImagePreset  string
}

type Estimator struct {
	catalog *catalog.Catalog
}

func NewEstimator(c *catalog.Catalog) *Estimator {
	return &Estimator{catalog: c}
}

// Estimate returns the integer credit cost for the request, never less than 1.
func (e *Estimator) Estimate(req Request) int {
	if req.Action.IsImage() {
		return usdToCredits(e.estimateImageUSD(req))
	}
	return usdToCredits(e.estimateTextUSD(req))
}

func (e *Estimator) estimateTextUSD(req Request) float64 {
	model, ok := e.catalog.ResolveOrDefault(req.ModelID, catalog.TypeText)
	if !ok {
		return 0
	}
	profile, ok := textProfiles[req.Action]
	if !ok {
		// Unknown action kinds are billed as a chat message.
		profile = textProfiles[ActionChatMessage]
	}
	inputTokens := toTokens(req.InputChars) + toTokens(req.HistoryChars) + toTokens(profile.systemChars)
	inputUSD := float64(inputTokens) / 1000 * model.Pricing.InputUSDPer1K
	outputUSD := float64(profile.outputTokens) / 1000 * model.Pricing.OutputUSDPer1K
	return inputUSD + outputUSD
}

func (e *Estimator) estimateImageUSD(req Request) float64 {
	modelIDs := make([]string, 0, len(req.ModelIDs))
	for _, id := range req.ModelIDs {
		if id := strings.TrimSpace(id); id != "" {
			modelIDs = append(modelIDs, id)
		}
	}
	if len(modelIDs) == 0 {
		modelIDs = []string{e.defaultImageModelID(req)}
	}

	count := req.ImageCount
	if count < 1 {
		count = 1
	}
	quality := imageQuality(req)

	var total float64
	for _, id := range modelIDs {
		total += e.imageUnitUSD(id, quality)
	}
	return total * float64(count)
}

func (e *Estimator) defaultImageModelID(req Request) string {
	if req.ModelID != "" {
		return req.ModelID
	}
	if id, ok := presetImageModels[req.ImagePreset]; ok {
		return id
	}
	if id, ok := e.catalog.DefaultID(catalog.TypeImage); ok {
		return id
	}
	return "openai/gpt-image-1"
}

// PresetModelID returns the image model a named preset maps to.
func PresetModelID(preset string) (string, bool) {
	id, ok := presetImageModels[preset]
	return id, ok
}

// PresetQuality resolves the effective quality tier from an explicit quality
// or a preset, matching what the estimator charges for.
func PresetQuality(quality, preset string) string {
	return imageQuality(Request{ImageQuality: quality, ImagePreset: preset})
}

// imageQuality derives the pricing tier from an explicit quality or a preset.
func imageQuality(req Request) string {
	if req.ImageQuality != "" {
		return req.ImageQuality
	}
	switch req.ImagePreset {
	case "standard":
		return "low"
	case "high-detail":
		return "high"
	default:
		return "medium"
	}
}

// imageUnitUSD returns the per-image price for a model at a quality tier,
// falling back to the medium tier, then the flat per-unit price.
func (e *Estimator) imageUnitUSD(modelID, quality string) float64 {
	model, ok := e.catalog.ResolveOrDefault(modelID, catalog.TypeImage)
	if !ok {
		return 0
	}
	if byTier := model.Pricing.PerUnitUSDByTier; len(byTier) > 0 {
		if usd, ok := byTier[quality]; ok {
			return usd
		}
		if usd, ok := byTier["medium"]; ok {
			return usd
		}
	}
	return model.Pricing.PerUnitUSD
}

func toTokens(chars int) int {
	if chars < 0 {
		chars = 0
	}
	return (chars + avgCharsPerToken - 1) / avgCharsPerToken
}

// usdToCredits converts USD to credits, rounding up and charging at least one
// credit so a zero-priced model cannot be used for free without limit.
func usdToCredits(usd float64) int {
	if usd < 0 {
		usd = 0
	}
	credits := int(math.Ceil(usd * CreditsPerUSD))
	if credits < 1 {
		return 1
	}
	return credits
}

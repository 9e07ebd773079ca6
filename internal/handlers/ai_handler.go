package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ideamesh/backend/internal/catalog"
	"github.com/ideamesh/backend/internal/costing"
	"github.com/ideamesh/backend/internal/middleware"
	"github.com/ideamesh/backend/internal/modelrouter"
	"github.com/ideamesh/backend/internal/providers"
)

// ModelResolver is the subset of the model router the handlers need.
type ModelResolver interface {
	ResolveTextModel(modelID string) (*modelrouter.Binding, error)
	ResolveImageModel(modelID string) (*modelrouter.Binding, error)
}

// AIHandler serves the generation endpoints. Every route is charged up front
// by the credit middleware; a provider failure after that point does not
// refund the charge.
type AIHandler struct {
	Router ModelResolver
	Logger *slog.Logger
}

const chatSystemPrompt = `You are the assistant inside a collaborative idea mapping workspace. ` +
	`Answer concisely and stay on the user's current map context.`

const ideasSystemPrompt = `You brainstorm for an idea mapping canvas. Given a topic, produce a ` +
	`numbered list of distinct, concrete ideas, one per line, with no preamble.`

const expandSystemPrompt = `You expand a single node of an idea map. Given the idea and its ` +
	`surrounding context, write a focused elaboration: implications, sub-ideas, and next steps.`

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResolveError maps a model resolution failure to a response. Bad model
// ids are the client's fault; missing provider credentials are ours.
func (h *AIHandler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrModelNotFound),
		errors.Is(err, catalog.ErrModelTypeMismatch),
		errors.Is(err, modelrouter.ErrUnsupportedModel):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, modelrouter.ErrMissingGoogleCredentials):
		http.Error(w, `{"error":"model provider not configured"}`, http.StatusInternalServerError)
	default:
		h.Logger.Error("model resolution failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
	}
}

func chargeFields(r *http.Request) (charged, remaining int) {
	if res := middleware.ChargeFromCtx(r.Context()); res != nil {
		return res.Charged, res.Remaining
	}
	return 0, 0
}

// --- POST /api/v1/ai/chat ---

type chatRequest struct {
	ModelID  string `json:"model_id"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	CreditsCharged   int    `json:"creditsCharged"`
	CreditsRemaining int    `json:"creditsRemaining"`
}

// ChatMessage handles a single chat turn against the map assistant.
func (h *AIHandler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, `{"error":"messages is required"}`, http.StatusBadRequest)
		return
	}

	binding, err := h.Router.ResolveTextModel(req.ModelID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	msgs := make([]providers.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		msgs = append(msgs, providers.Message{Role: role, Content: m.Content})
	}

	content, err := binding.Text.Complete(r.Context(), binding.ModelName, chatSystemPrompt, msgs)
	if err != nil {
		h.Logger.Error("chat completion failed", "model", binding.Descriptor.ID, "error", err)
		http.Error(w, `{"error":"model request failed"}`, http.StatusBadGateway)
		return
	}

	charged, remaining := chargeFields(r)
	writeJSON(w, http.StatusOK, chatResponse{
		Content:          content,
		Model:            binding.Descriptor.ID,
		CreditsCharged:   charged,
		CreditsRemaining: remaining,
	})
}

// --- POST /api/v1/ai/ideas ---

type ideasRequest struct {
	Prompt  string `json:"prompt"`
	ModelID string `json:"model_id"`
}

type ideasResponse struct {
	Ideas            []string `json:"ideas"`
	Model            string   `json:"model"`
	CreditsCharged   int      `json:"creditsCharged"`
	CreditsRemaining int      `json:"creditsRemaining"`
}

// GenerateIdeas produces brainstormed ideas for a topic, one node candidate
// per line.
func (h *AIHandler) GenerateIdeas(w http.ResponseWriter, r *http.Request) {
	var req ideasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, `{"error":"prompt is required"}`, http.StatusBadRequest)
		return
	}

	binding, err := h.Router.ResolveTextModel(req.ModelID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	msgs := []providers.Message{{Role: "user", Content: req.Prompt}}
	content, err := binding.Text.Complete(r.Context(), binding.ModelName, ideasSystemPrompt, msgs)
	if err != nil {
		h.Logger.Error("idea generation failed", "model", binding.Descriptor.ID, "error", err)
		http.Error(w, `{"error":"model request failed"}`, http.StatusBadGateway)
		return
	}

	charged, remaining := chargeFields(r)
	writeJSON(w, http.StatusOK, ideasResponse{
		Ideas:            splitIdeas(content),
		Model:            binding.Descriptor.ID,
		CreditsCharged:   charged,
		CreditsRemaining: remaining,
	})
}

// splitIdeas turns a numbered or bulleted model response into one idea per
// entry, dropping list markers and blank lines.
func splitIdeas(content string) []string {
	lines := strings.Split(content, "\n")
	ideas := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)- *\t")
		if line == "" {
			continue
		}
		ideas = append(ideas, line)
	}
	return ideas
}

// --- POST /api/v1/ai/expand ---

type expandRequest struct {
	Idea    string `json:"content"`
	Context string `json:"context"`
	ModelID string `json:"model_id"`
}

type expandResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	CreditsCharged   int    `json:"creditsCharged"`
	CreditsRemaining int    `json:"creditsRemaining"`
}

// ExpandIdea elaborates a single map node in the context of its neighbors.
func (h *AIHandler) ExpandIdea(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Idea) == "" {
		http.Error(w, `{"error":"content is required"}`, http.StatusBadRequest)
		return
	}

	binding, err := h.Router.ResolveTextModel(req.ModelID)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	prompt := req.Idea
	if req.Context != "" {
		prompt = "Idea: " + req.Idea + "\n\nMap context:\n" + req.Context
	}
	msgs := []providers.Message{{Role: "user", Content: prompt}}
	content, err := binding.Text.Complete(r.Context(), binding.ModelName, expandSystemPrompt, msgs)
	if err != nil {
		h.Logger.Error("idea expansion failed", "model", binding.Descriptor.ID, "error", err)
		http.Error(w, `{"error":"model request failed"}`, http.StatusBadGateway)
		return
	}

	charged, remaining := chargeFields(r)
	writeJSON(w, http.StatusOK, expandResponse{
		Content:          content,
		Model:            binding.Descriptor.ID,
		CreditsCharged:   charged,
		CreditsRemaining: remaining,
	})
}

// --- POST /api/v1/ai/images ---

type imageRequest struct {
	Prompt     string   `json:"prompt"`
	ModelID    string   `json:"model_id"`
	ModelIDs   []string `json:"model_ids"`
	ImageCount int      `json:"image_count"`
	Quality    string   `json:"quality"`
	Preset     string   `json:"preset"`
}

type imageResult struct {
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

type imageResponse struct {
	Results          []imageResult `json:"results"`
	CreditsCharged   int           `json:"creditsCharged"`
	CreditsRemaining int           `json:"creditsRemaining"`
}

// GenerateImage renders the prompt on one or more image models. Explicit
// model ids win over the preset mapping, which wins over the catalog default.
func (h *AIHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, `{"error":"prompt is required"}`, http.StatusBadRequest)
		return
	}

	modelIDs := make([]string, 0, len(req.ModelIDs))
	for _, id := range req.ModelIDs {
		if id := strings.TrimSpace(id); id != "" {
			modelIDs = append(modelIDs, id)
		}
	}
	if len(modelIDs) == 0 {
		id := req.ModelID
		if id == "" {
			id, _ = costing.PresetModelID(req.Preset)
		}
		modelIDs = []string{id}
	}

	count := req.ImageCount
	if count < 1 {
		count = 1
	}
	quality := costing.PresetQuality(req.Quality, req.Preset)

	results := make([]imageResult, 0, len(modelIDs))
	for _, id := range modelIDs {
		binding, err := h.Router.ResolveImageModel(id)
		if err != nil {
			h.writeResolveError(w, err)
			return
		}
		images, err := binding.Image.Generate(r.Context(), binding.ModelName, req.Prompt, count, quality)
		if err != nil {
			h.Logger.Error("image generation failed", "model", binding.Descriptor.ID, "error", err)
			http.Error(w, `{"error":"model request failed"}`, http.StatusBadGateway)
			return
		}
		results = append(results, imageResult{Model: binding.Descriptor.ID, Images: images})
	}

	charged, remaining := chargeFields(r)
	writeJSON(w, http.StatusOK, imageResponse{
		Results:          results,
		CreditsCharged:   charged,
		CreditsRemaining: remaining,
	})
}

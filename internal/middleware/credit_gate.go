package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ideamesh/backend/internal/costing"
	"github.com/ideamesh/backend/internal/credits"
)

// Charger is the credit gate interface the middleware charges through.
type Charger interface {
	Charge(ctx context.Context, userID uuid.UUID, req costing.Request) (credits.Result, error)
}

// actionPayload is the subset of an AI action request body the gate needs
// to price it. The full body is restored for the downstream handler.
type actionPayload struct {
	Content  string   `json:"content"`
	Prompt   string   `json:"prompt"`
	ModelID  string   `json:"model_id"`
	ModelIDs []string `json:"model_ids"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ImageCount int    `json:"image_count"`
	Quality    string `json:"quality"`
	Preset     string `json:"preset"`
}

type creditsExhaustedResponse struct {
	Error            string     `json:"error"`
	Code             string     `json:"code"`
	CreditsRemaining int        `json:"creditsRemaining"`
	CreditsTotal     int        `json:"creditsTotal"`
	CreditsBonus     int        `json:"creditsBonus"`
	CreditsRequired  int        `json:"creditsRequired"`
	PeriodEnd        *time.Time `json:"periodEnd,omitempty"`
}

// CreditCharge estimates the cost of the incoming action, charges the user's
// credit balance atomically, and rejects with 402 when the balance cannot
// cover it. The charge result is placed into request context for the handler.
func CreditCharge(gate Charger, action costing.ActionKind, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromCtx(r.Context())
			if userID == uuid.Nil {
				http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, `{"error":"failed to read request body"}`, http.StatusBadRequest)
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			var payload actionPayload
			if len(body) > 0 {
				if err := json.Unmarshal(body, &payload); err != nil {
					http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
					return
				}
			}

			res, err := gate.Charge(r.Context(), userID, chargeRequest(action, payload))
			if err != nil {
				log.Error("credit charge failed", "user_id", userID, "action", action, "error", err)
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			if !res.Accepted {
				resp := creditsExhaustedResponse{
					Error:            "Not enough credits for this action",
					Code:             "credits_exhausted",
					CreditsRemaining: res.Remaining,
					CreditsTotal:     res.AllowanceTotal,
					CreditsBonus:     res.BonusCredits,
					CreditsRequired:  res.Required,
				}
				if !res.PeriodEnd.IsZero() {
					pe := res.PeriodEnd
					resp.PeriodEnd = &pe
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusPaymentRequired)
				json.NewEncoder(w).Encode(resp)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCharge(r.Context(), res)))
		})
	}
}

func chargeRequest(action costing.ActionKind, p actionPayload) costing.Request {
	req := costing.Request{
		Action:       action,
		ModelID:      p.ModelID,
		ModelIDs:     p.ModelIDs,
		ImageCount:   p.ImageCount,
		ImageQuality: p.Quality,
		ImagePreset:  p.Preset,
	}
	switch {
	case len(p.Messages) > 0:
		last := len(p.Messages) - 1
		req.InputChars = len(p.Messages[last].Content)
		for _, m := range p.Messages[:last] {
			req.HistoryChars += len(m.Content)
		}
	case p.Content != "":
		req.InputChars = len(p.Content)
	default:
		req.InputChars = len(p.Prompt)
	}
	return req
}

// ChargeFromCtx returns the charge result set by CreditCharge, or nil.
func ChargeFromCtx(ctx context.Context) *credits.Result {
	res, ok := ctx.Value(ctxChargeKey).(credits.Result)
	if !ok {
		return nil
	}
	return &res
}

// WithCharge returns a context carrying a charge result.
func WithCharge(ctx context.Context, res credits.Result) context.Context {
	return context.WithValue(ctx, ctxChargeKey, res)
}

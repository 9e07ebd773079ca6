package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ideamesh/backend/internal/middleware"
	"github.com/ideamesh/backend/internal/models"
)

// Store is the account state the dashboard reads.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListCharges(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChargeRecord, error)
}

type Handler struct {
	store Store
	log   *slog.Logger
}

func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type meResponse struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Plan             string     `json:"plan"`
	CreditsTotal     int        `json:"creditsTotal"`
	CreditsUsed      int        `json:"creditsUsed"`
	CreditsBonus     int        `json:"creditsBonus"`
	CreditsRemaining int        `json:"creditsRemaining"`
	PeriodStart      *time.Time `json:"periodStart,omitempty"`
	PeriodEnd        *time.Time `json:"periodEnd,omitempty"`
	PendingPlan      *string    `json:"pendingPlan,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	user, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.log.Error("get account failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		return
	}

	resp := meResponse{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Plan:             user.Plan,
		CreditsTotal:     user.AllowanceTotal,
		CreditsUsed:      user.UsedCredits,
		CreditsBonus:     user.BonusCredits,
		CreditsRemaining: user.RemainingCredits(),
		PeriodStart:      user.PeriodStart,
		PeriodEnd:        user.PeriodEnd,
		CreatedAt:        user.CreatedAt,
	}
	if user.PendingPlanChange != nil {
		resp.PendingPlan = &user.PendingPlanChange.ToPlan
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/account/charges
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	charges, err := h.store.ListCharges(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("list charges failed", "user_id", userID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if charges == nil {
		charges = []*models.ChargeRecord{}
	}
	writeJSON(w, http.StatusOK, charges)
}

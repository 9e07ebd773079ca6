package billing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// EnqueueSyncFunc queues a subscription event for asynchronous processing.
// Wired to river in main (breaks the init cycle the same way job insertion
// does).
type EnqueueSyncFunc func(ctx context.Context, ev SubscriptionEvent) error

// Handler serves the billing endpoints. Both subscription and purchase
// payloads arrive here already verified and typed; the signature-checking
// proxy is outside this service.
type Handler struct {
	enqueue    EnqueueSyncFunc
	reconciler *Reconciler
	log        *slog.Logger
}

func NewHandler(enqueue EnqueueSyncFunc, reconciler *Reconciler, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{enqueue: enqueue, reconciler: reconciler, log: log}
}

// Webhook handles POST /billing/webhook: decode the verified event and queue
// it. Acknowledge fast; reconciliation runs on the worker pool.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev SubscriptionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	switch ev.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		http.Error(w, `{"error":"unknown event type"}`, http.StatusBadRequest)
		return
	}
	if ev.SubscriptionID == "" && ev.CustomerID == "" && ev.UserID == "" {
		http.Error(w, `{"error":"event carries no subscription reference"}`, http.StatusBadRequest)
		return
	}
	if err := h.enqueue(r.Context(), ev); err != nil {
		h.log.Error("enqueue subscription sync failed", "subscription_id", ev.SubscriptionID, "error", err)
		http.Error(w, `{"error":"failed to queue event"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"received":true}`))
}

type topUpResponse struct {
	BonusCredits     int `json:"bonus_credits"`
	CreditsRemaining int `json:"credits_remaining"`
}

// TopUp handles POST /billing/topup: a verified one-time purchase event from
// the payment processor. Credits are only ever minted against a processor
// payment reference; the user id is the one the checkout session carried, not
// whoever made the HTTP call.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	var ev PurchaseEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if ev.PaymentID == "" {
		http.Error(w, `{"error":"event carries no payment reference"}`, http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(ev.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid user_id"}`, http.StatusBadRequest)
		return
	}
	if ev.Credits <= 0 {
		http.Error(w, `{"error":"credits must be > 0"}`, http.StatusBadRequest)
		return
	}
	user, err := h.reconciler.TopUp(r.Context(), userID, ev.Credits, ev.PaymentID)
	if err != nil {
		h.log.Error("top-up failed", "user_id", userID, "payment_id", ev.PaymentID, "error", err)
		http.Error(w, `{"error":"top-up failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(topUpResponse{
		BonusCredits:     user.BonusCredits,
		CreditsRemaining: user.RemainingCredits(),
	})
}

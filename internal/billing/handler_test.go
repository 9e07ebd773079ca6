package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideamesh/backend/internal/models"
)

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	h(rec, r)
	return rec
}

func TestWebhookQueuesEvent(t *testing.T) {
	var queued []SubscriptionEvent
	enqueue := func(_ context.Context, ev SubscriptionEvent) error {
		queued = append(queued, ev)
		return nil
	}
	h := NewHandler(enqueue, nil, nil)

	body := `{"type":"updated","subscription_id":"sub_1","customer_id":"cus_1","status":"active","price_id":"price_pro"}`
	rec := postJSON(t, h.Webhook, "/api/v1/billing/webhook", body)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	require.Len(t, queued, 1)
	assert.Equal(t, EventUpdated, queued[0].Type)
	assert.Equal(t, "sub_1", queued[0].SubscriptionID)
}

func TestWebhookRejectsBadPayloads(t *testing.T) {
	enqueue := func(_ context.Context, _ SubscriptionEvent) error { return nil }
	h := NewHandler(enqueue, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{broken`},
		{"unknown event type", `{"type":"invoice.paid","subscription_id":"sub_1"}`},
		{"no subscription reference", `{"type":"updated","status":"active"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Webhook, "/api/v1/billing/webhook", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestWebhookEnqueueFailure(t *testing.T) {
	enqueue := func(_ context.Context, _ SubscriptionEvent) error { return errors.New("queue down") }
	h := NewHandler(enqueue, nil, nil)

	body := `{"type":"deleted","subscription_id":"sub_1","status":"canceled"}`
	rec := postJSON(t, h.Webhook, "/api/v1/billing/webhook", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTopUpEndpoint(t *testing.T) {
	id := uuid.New()
	store := newMockAccounts(&models.User{ID: id, Plan: models.PlanFree, AllowanceTotal: 500, UsedCredits: 100})
	h := NewHandler(nil, newTestReconciler(store, &mockNotifier{}), nil)

	body := `{"user_id":"` + id.String() + `","credits":250,"payment_id":"py_1"}`
	rec := postJSON(t, h.TopUp, "/api/v1/billing/topup", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp topUpResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 250, resp.BonusCredits)
	assert.Equal(t, 650, resp.CreditsRemaining)
}

func TestTopUpEndpointValidation(t *testing.T) {
	h := NewHandler(nil, newTestReconciler(newMockAccounts(), &mockNotifier{}), nil)

	rec := postJSON(t, h.TopUp, "/api/v1/billing/topup", `{"user_id":"not-a-uuid","credits":10,"payment_id":"py_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.TopUp, "/api/v1/billing/topup", `{"user_id":"`+uuid.NewString()+`","credits":0,"payment_id":"py_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// A purchase event without the processor's charge reference must never mint
// credits, no matter how well-formed the rest of the payload is.
func TestTopUpEndpointRejectsUnreferencedPurchase(t *testing.T) {
	id := uuid.New()
	store := newMockAccounts(&models.User{ID: id, Plan: models.PlanFree, AllowanceTotal: 500})
	h := NewHandler(nil, newTestReconciler(store, &mockNotifier{}), nil)

	body := `{"user_id":"` + id.String() + `","credits":1000000}`
	rec := postJSON(t, h.TopUp, "/api/v1/billing/topup", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.get(id).BonusCredits)
}

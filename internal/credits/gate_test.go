package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ideamesh/backend/internal/catalog"
	"github.com/ideamesh/backend/internal/costing"
	"github.com/ideamesh/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for Store and AuditLog. These let us test the real gate
// logic, including its atomicity contract, without a database.
// ---------------------------------------------------------------------------

type mockStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMockStore(users ...*models.User) *mockStore {
	m := &mockStore{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockStore) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) Rollover(_ context.Context, id uuid.UUID, now time.Time, allowance int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	if u.PeriodEnd != nil && !now.After(*u.PeriodEnd) {
		return nil
	}
	end := NextPeriodEnd(now)
	u.PeriodStart = &now
	u.PeriodEnd = &end
	u.AllowanceTotal = allowance
	u.UsedCredits = 0
	return nil
}

func (m *mockStore) ApplyCharge(_ context.Context, id uuid.UUID, cost int) (*models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false, fmt.Errorf("user %s not found", id)
	}
	if u.UsedCredits+cost > u.AllowanceTotal+u.BonusCredits {
		return nil, false, nil
	}
	u.UsedCredits += cost
	cp := *u
	return &cp, true, nil
}

func (m *mockStore) used(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].UsedCredits
}

type mockAudit struct {
	mu   sync.Mutex
	recs []*models.ChargeRecord
	err  error
}

func (m *mockAudit) Record(_ context.Context, rec *models.ChargeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *rec
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *mockAudit) byOutcome(outcome string) []*models.ChargeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ChargeRecord
	for _, r := range m.recs {
		if r.Outcome == outcome {
			out = append(out, r)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testEstimator(t *testing.T) *costing.Estimator {
	t.Helper()
	return costing.NewEstimator(catalog.Builtin())
}

func user(id uuid.UUID, plan string, allowance, used, bonus int, periodEnd time.Time) *models.User {
	u := &models.User{
		ID:             id,
		Plan:           plan,
		AllowanceTotal: allowance,
		UsedCredits:    used,
		BonusCredits:   bonus,
	}
	if !periodEnd.IsZero() {
		u.PeriodEnd = &periodEnd
	}
	return u
}

// ideasRequest prices at 3 credits on the default text model: the calibrated
// output and system overhead dominate an empty prompt.
func ideasRequest() costing.Request {
	return costing.Request{Action: costing.ActionGenerateIdeas}
}

// ---------------------------------------------------------------------------
// 1. Accept path
// ---------------------------------------------------------------------------

func TestChargeAccepted(t *testing.T) {
	id := uuid.New()
	end := time.Now().Add(24 * time.Hour)
	store := newMockStore(user(id, models.PlanFree, 500, 0, 0, end))
	audit := &mockAudit{}
	gate := NewGate(store, testEstimator(t), audit, nil)

	res, err := gate.Charge(context.Background(), id, ideasRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected charge to be accepted")
	}
	if res.Charged != 3 {
		t.Errorf("charged: got %d, want 3", res.Charged)
	}
	if res.Remaining != 497 {
		t.Errorf("remaining: got %d, want 497", res.Remaining)
	}
	if got := store.used(id); got != 3 {
		t.Errorf("used credits: got %d, want 3", got)
	}

	recs := audit.byOutcome(models.ChargeAccepted)
	if len(recs) != 1 {
		t.Fatalf("accepted audit records: got %d, want 1", len(recs))
	}
	if recs[0].UsedBefore != 0 || recs[0].UsedAfter != 3 {
		t.Errorf("audit usage: got before=%d after=%d, want 0/3", recs[0].UsedBefore, recs[0].UsedAfter)
	}
}

// ---------------------------------------------------------------------------
// 2. Rejection carries the full balance picture
// ---------------------------------------------------------------------------

func TestChargeRejectedWhenExhausted(t *testing.T) {
	id := uuid.New()
	end := time.Now().Add(24 * time.Hour)
	store := newMockStore(user(id, models.PlanFree, 500, 498, 0, end))
	audit := &mockAudit{}
	gate := NewGate(store, testEstimator(t), audit, nil)

	res, err := gate.Charge(context.Background(), id, ideasRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if res.Accepted {
		t.Fatal("expected charge to be rejected")
	}
	if res.Required != 3 {
		t.Errorf("required: got %d, want 3", res.Required)
	}
	if res.Remaining != 2 {
		t.Errorf("remaining: got %d, want 2", res.Remaining)
	}
	if res.AllowanceTotal != 500 {
		t.Errorf("allowance: got %d, want 500", res.AllowanceTotal)
	}
	if res.PeriodEnd.IsZero() {
		t.Error("rejection should carry the period end")
	}

	// The balance must not move on rejection.
	if got := store.used(id); got != 498 {
		t.Errorf("used credits after rejection: got %d, want 498", got)
	}
	if len(audit.byOutcome(models.ChargeRejected)) != 1 {
		t.Error("rejection should be audited")
	}
}

// ---------------------------------------------------------------------------
// 3. Lazy rollover on expired period
// ---------------------------------------------------------------------------

func TestChargeRollsOverExpiredPeriod(t *testing.T) {
	id := uuid.New()
	expired := time.Now().Add(-time.Hour)
	store := newMockStore(user(id, models.PlanPro, 6000, 5999, 0, expired))
	gate := NewGate(store, testEstimator(t), &mockAudit{}, nil)

	res, err := gate.Charge(context.Background(), id, ideasRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected charge to succeed after rollover")
	}
	if res.AllowanceTotal != PlanCredits(models.PlanPro) {
		t.Errorf("allowance after rollover: got %d, want %d", res.AllowanceTotal, PlanCredits(models.PlanPro))
	}
	if got := store.used(id); got != 3 {
		t.Errorf("used credits after rollover+charge: got %d, want 3", got)
	}
	if res.PeriodEnd.Before(time.Now()) {
		t.Error("rolled-over period end should be in the future")
	}
}

func TestRolloverPreservesBonusCredits(t *testing.T) {
	id := uuid.New()
	expired := time.Now().Add(-time.Hour)
	store := newMockStore(user(id, models.PlanFree, 500, 500, 40, expired))
	gate := NewGate(store, testEstimator(t), &mockAudit{}, nil)

	res, err := gate.Charge(context.Background(), id, ideasRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected charge to succeed")
	}
	if res.BonusCredits != 40 {
		t.Errorf("bonus credits after rollover: got %d, want 40", res.BonusCredits)
	}
}

// ---------------------------------------------------------------------------
// 4. Bonus credits extend the allowance
// ---------------------------------------------------------------------------

func TestChargeSpendsIntoBonus(t *testing.T) {
	id := uuid.New()
	end := time.Now().Add(24 * time.Hour)
	store := newMockStore(user(id, models.PlanFree, 500, 499, 10, end))
	gate := NewGate(store, testEstimator(t), &mockAudit{}, nil)

	res, err := gate.Charge(context.Background(), id, ideasRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected bonus credits to cover the charge")
	}
	if res.Remaining != 8 {
		t.Errorf("remaining: got %d, want 8", res.Remaining)
	}
}

// ---------------------------------------------------------------------------
// 5. No double-spend under concurrency
// ---------------------------------------------------------------------------

func TestChargeConcurrentNoDoubleSpend(t *testing.T) {
	id := uuid.New()
	end := time.Now().Add(24 * time.Hour)
	// Each charge costs 3; an allowance of 10 affords exactly 3 of them.
	store := newMockStore(user(id, models.PlanFree, 10, 0, 0, end))
	gate := NewGate(store, testEstimator(t), &mockAudit{}, nil)

	const attempts = 16
	var wg sync.WaitGroup
	accepted := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := gate.Charge(context.Background(), id, ideasRequest())
			if err != nil {
				t.Errorf("Charge: %v", err)
				return
			}
			accepted <- res.Accepted
		}()
	}
	wg.Wait()
	close(accepted)

	var wins int
	for ok := range accepted {
		if ok {
			wins++
		}
	}
	if wins != 3 {
		t.Errorf("accepted charges: got %d, want exactly 3", wins)
	}
	if got := store.used(id); got != 9 {
		t.Errorf("used credits: got %d, want 9", got)
	}
}

// ---------------------------------------------------------------------------
// 6. Audit failures never block the decision
// ---------------------------------------------------------------------------

func TestChargeAuditFailureIsNotFatal(t *testing.T) {
	id := uuid.New()
	end := time.Now().Add(24 * time.Hour)
	store := newMockStore(user(id, models.PlanFree, 500, 0, 0, end))
	audit := &mockAudit{err: errors.New("insert failed")}
	gate := NewGate(store, testEstimator(t), audit, nil)

	res, err := gate.Charge(context.Background(), id, ideasRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if !res.Accepted {
		t.Fatal("audit failure must not reject the charge")
	}
}

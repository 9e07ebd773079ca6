// Package credits owns the per-user rolling allowance window and the gate
// every AI-invoking operation passes through before it is allowed to run.
package credits

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ideamesh/backend/internal/costing"
	"github.com/ideamesh/backend/internal/models"
)

// Store is the minimal account store the gate needs. ApplyCharge must be a
// single atomic conditional mutation: two concurrent charges for the same
// user must never both succeed when only one could be afforded.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// Rollover resets the window to [now, now+1 month) with the given
	// allowance and zero usage, only if the stored period has elapsed.
	// Bonus credits are not touched.
	Rollover(ctx context.Context, userID uuid.UUID, now time.Time, allowance int) error
	// ApplyCharge increments used_credits by cost only if the result stays
	// within allowance+bonus. Returns the post-charge account and whether
	// the charge was applied.
	ApplyCharge(ctx context.Context, userID uuid.UUID, cost int) (*models.User, bool, error)
}

// AuditLog persists a record of every charge attempt.
type AuditLog interface {
	Record(ctx context.Context, rec *models.ChargeRecord) error
}

// Result is the gate decision. Rejections are an expected outcome, not an
// error: Accepted=false carries everything a client needs to render
// upgrade/wait UX without a follow-up request.
type Result struct {
	Accepted       bool
	Charged        int
	Required       int
	Remaining      int
	AllowanceTotal int
	BonusCredits   int
	PeriodEnd      time.Time
}

type Gate struct {
	store     Store
	estimator *costing.Estimator
	audit     AuditLog
	log       *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewGate(store Store, estimator *costing.Estimator, audit AuditLog, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{store: store, estimator: estimator, audit: audit, log: log, now: time.Now}
}

// Charge estimates the cost of the action and atomically reserves it against
// the user's allowance. The rolling window is lazily reset here when expired;
// no separate timer exists.
func (g *Gate) Charge(ctx context.Context, userID uuid.UUID, req costing.Request) (Result, error) {
	acct, err := g.store.Get(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	now := g.now()
	if acct.PeriodExpired(now) {
		if err := g.store.Rollover(ctx, userID, now, PlanCredits(acct.Plan)); err != nil {
			return Result{}, err
		}
		if acct, err = g.store.Get(ctx, userID); err != nil {
			return Result{}, err
		}
	}

	cost := g.estimator.Estimate(req)
	if cost < 1 {
		cost = 1
	}

	after, accepted, err := g.store.ApplyCharge(ctx, userID, cost)
	if err != nil {
		return Result{}, err
	}

	if !accepted {
		g.record(ctx, userID, req, cost, acct.UsedCredits, acct.UsedCredits, models.ChargeRejected)
		g.log.Info("charge rejected",
			"user_id", userID,
			"action", string(req.Action),
			"model_ids", auditModelIDs(req),
			"cost", cost,
			"remaining", acct.RemainingCredits(),
		)
		return Result{
			Accepted:       false,
			Required:       cost,
			Remaining:      acct.RemainingCredits(),
			AllowanceTotal: acct.AllowanceTotal,
			BonusCredits:   acct.BonusCredits,
			PeriodEnd:      periodEnd(acct),
		}, nil
	}

	g.record(ctx, userID, req, cost, after.UsedCredits-cost, after.UsedCredits, models.ChargeAccepted)
	g.log.Info("charge accepted",
		"user_id", userID,
		"action", string(req.Action),
		"model_ids", auditModelIDs(req),
		"cost", cost,
		"used_before", after.UsedCredits-cost,
		"used_after", after.UsedCredits,
	)
	return Result{
		Accepted:       true,
		Charged:        cost,
		Required:       cost,
		Remaining:      after.RemainingCredits(),
		AllowanceTotal: after.AllowanceTotal,
		BonusCredits:   after.BonusCredits,
		PeriodEnd:      periodEnd(after),
	}, nil
}

// record writes the audit row best-effort; a failed insert must not undo or
// block the charge decision.
func (g *Gate) record(ctx context.Context, userID uuid.UUID, req costing.Request, cost, usedBefore, usedAfter int, outcome string) {
	if g.audit == nil {
		return
	}
	rec := &models.ChargeRecord{
		ID:         uuid.New(),
		UserID:     userID,
		ActionKind: string(req.Action),
		ModelIDs:   auditModelIDs(req),
		Cost:       cost,
		Outcome:    outcome,
		UsedBefore: usedBefore,
		UsedAfter:  usedAfter,
	}
	if err := g.audit.Record(ctx, rec); err != nil {
		g.log.Error("charge audit record failed", "user_id", userID, "error", err)
	}
}

func auditModelIDs(req costing.Request) []string {
	if len(req.ModelIDs) > 0 {
		return req.ModelIDs
	}
	if req.ModelID != "" {
		return []string{req.ModelID}
	}
	return nil
}

func periodEnd(u *models.User) time.Time {
	if u.PeriodEnd == nil {
		return time.Time{}
	}
	return *u.PeriodEnd
}

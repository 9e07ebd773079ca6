// Package billing reconciles asynchronous subscription lifecycle events from
// the payment processor into the user's credit allowance. Every event is
// treated as a full-state resync, so replays and out-of-order deliveries
// converge instead of corrupting entitlements.
package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ideamesh/backend/internal/credits"
	"github.com/ideamesh/backend/internal/models"
)

// AccountStore is the account state the reconciler reads and rewrites.
type AccountStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// FindBySubscription returns (nil, nil) when no user matches.
	FindBySubscription(ctx context.Context, customerID, subscriptionID string) (*models.User, error)
	ApplyPlanSync(ctx context.Context, userID uuid.UUID, plan string, allowance int, now time.Time, pending *models.PendingPlanChange, customerID, subscriptionID string) error
	AddBonusCredits(ctx context.Context, userID uuid.UUID, amount int) (*models.User, error)
}

// Notifier announces plan upgrades. Best effort: a notification failure must
// never fail or roll back a reconciliation.
type Notifier interface {
	NotifyPlanUpgrade(ctx context.Context, userID uuid.UUID, plan string) error
}

type Reconciler struct {
	store    AccountStore
	prices   PriceMap
	notifier Notifier
	log      *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewReconciler(store AccountStore, prices PriceMap, notifier Notifier, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, prices: prices, notifier: notifier, log: log, now: time.Now}
}

// Sync re-derives the user's plan, allowance, and pending-change state from
// the event. Credit periods restart from sync time, decoupled from the
// processor's billing cadence. Unmatched users and unrecognized prices are
// logged warnings, never errors: webhook delivery must not retry into a
// poison loop, and catalog drift must not corrupt a paying user's plan.
func (r *Reconciler) Sync(ctx context.Context, ev SubscriptionEvent) error {
	user, err := r.findUser(ctx, ev)
	if err != nil {
		return err
	}
	if user == nil {
		r.log.Warn("no user matched subscription event",
			"subscription_id", ev.SubscriptionID, "customer_id", ev.CustomerID)
		return nil
	}

	now := r.now()
	plan, priceKnown := r.prices[ev.PriceID]

	switch {
	case ev.Status.Terminal():
		err := r.store.ApplyPlanSync(ctx, user.ID, models.PlanFree, credits.PlanCredits(models.PlanFree), now, nil, ev.CustomerID, ev.SubscriptionID)
		if err != nil {
			return err
		}
		r.log.Info("subscription ended, reverted to free tier",
			"user_id", user.ID, "status", string(ev.Status))

	case ev.Status.Entitles() && priceKnown:
		pending := r.pendingChange(ev, now)
		err := r.store.ApplyPlanSync(ctx, user.ID, plan, credits.PlanCredits(plan), now, pending, ev.CustomerID, ev.SubscriptionID)
		if err != nil {
			return err
		}
		r.log.Info("subscription synced",
			"user_id", user.ID, "plan", plan, "status", string(ev.Status))
		if user.Plan != plan && plan != models.PlanFree {
			if err := r.notifier.NotifyPlanUpgrade(ctx, user.ID, plan); err != nil {
				r.log.Warn("plan upgrade notification failed", "user_id", user.ID, "error", err)
			}
		}

	case ev.Status.Entitles():
		r.log.Warn("active subscription has unrecognized price",
			"user_id", user.ID, "price_id", ev.PriceID)

	default:
		r.log.Warn("ignoring subscription event with unhandled status",
			"user_id", user.ID, "status", string(ev.Status))
	}
	return nil
}

// TopUp credits a verified one-time purchase to bonusCredits. Top-ups never
// touch the period allowance or usage. paymentID is the processor's charge
// reference and must be present before any credits are minted.
func (r *Reconciler) TopUp(ctx context.Context, userID uuid.UUID, creditAmount int, paymentID string) (*models.User, error) {
	if creditAmount <= 0 {
		return nil, errors.New("billing: top-up amount must be positive")
	}
	if paymentID == "" {
		return nil, errors.New("billing: top-up requires a payment reference")
	}
	user, err := r.store.AddBonusCredits(ctx, userID, creditAmount)
	if err != nil {
		return nil, err
	}
	r.log.Info("top-up credited",
		"user_id", userID, "payment_id", paymentID,
		"credits", creditAmount, "bonus_total", user.BonusCredits)
	return user, nil
}

func (r *Reconciler) findUser(ctx context.Context, ev SubscriptionEvent) (*models.User, error) {
	if ev.UserID != "" {
		if id, err := uuid.Parse(ev.UserID); err == nil {
			if user, err := r.store.Get(ctx, id); err == nil && user != nil {
				return user, nil
			}
			// Stale hint: fall through to the billing reference lookup.
		}
	}
	return r.store.FindBySubscription(ctx, ev.CustomerID, ev.SubscriptionID)
}

// pendingChange captures a scheduled downgrade or cancellation. The plan
// stays in force; a later deleted/canceled event actually flips it.
func (r *Reconciler) pendingChange(ev SubscriptionEvent, now time.Time) *models.PendingPlanChange {
	effectiveAt := credits.NextPeriodEnd(now)
	if ev.CancelAtPeriodEnd {
		return &models.PendingPlanChange{ToPlan: models.PlanFree, EffectiveAt: effectiveAt}
	}
	if ev.PendingPriceID != "" {
		if toPlan, ok := r.prices[ev.PendingPriceID]; ok {
			return &models.PendingPlanChange{ToPlan: toPlan, EffectiveAt: effectiveAt}
		}
		r.log.Warn("pending subscription update has unrecognized price", "price_id", ev.PendingPriceID)
	}
	return nil
}

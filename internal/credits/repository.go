package credits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideamesh/backend/internal/models"
)

// Repository is the Postgres account store. It backs the gate, the billing
// reconciler, and the dashboard; all credit mutations are single guarded
// UPDATE statements so concurrent gate/reconciler calls cannot interleave
// partial states.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, password_hash, plan, allowance_total, bonus_credits, used_credits,
		period_start, period_end, pending_plan, pending_plan_effective_at,
		billing_customer_id, billing_subscription_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var pendingPlan *string
	var pendingAt *time.Time
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Plan, &u.AllowanceTotal, &u.BonusCredits, &u.UsedCredits,
		&u.PeriodStart, &u.PeriodEnd, &pendingPlan, &pendingAt,
		&u.BillingCustomerID, &u.BillingSubscriptionID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if pendingPlan != nil && pendingAt != nil {
		u.PendingPlanChange = &models.PendingPlanChange{ToPlan: *pendingPlan, EffectiveAt: *pendingAt}
	}
	return &u, nil
}

func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, userID))
}

// Rollover resets the window only when the stored period has elapsed, so
// concurrent gate evaluations race harmlessly: exactly one UPDATE matches.
func (r *Repository) Rollover(ctx context.Context, userID uuid.UUID, now time.Time, allowance int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET period_start = $2, period_end = $3, allowance_total = $4, used_credits = 0, updated_at = now()
		WHERE id = $1 AND (period_end IS NULL OR period_end < $2)
	`, userID, now, NextPeriodEnd(now), allowance)
	return err
}

// ApplyCharge increments used_credits by cost only if the result stays within
// allowance+bonus, as one atomic statement. No row updated means rejected.
func (r *Repository) ApplyCharge(ctx context.Context, userID uuid.UUID, cost int) (*models.User, bool, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET used_credits = used_credits + $2, updated_at = now()
		WHERE id = $1 AND used_credits + $2 <= allowance_total + bonus_credits
		RETURNING `+userColumns+`
	`, userID, cost))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// FindBySubscription matches a user by billing customer or subscription
// reference. Returns (nil, nil) when no user matches; webhook events over
// stale references must be a logged no-op, not an error.
func (r *Repository) FindBySubscription(ctx context.Context, customerID, subscriptionID string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1 <> '' AND billing_customer_id = $1)
		   OR ($2 <> '' AND billing_subscription_id = $2)
		LIMIT 1
	`, customerID, subscriptionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ApplyPlanSync writes the full re-derived subscription state: plan,
// allowance, fresh window, pending change, and billing references.
func (r *Repository) ApplyPlanSync(ctx context.Context, userID uuid.UUID, plan string, allowance int, now time.Time, pending *models.PendingPlanChange, customerID, subscriptionID string) error {
	var pendingPlan *string
	var pendingAt *time.Time
	if pending != nil {
		pendingPlan = &pending.ToPlan
		pendingAt = &pending.EffectiveAt
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET plan = $2, allowance_total = $3, used_credits = 0,
		    period_start = $4, period_end = $5,
		    pending_plan = $6, pending_plan_effective_at = $7,
		    billing_customer_id = COALESCE(NULLIF($8, ''), billing_customer_id),
		    billing_subscription_id = COALESCE(NULLIF($9, ''), billing_subscription_id),
		    updated_at = now()
		WHERE id = $1
	`, userID, plan, allowance, now, NextPeriodEnd(now), pendingPlan, pendingAt, customerID, subscriptionID)
	return err
}

// AddBonusCredits credits a one-time top-up. Bonus credits never expire with
// the period; they are only consumed.
func (r *Repository) AddBonusCredits(ctx context.Context, userID uuid.UUID, amount int) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET bonus_credits = bonus_credits + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, userID, amount))
}

// Record inserts a charge audit row.
func (r *Repository) Record(ctx context.Context, rec *models.ChargeRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO charge_log (id, user_id, action_kind, model_ids, cost, outcome, used_before, used_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, rec.ID, rec.UserID, rec.ActionKind, rec.ModelIDs, rec.Cost, rec.Outcome, rec.UsedBefore, rec.UsedAfter).Scan(&rec.CreatedAt)
}

// ListCharges returns the most recent charge audit rows for a user.
func (r *Repository) ListCharges(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChargeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action_kind, model_ids, cost, outcome, used_before, used_after, created_at
		FROM charge_log WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.ChargeRecord
	for rows.Next() {
		var c models.ChargeRecord
		if err := rows.Scan(&c.ID, &c.UserID, &c.ActionKind, &c.ModelIDs, &c.Cost, &c.Outcome, &c.UsedBefore, &c.UsedAfter, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan tier enums. Per-tier credit allowances live in internal/credits.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// PendingPlanChange records a scheduled downgrade or cancellation. The plan
// stays as-is until the payment processor actually flips the subscription.
type PendingPlanChange struct {
	ToPlan      string    `json:"to_plan"`
	EffectiveAt time.Time `json:"effective_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`

	Plan              string             `json:"plan"`
	AllowanceTotal    int                `json:"allowance_total"`
	BonusCredits      int                `json:"bonus_credits"`
	UsedCredits       int                `json:"used_credits"`
	PeriodStart       *time.Time         `json:"period_start,omitempty"`
	PeriodEnd         *time.Time         `json:"period_end,omitempty"`
	PendingPlanChange *PendingPlanChange `json:"pending_plan_change,omitempty"`

	BillingCustomerID     string `json:"-"`
	BillingSubscriptionID string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemainingCredits is allowance plus bonus minus usage, floored at zero.
func (u *User) RemainingCredits() int {
	rem := u.AllowanceTotal + u.BonusCredits - u.UsedCredits
	if rem < 0 {
		return 0
	}
	return rem
}

// PeriodExpired reports whether the rolling credit window has elapsed.
// An unset periodEnd counts as expired so new accounts roll over on first use.
func (u *User) PeriodExpired(now time.Time) bool {
	return u.PeriodEnd == nil || now.After(*u.PeriodEnd)
}

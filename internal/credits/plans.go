package credits

import (
	"time"

	"github.com/ideamesh/backend/internal/models"
)

// Per-tier monthly credit allowance. Credit scale: 1000 credits == $1 of
// model spend.
var planCredits = map[string]int{
	models.PlanFree:  500,
	models.PlanBasic: 3000,
	models.PlanPro:   6000,
}

// PlanCredits returns the allowance for a plan tier, treating unknown tiers
// as free.
func PlanCredits(plan string) int {
	if credits, ok := planCredits[plan]; ok {
		return credits
	}
	return planCredits[models.PlanFree]
}

// NextPeriodEnd returns the end of a rolling credit window starting at start.
func NextPeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, 0)
}

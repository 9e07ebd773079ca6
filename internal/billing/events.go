package billing

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "active"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusUnpaid            SubscriptionStatus = "unpaid"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// Entitles reports whether the status keeps a paid plan in force.
func (s SubscriptionStatus) Entitles() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusIncomplete:
		return true
	}
	return false
}

// Terminal reports whether the status ends the subscription.
func (s SubscriptionStatus) Terminal() bool {
	switch s {
	case StatusCanceled, StatusUnpaid, StatusIncompleteExpired:
		return true
	}
	return false
}

// SubscriptionEvent is a subscription lifecycle event from the payment
// processor. Signature verification happens upstream of this package; the
// reconciler trusts the payload as already authenticated. Each event carries
// the full subscription state, not a delta.
type SubscriptionEvent struct {
	Type           EventType `json:"type"`
	SubscriptionID string    `json:"subscription_id"`
	CustomerID     string    `json:"customer_id"`
	// UserID is the metadata hint the checkout flow attaches; may be empty
	// or stale, in which case the customer/subscription reference is used.
	UserID            string             `json:"user_id,omitempty"`
	Status            SubscriptionStatus `json:"status"`
	PriceID           string             `json:"price_id"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
	// PendingPriceID is set when the processor has a scheduled downgrade
	// that has not taken effect yet.
	PendingPriceID string `json:"pending_price_id,omitempty"`
}

// PurchaseEvent is a completed one-time credit purchase from the payment
// processor. Like SubscriptionEvent, the payload arrives already verified by
// the upstream signature check; it is never accepted from an end-user session.
type PurchaseEvent struct {
	// UserID comes from the checkout session metadata.
	UserID  string `json:"user_id"`
	Credits int    `json:"credits"`
	// PaymentID is the processor's charge reference for the purchase.
	PaymentID string `json:"payment_id"`
}

// PriceMap maps processor price ids to plan tiers. Built from environment at
// startup.
type PriceMap map[string]string

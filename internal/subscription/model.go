package subscription

import "time"

// Status follows the billing processor's vocabulary. Access decisions are
// never made on Status alone; see DeriveAccessState.
type Status string

// DelinquencyState is the billing-health classification driven by the
// billing webhook path. Members never mutate it directly.
type DelinquencyState string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusUnpaid   Status = "unpaid"

	DelinquencyCurrent    DelinquencyState = "current"
	DelinquencyGrace      DelinquencyState = "grace"
	DelinquencyRestricted DelinquencyState = "restricted"
	DelinquencyRecovered  DelinquencyState = "recovered"
)

type Plan struct {
	ID          int    `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	PriceCents  int64  `db:"price_cents" json:"price_cents"`
	Currency    string `db:"currency" json:"currency"`
	Interval    string `db:"interval" json:"interval"`
}

type Subscription struct {
	ID               int              `db:"id" json:"id"`
	MemberID         int              `db:"member_id" json:"member_id"`
	PlanID           int              `db:"plan_id" json:"plan_id"`
	LocationID       int              `db:"location_id" json:"location_id"`
	Status           Status           `db:"status" json:"status"`
	DelinquencyState DelinquencyState `db:"delinquency_state" json:"delinquency_state"`
	GracePeriodUntil *time.Time       `db:"grace_period_until" json:"grace_period_until,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

type CreateSubscriptionRequest struct {
	PlanID     int `json:"plan_id" binding:"required"`
	LocationID int `json:"location_id" binding:"required"`
}

type SubscriptionView struct {
	Subscription
	AccessState AccessState `json:"access_state"`
	Recovered   bool        `json:"recovered,omitempty"`
}

package subscription

import (
	"context"
	"time"
)

type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByID(ctx context.Context, id int) (*Plan, error)

	// GetCurrentByMember returns the member's latest subscription by
	// creation, or nil when none exists.
	GetCurrentByMember(ctx context.Context, memberID int) (*Subscription, error)
	ListByMember(ctx context.Context, memberID int) ([]Subscription, error)

	// CreateWithAdmission runs the capacity-guarded sign-up transaction.
	CreateWithAdmission(ctx context.Context, memberID, planID, locationID int) (*Subscription, error)

	// Billing webhook effects.
	MarkPaymentFailed(ctx context.Context, memberID int, graceUntil time.Time) error
	MarkPaymentSucceeded(ctx context.Context, memberID int, at time.Time) error

	// ClearRecovered consumes the one-shot recovered marker, reporting
	// whether this caller won the consumption.
	ClearRecovered(ctx context.Context, subscriptionID int) (bool, error)
}

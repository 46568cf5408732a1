package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gympass/internal/location"
)

var (
	ErrPlanNotFound         = errors.New("pricing plan not found")
	ErrLocationUnavailable  = errors.New("location not found or inactive")
	ErrLocationOutsideChain = errors.New("location is outside the member's chain")
	ErrCapacityBlocked      = errors.New("location is at capacity")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListPlans(ctx context.Context) ([]Plan, error) {
	plans := []Plan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT id, code, name, description, price_cents, currency, interval
		FROM pricing_plans
		ORDER BY price_cents
	`)
	if err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *repository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	var plan Plan
	err := r.db.GetContext(ctx, &plan, `
		SELECT id, code, name, description, price_cents, currency, interval
		FROM pricing_plans
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *repository) GetCurrentByMember(ctx context.Context, memberID int) (*Subscription, error) {
	var sub Subscription
	err := r.db.GetContext(ctx, &sub, `
		SELECT id, member_id, plan_id, location_id, status, delinquency_state, grace_period_until, created_at, updated_at
		FROM subscriptions
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT id, member_id, plan_id, location_id, status, delinquency_state, grace_period_until, created_at, updated_at
		FROM subscriptions
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
	`, memberID)
	if err != nil {
		return nil, err
	}

	return subs, nil
}

// CreateWithAdmission admits a new subscription against the location's
// capacity. The capacity row is locked FOR UPDATE and the active-member
// count re-run inside the transaction, so concurrent sign-ups for the same
// location serialize and a hard limit cannot be overshot. A UI capacity
// snapshot is never trusted here.
func (r *repository) CreateWithAdmission(ctx context.Context, memberID, planID, locationID int) (*Subscription, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Membership is chain-scoped. A sign-up outside the member's chain
	// would be admitted yet never counted by the active-member query, so
	// it is rejected before the capacity check.
	var loc struct {
		Active    bool `db:"active"`
		SameChain bool `db:"same_chain"`
	}
	err = tx.GetContext(ctx, &loc, `
		SELECT l.active, (l.chain_id = m.chain_id) AS same_chain
		FROM locations l
		JOIN members m ON m.id = $2
		WHERE l.id = $1
	`, locationID, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLocationUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !loc.Active {
		return nil, ErrLocationUnavailable
	}
	if !loc.SameChain {
		return nil, ErrLocationOutsideChain
	}

	var limit location.CapacityLimit
	err = tx.GetContext(ctx, &limit, `
		SELECT location_id, max_active_members, soft_limit_threshold, hard_limit_enforced, updated_at
		FROM capacity_limits
		WHERE location_id = $1
		FOR UPDATE
	`, locationID)
	hasLimit := true
	if errors.Is(err, sql.ErrNoRows) {
		hasLimit = false
	} else if err != nil {
		return nil, err
	}

	if hasLimit && limit.HardLimitEnforced && limit.MaxActiveMembers != nil {
		var activeCount int
		if err := tx.GetContext(ctx, &activeCount, location.ActiveMembersQuery, locationID); err != nil {
			return nil, err
		}
		if activeCount >= *limit.MaxActiveMembers {
			return nil, ErrCapacityBlocked
		}
	}

	var sub Subscription
	err = tx.GetContext(ctx, &sub, `
		INSERT INTO subscriptions (member_id, plan_id, location_id, status, delinquency_state)
		VALUES ($1, $2, $3, 'active', 'current')
		RETURNING id, member_id, plan_id, location_id, status, delinquency_state, grace_period_until, created_at, updated_at
	`, memberID, planID, locationID)
	if err != nil {
		return nil, err
	}

	if err := ensureGrant(ctx, tx, memberID, locationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &sub, nil
}

// ensureGrant makes sure the member holds an ACTIVE grant covering the
// subscribed location. The first subscription creates the HOME grant;
// later ones at other locations add SECONDARY grants.
func ensureGrant(ctx context.Context, tx *sqlx.Tx, memberID, locationID int) error {
	var covered bool
	err := tx.GetContext(ctx, &covered, `
		SELECT EXISTS(
			SELECT 1 FROM access_grants
			WHERE member_id = $1 AND status = 'ACTIVE'
			  AND (location_id = $2 OR (access_type = 'ALL_ACCESS' AND location_id IS NULL))
		)
	`, memberID, locationID)
	if err != nil {
		return err
	}
	if covered {
		return nil
	}

	var hasHome bool
	err = tx.GetContext(ctx, &hasHome, `
		SELECT EXISTS(
			SELECT 1 FROM access_grants
			WHERE member_id = $1 AND access_type = 'HOME' AND status = 'ACTIVE'
		)
	`, memberID)
	if err != nil {
		return err
	}

	grantType := "HOME"
	if hasHome {
		grantType = "SECONDARY"
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO access_grants (member_id, location_id, access_type, status)
		VALUES ($1, $2, $3, 'ACTIVE')
	`, memberID, locationID, grantType)
	return err
}

func (r *repository) MarkPaymentFailed(ctx context.Context, memberID int, graceUntil time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'past_due',
		    delinquency_state = 'grace',
		    grace_period_until = $2,
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE member_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`, memberID, graceUntil)
	if err != nil {
		return err
	}

	return requireRow(result)
}

func (r *repository) MarkPaymentSucceeded(ctx context.Context, memberID int, at time.Time) error {
	// Grace or restricted members get the one-shot recovered marker so the
	// client can confirm once; a current member stays current.
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'active',
		    delinquency_state = CASE
		        WHEN delinquency_state IN ('grace', 'restricted') THEN 'recovered'
		        ELSE delinquency_state
		    END,
		    grace_period_until = NULL,
		    updated_at = $2
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE member_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`, memberID, at)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// ClearRecovered consumes the recovered marker. The conditional update is
// the arbiter: only the reader whose update hits the row gets true, so
// concurrent reads surface the confirmation at most once.
func (r *repository) ClearRecovered(ctx context.Context, subscriptionID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET delinquency_state = 'current', updated_at = NOW()
		WHERE id = $1 AND delinquency_state = 'recovered'
	`, subscriptionID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

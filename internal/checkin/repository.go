package checkin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gympass/internal/subscription"
)

var (
	ErrTokenNotFound      = errors.New("check-in token not found")
	ErrTokenExpired       = errors.New("check-in token expired")
	ErrTokenAlreadyUsed   = errors.New("check-in token already used")
	ErrAccessRestricted   = errors.New("member access is restricted")
	ErrNoAccessAtLocation = errors.New("member has no access grant at location")
)

const latestSubscriptionQuery = `
	SELECT id, member_id, plan_id, location_id, status, delinquency_state, grace_period_until, created_at, updated_at
	FROM subscriptions
	WHERE member_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT 1
`

const insertEventQuery = `
	WITH inserted AS (
		INSERT INTO checkin_events (member_id, location_id, source, recorded_by, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, member_id, location_id, source, recorded_by, occurred_at
	)
	SELECT i.id, i.member_id, u.name AS member_name, i.location_id, i.source, i.recorded_by, i.occurred_at
	FROM inserted i
	JOIN members m ON m.id = i.member_id
	JOIN users u ON u.id = m.user_id
`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IssueToken(ctx context.Context, memberID int, value string, issuedAt, expiresAt time.Time) (*Token, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// A member holds at most one live token. Re-requesting the QR code
	// invalidates the previous one instead of leaving two in flight.
	_, err = tx.ExecContext(ctx, `
		UPDATE checkin_tokens
		SET consumed_at = $2
		WHERE member_id = $1 AND consumed_at IS NULL AND expires_at > $2
	`, memberID, issuedAt)
	if err != nil {
		return nil, err
	}

	var token Token
	err = tx.GetContext(ctx, &token, `
		INSERT INTO checkin_tokens (member_id, value, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, member_id, value, issued_at, expires_at, consumed_at
	`, memberID, value, issuedAt, expiresAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &token, nil
}

// ConsumeToken is the single serialization point for gate entry. The token
// row is locked FOR UPDATE and the member's access state is re-derived from
// the latest subscription inside the same transaction, so a grace window
// that lapsed after issuance still denies entry.
func (r *repository) ConsumeToken(ctx context.Context, value string, locationID, staffUserID int, now time.Time) (*Event, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var token Token
	err = tx.GetContext(ctx, &token, `
		SELECT id, member_id, value, issued_at, expires_at, consumed_at
		FROM checkin_tokens
		WHERE value = $1
		FOR UPDATE
	`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	if !now.Before(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if token.ConsumedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}

	if err := checkAccess(ctx, tx, token.MemberID, locationID, now); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE checkin_tokens
		SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL
	`, token.ID, now)
	if err != nil {
		return nil, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrTokenAlreadyUsed
	}

	var event Event
	err = tx.GetContext(ctx, &event, insertEventQuery, token.MemberID, locationID, SourceQR, staffUserID, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *repository) RecordManual(ctx context.Context, memberID, locationID, staffUserID int, now time.Time) (*Event, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The front desk can stand in for a forgotten phone, not for an
	// unpaid subscription.
	if err := checkAccess(ctx, tx, memberID, locationID, now); err != nil {
		return nil, err
	}

	var event Event
	err = tx.GetContext(ctx, &event, insertEventQuery, memberID, locationID, SourceManual, staffUserID, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &event, nil
}

// ListRecent returns the newest events first. A non-nil day restricts the
// listing to that calendar day, which is what the dashboard refetches after
// a stream reconnect.
func (r *repository) ListRecent(ctx context.Context, locationID int, day *time.Time, limit int) ([]Event, error) {
	events := []Event{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT e.id, e.member_id, u.name AS member_name, e.location_id, e.source, e.recorded_by, e.occurred_at
		FROM checkin_events e
		JOIN members m ON m.id = e.member_id
		JOIN users u ON u.id = m.user_id
		WHERE e.location_id = $1
		  AND ($2::timestamptz IS NULL OR (e.occurred_at >= $2 AND e.occurred_at < $2::timestamptz + INTERVAL '1 day'))
		ORDER BY e.occurred_at DESC, e.id DESC
		LIMIT $3
	`, locationID, day, limit)
	if err != nil {
		return nil, err
	}

	return events, nil
}

// checkAccess re-derives the member's standing for the given location:
// subscription state first, then grant coverage.
func checkAccess(ctx context.Context, tx *sqlx.Tx, memberID, locationID int, now time.Time) error {
	var sub subscription.Subscription
	err := tx.GetContext(ctx, &sub, latestSubscriptionQuery, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccessRestricted
	}
	if err != nil {
		return err
	}

	if state, _ := subscription.DeriveAccessState(&sub, now); state == subscription.StateRestricted {
		return ErrAccessRestricted
	}

	// ALL_ACCESS is chain-wide, never cross-chain.
	var covered bool
	err = tx.GetContext(ctx, &covered, `
		SELECT EXISTS(
			SELECT 1 FROM access_grants g
			WHERE g.member_id = $1 AND g.status = 'ACTIVE' AND g.location_id = $2
		) OR EXISTS(
			SELECT 1 FROM access_grants g
			JOIN members m ON m.id = g.member_id
			JOIN locations l ON l.chain_id = m.chain_id AND l.id = $2
			WHERE g.member_id = $1 AND g.status = 'ACTIVE'
			  AND g.access_type = 'ALL_ACCESS' AND g.location_id IS NULL
		)
	`, memberID, locationID)
	if err != nil {
		return err
	}
	if !covered {
		return ErrNoAccessAtLocation
	}

	return nil
}

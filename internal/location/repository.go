package location

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrLocationNotFound = errors.New("location not found")
)

// ActiveMembersQuery counts members admitted against a location's capacity:
// an ACTIVE grant at the location (or an ACTIVE ALL_ACCESS grant within the
// location's chain) and a latest subscription that is not currently
// restricted. Subscription admission runs this same count inside its
// transaction.
const ActiveMembersQuery = `
	SELECT COUNT(DISTINCT m.id)
	FROM locations l
	JOIN members m ON m.chain_id = l.chain_id
	JOIN access_grants ag ON ag.member_id = m.id
		AND ag.status = 'ACTIVE'
		AND (ag.location_id = l.id OR (ag.access_type = 'ALL_ACCESS' AND ag.location_id IS NULL))
	JOIN LATERAL (
		SELECT s.status, s.delinquency_state, s.grace_period_until
		FROM subscriptions s
		WHERE s.member_id = m.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1
	) cur ON TRUE
	WHERE l.id = $1
	  AND cur.status NOT IN ('canceled', 'unpaid')
	  AND cur.delinquency_state <> 'restricted'
	  AND NOT (cur.delinquency_state = 'grace' AND cur.grace_period_until <= NOW())
`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateChain(ctx context.Context, name string) (*Chain, error) {
	var chain Chain
	err := r.db.GetContext(ctx, &chain, `
		INSERT INTO chains (name)
		VALUES ($1)
		RETURNING id, name, created_at
	`, name)
	if err != nil {
		return nil, err
	}

	return &chain, nil
}

func (r *repository) CreateLocation(ctx context.Context, chainID int, name, address string) (*Location, error) {
	var loc Location
	err := r.db.GetContext(ctx, &loc, `
		INSERT INTO locations (chain_id, name, address, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, chain_id, name, address, active, created_at
	`, chainID, name, address)
	if err != nil {
		return nil, err
	}

	return &loc, nil
}

func (r *repository) GetLocationByID(ctx context.Context, id int) (*Location, error) {
	var loc Location
	err := r.db.GetContext(ctx, &loc, `
		SELECT id, chain_id, name, address, active, created_at
		FROM locations
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, err
	}

	return &loc, nil
}

func (r *repository) ListActiveByChain(ctx context.Context, chainID int) ([]Location, error) {
	locations := []Location{}
	err := r.db.SelectContext(ctx, &locations, `
		SELECT id, chain_id, name, address, active, created_at
		FROM locations
		WHERE chain_id = $1 AND active
		ORDER BY id
	`, chainID)
	if err != nil {
		return nil, err
	}

	return locations, nil
}

func (r *repository) DeactivateLocation(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE locations
		SET active = FALSE
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrLocationNotFound
	}

	return nil
}

func (r *repository) GetCapacityLimit(ctx context.Context, locationID int) (*CapacityLimit, error) {
	var limit CapacityLimit
	err := r.db.GetContext(ctx, &limit, `
		SELECT location_id, max_active_members, soft_limit_threshold, hard_limit_enforced, updated_at
		FROM capacity_limits
		WHERE location_id = $1
	`, locationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &limit, nil
}

func (r *repository) UpsertCapacityLimit(ctx context.Context, locationID int, maxActive *int, softThreshold float64, hardEnforced bool) (*CapacityLimit, error) {
	var limit CapacityLimit
	err := r.db.GetContext(ctx, &limit, `
		INSERT INTO capacity_limits (location_id, max_active_members, soft_limit_threshold, hard_limit_enforced, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (location_id)
		DO UPDATE SET
			max_active_members = EXCLUDED.max_active_members,
			soft_limit_threshold = EXCLUDED.soft_limit_threshold,
			hard_limit_enforced = EXCLUDED.hard_limit_enforced,
			updated_at = NOW()
		RETURNING location_id, max_active_members, soft_limit_threshold, hard_limit_enforced, updated_at
	`, locationID, maxActive, softThreshold, hardEnforced)
	if err != nil {
		return nil, err
	}

	return &limit, nil
}

func (r *repository) CountActiveMembers(ctx context.Context, locationID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, ActiveMembersQuery, locationID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

package access

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotStaffAtLocation = errors.New("no active staff assignment at location")
	ErrMemberNotFound     = errors.New("member profile not found")
	ErrGrantNotFound      = errors.New("access grant not found")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActiveStaffLocations(ctx context.Context, userID int) ([]LocationSummary, error) {
	query := `
		SELECT l.id, l.chain_id, l.name, l.address
		FROM staff_assignments sa
		JOIN locations l ON l.id = sa.location_id
		WHERE sa.user_id = $1 AND sa.active AND l.active
		ORDER BY l.id
	`

	locations := []LocationSummary{}
	err := r.db.SelectContext(ctx, &locations, query, userID)
	if err != nil {
		return nil, err
	}

	return locations, nil
}

func (r *repository) StaffRoleAt(ctx context.Context, userID, locationID int) (StaffRole, error) {
	var role StaffRole
	err := r.db.GetContext(ctx, &role, `
		SELECT role
		FROM staff_assignments
		WHERE user_id = $1 AND location_id = $2 AND active
	`, userID, locationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotStaffAtLocation
	}
	if err != nil {
		return "", err
	}

	return role, nil
}

func (r *repository) AssignStaff(ctx context.Context, userID, locationID int, role StaffRole) (*StaffAssignment, error) {
	var assignment StaffAssignment
	err := r.db.GetContext(ctx, &assignment, `
		INSERT INTO staff_assignments (user_id, location_id, role, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, location_id)
		DO UPDATE SET role = EXCLUDED.role, active = TRUE
		RETURNING id, user_id, location_id, role, active, created_at
	`, userID, locationID, role)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

func (r *repository) MemberChainID(ctx context.Context, memberID int) (int, error) {
	var chainID int
	err := r.db.GetContext(ctx, &chainID, `SELECT chain_id FROM members WHERE id = $1`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMemberNotFound
	}
	return chainID, err
}

func (r *repository) MemberIDByUserID(ctx context.Context, userID int) (int, error) {
	var memberID int
	err := r.db.GetContext(ctx, &memberID, `SELECT id FROM members WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMemberNotFound
	}
	return memberID, err
}

func (r *repository) ListActiveGrants(ctx context.Context, memberID int) ([]Grant, error) {
	grants := []Grant{}
	err := r.db.SelectContext(ctx, &grants, `
		SELECT id, member_id, location_id, access_type, status, created_at
		FROM access_grants
		WHERE member_id = $1 AND status = 'ACTIVE'
		ORDER BY id
	`, memberID)
	if err != nil {
		return nil, err
	}

	return grants, nil
}

func (r *repository) ListGrantedLocations(ctx context.Context, memberID int) ([]LocationSummary, error) {
	query := `
		SELECT DISTINCT l.id, l.chain_id, l.name, l.address
		FROM access_grants ag
		JOIN locations l ON l.id = ag.location_id
		WHERE ag.member_id = $1 AND ag.status = 'ACTIVE' AND l.active
		ORDER BY l.id
	`

	locations := []LocationSummary{}
	err := r.db.SelectContext(ctx, &locations, query, memberID)
	if err != nil {
		return nil, err
	}

	return locations, nil
}

func (r *repository) ListActiveChainLocations(ctx context.Context, chainID int) ([]LocationSummary, error) {
	locations := []LocationSummary{}
	err := r.db.SelectContext(ctx, &locations, `
		SELECT id, chain_id, name, address
		FROM locations
		WHERE chain_id = $1 AND active
		ORDER BY id
	`, chainID)
	if err != nil {
		return nil, err
	}

	return locations, nil
}

func (r *repository) HomeLocationID(ctx context.Context, memberID int) (*int, error) {
	var locationID int
	err := r.db.GetContext(ctx, &locationID, `
		SELECT location_id
		FROM access_grants
		WHERE member_id = $1 AND access_type = 'HOME' AND status = 'ACTIVE' AND location_id IS NOT NULL
	`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &locationID, nil
}

func (r *repository) CreateGrant(ctx context.Context, memberID int, locationID *int, accessType AccessType) (*Grant, error) {
	var grant Grant
	err := r.db.GetContext(ctx, &grant, `
		INSERT INTO access_grants (member_id, location_id, access_type, status)
		VALUES ($1, $2, $3, 'ACTIVE')
		RETURNING id, member_id, location_id, access_type, status, created_at
	`, memberID, locationID, accessType)
	if err != nil {
		return nil, err
	}

	return &grant, nil
}

func (r *repository) UpdateGrantStatus(ctx context.Context, grantID int, status GrantStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET status = $1
		WHERE id = $2
	`, status, grantID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGrantNotFound
	}

	return nil
}

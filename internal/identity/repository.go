package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"gympass/internal/auth"
	"gympass/internal/db"
)

var ErrUserNotFound = errors.New("user not found")
var ErrMemberNotFound = errors.New("member profile not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateMemberUser(ctx context.Context, name, email, passwordHash string, chainID int) (*User, *Member, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var user User
	err = tx.GetContext(ctx, &user, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, role, created_at
	`, name, email, passwordHash, auth.RoleMember)
	if err != nil {
		return nil, nil, err
	}

	var member Member
	err = tx.GetContext(ctx, &member, `
		INSERT INTO members (user_id, chain_id)
		VALUES ($1, $2)
		RETURNING id, user_id, chain_id, created_at
	`, user.ID, chainID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return &user, &member, nil
}

func (r *repository) CreateStaffUser(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, role, created_at
	`, name, email, passwordHash, role)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *repository) MemberByUserID(ctx context.Context, userID int) (*Member, error) {
	var member Member
	err := r.db.GetContext(ctx, &member, `
		SELECT id, user_id, chain_id, created_at
		FROM members
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}

	return &member, nil
}

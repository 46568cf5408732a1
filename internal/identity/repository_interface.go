package identity

import "context"

type Repository interface {
	CreateMemberUser(ctx context.Context, name, email, passwordHash string, chainID int) (*User, *Member, error)
	CreateStaffUser(ctx context.Context, name, email, passwordHash, role string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	MemberByUserID(ctx context.Context, userID int) (*Member, error)
}

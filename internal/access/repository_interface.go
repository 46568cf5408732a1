package access

import "context"

type Repository interface {
	// Staff side.
	ListActiveStaffLocations(ctx context.Context, userID int) ([]LocationSummary, error)
	StaffRoleAt(ctx context.Context, userID, locationID int) (StaffRole, error)
	AssignStaff(ctx context.Context, userID, locationID int, role StaffRole) (*StaffAssignment, error)

	// Member side.
	MemberChainID(ctx context.Context, memberID int) (int, error)
	MemberIDByUserID(ctx context.Context, userID int) (int, error)
	ListActiveGrants(ctx context.Context, memberID int) ([]Grant, error)
	ListGrantedLocations(ctx context.Context, memberID int) ([]LocationSummary, error)
	ListActiveChainLocations(ctx context.Context, chainID int) ([]LocationSummary, error)
	HomeLocationID(ctx context.Context, memberID int) (*int, error)
	CreateGrant(ctx context.Context, memberID int, locationID *int, accessType AccessType) (*Grant, error)
	UpdateGrantStatus(ctx context.Context, grantID int, status GrantStatus) error
}

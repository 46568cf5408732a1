package access

import "time"

type AccessType string
type GrantStatus string
type StaffRole string

const (
	TypeHome      AccessType = "HOME"
	TypeSecondary AccessType = "SECONDARY"
	TypeAllAccess AccessType = "ALL_ACCESS"

	GrantActive    GrantStatus = "ACTIVE"
	GrantSuspended GrantStatus = "SUSPENDED"
	GrantExpired   GrantStatus = "EXPIRED"

	RoleFrontDesk StaffRole = "front_desk"
	RoleManager   StaffRole = "manager"
	RoleAdmin     StaffRole = "admin"
)

// Grant relates a member to a location. ALL_ACCESS grants carry a NULL
// location and expand to every active location in the member's chain at
// query time.
type Grant struct {
	ID         int         `db:"id" json:"id"`
	MemberID   int         `db:"member_id" json:"member_id"`
	LocationID *int        `db:"location_id" json:"location_id,omitempty"`
	AccessType AccessType  `db:"access_type" json:"access_type"`
	Status     GrantStatus `db:"status" json:"status"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

type StaffAssignment struct {
	ID         int       `db:"id" json:"id"`
	UserID     int       `db:"user_id" json:"user_id"`
	LocationID int       `db:"location_id" json:"location_id"`
	Role       StaffRole `db:"role" json:"role"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type LocationSummary struct {
	ID      int    `db:"id" json:"id"`
	ChainID int    `db:"chain_id" json:"chain_id"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
}

// Resolution is the effective accessible-location set for one identity.
// An empty set is a legitimate terminal state, not an error.
type Resolution struct {
	Locations        []LocationSummary `json:"locations"`
	ActiveLocationID *int              `json:"active_location_id"`
	IsMultiLocation  bool              `json:"is_multi_location"`
	NoAccess         bool              `json:"no_access"`
}

type CreateGrantRequest struct {
	LocationID *int   `json:"location_id,omitempty"`
	AccessType string `json:"access_type" binding:"required,oneof=HOME SECONDARY ALL_ACCESS"`
}

type AssignStaffRequest struct {
	UserID     int    `json:"user_id" binding:"required"`
	LocationID int    `json:"location_id" binding:"required"`
	Role       string `json:"role" binding:"required,oneof=front_desk manager admin"`
}

// CanManageLocationSettings reports whether a staff role may mutate
// capacity limits and other location settings.
func CanManageLocationSettings(role StaffRole) bool {
	return role == RoleManager || role == RoleAdmin
}

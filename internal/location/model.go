package location

import "time"

type Chain struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Location is a physical site in a chain. Locations are soft-disabled via
// the active flag and never hard-deleted while check-in history references
// them.
type Location struct {
	ID        int       `db:"id" json:"id"`
	ChainID   int       `db:"chain_id" json:"chain_id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CapacityLimit configures admission control for one location. A NULL
// max_active_members means unlimited.
type CapacityLimit struct {
	LocationID         int       `db:"location_id" json:"location_id"`
	MaxActiveMembers   *int      `db:"max_active_members" json:"max_active_members"`
	SoftLimitThreshold float64   `db:"soft_limit_threshold" json:"soft_limit_threshold"`
	HardLimitEnforced  bool      `db:"hard_limit_enforced" json:"hard_limit_enforced"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type CapacityStatus string

const (
	StatusOK         CapacityStatus = "OK"
	StatusNearLimit  CapacityStatus = "NEAR_LIMIT"
	StatusAtCapacity CapacityStatus = "AT_CAPACITY"
	StatusBlockNew   CapacityStatus = "BLOCK_NEW"
)

type CapacityReport struct {
	ActiveMembersCount int            `json:"active_members_count"`
	MaxActiveMembers   *int           `json:"max_active_members"`
	SoftLimitThreshold float64        `json:"soft_limit_threshold"`
	HardLimitEnforced  bool           `json:"hard_limit_enforced"`
	CapacityPercent    float64        `json:"capacity_percent"`
	Status             CapacityStatus `json:"status"`
}

type CreateChainRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateLocationRequest struct {
	ChainID int    `json:"chain_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
}

type UpsertCapacityRequest struct {
	MaxActiveMembers   *int    `json:"max_active_members" validate:"omitempty,gte=1"`
	SoftLimitThreshold float64 `json:"soft_limit_threshold" validate:"gt=0,lte=1"`
	HardLimitEnforced  bool    `json:"hard_limit_enforced"`
}

// ComputeCapacityReport derives the admission status from an active count
// and a limit row. A nil limit (no row) behaves as unlimited.
func ComputeCapacityReport(activeCount int, limit *CapacityLimit) CapacityReport {
	report := CapacityReport{
		ActiveMembersCount: activeCount,
		SoftLimitThreshold: 0,
		Status:             StatusOK,
	}
	if limit == nil {
		return report
	}

	report.MaxActiveMembers = limit.MaxActiveMembers
	report.SoftLimitThreshold = limit.SoftLimitThreshold
	report.HardLimitEnforced = limit.HardLimitEnforced

	if limit.MaxActiveMembers == nil {
		return report
	}

	max := *limit.MaxActiveMembers
	if max > 0 {
		report.CapacityPercent = float64(activeCount) / float64(max) * 100
	}

	switch {
	case activeCount >= max && limit.HardLimitEnforced:
		report.Status = StatusBlockNew
	case activeCount >= max:
		report.Status = StatusAtCapacity
	case float64(activeCount) >= float64(max)*limit.SoftLimitThreshold:
		report.Status = StatusNearLimit
	}

	return report
}

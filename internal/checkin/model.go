package checkin

import "time"

// Source distinguishes gate-scanned tokens from front-desk overrides.
const (
	SourceQR     = "qr"
	SourceManual = "manual"
)

// Token is a short-lived, single-use entry credential. Issuing a new token
// consumes any live predecessor, so a member holds at most one usable
// token at a time.
type Token struct {
	ID         int        `db:"id" json:"id"`
	MemberID   int        `db:"member_id" json:"member_id"`
	Value      string     `db:"value" json:"value"`
	IssuedAt   time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Event is one recorded entry. RecordedBy is the staff user who validated
// the token or keyed the manual check-in.
type Event struct {
	ID         int       `db:"id" json:"id"`
	MemberID   int       `db:"member_id" json:"member_id"`
	MemberName string    `db:"member_name" json:"member_name"`
	LocationID int       `db:"location_id" json:"location_id"`
	Source     string    `db:"source" json:"source"`
	RecordedBy *int      `db:"recorded_by" json:"recorded_by,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// IssuedToken is the member-facing view of a fresh token.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TTLSecs   int       `json:"ttl_seconds"`
}

type ValidateTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	LocationID int    `json:"location_id" binding:"required"`
}

type ManualCheckinRequest struct {
	MemberID   int `json:"member_id" binding:"required"`
	LocationID int `json:"location_id" binding:"required"`
}

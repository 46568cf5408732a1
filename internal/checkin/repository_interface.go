package checkin

import (
	"context"
	"time"
)

type Repository interface {
	// IssueToken stores a fresh token and consumes the member's previous
	// live one in the same transaction.
	IssueToken(ctx context.Context, memberID int, value string, issuedAt, expiresAt time.Time) (*Token, error)

	// ConsumeToken validates and consumes a scanned token at a location,
	// re-deriving the member's access state inside the transaction, and
	// records the resulting check-in event.
	ConsumeToken(ctx context.Context, value string, locationID, staffUserID int, now time.Time) (*Event, error)

	// RecordManual records a front-desk check-in on the member's behalf.
	RecordManual(ctx context.Context, memberID, locationID, staffUserID int, now time.Time) (*Event, error)

	ListRecent(ctx context.Context, locationID int, day *time.Time, limit int) ([]Event, error)
}

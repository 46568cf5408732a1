package checkin

import (
	"context"
	"errors"
	"time"

	"gympass/internal/access"
	"gympass/internal/auth"
	"gympass/internal/logger"
	"gympass/internal/metrics"
	"gympass/internal/subscription"
)

var ErrNotStaffAtLocation = errors.New("caller is not staff at location")

// EventPublisher relays confirmed check-in events to the realtime fanout.
// Publishing is best effort; a failed relay never rolls back a check-in.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type Service interface {
	IssueToken(ctx context.Context, userID int) (*IssuedToken, error)
	Validate(ctx context.Context, callerUserID int, callerRole string, req ValidateTokenRequest) (*Event, error)
	Manual(ctx context.Context, callerUserID int, callerRole string, req ManualCheckinRequest) (*Event, error)
	ListRecent(ctx context.Context, callerUserID int, callerRole string, locationID int, day *time.Time) ([]Event, error)
}

type service struct {
	repo       Repository
	accessRepo access.Repository
	subRepo    subscription.Repository
	publisher  EventPublisher
	ttl        time.Duration
	now        func() time.Time
}

func NewService(repo Repository, accessRepo access.Repository, subRepo subscription.Repository, publisher EventPublisher, ttl time.Duration) Service {
	return &service{
		repo:       repo,
		accessRepo: accessRepo,
		subRepo:    subRepo,
		publisher:  publisher,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *service) IssueToken(ctx context.Context, userID int) (*IssuedToken, error) {
	memberID, err := s.accessRepo.MemberIDByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.GetCurrentByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !subscription.CanIssueCheckInToken(sub, now) {
		return nil, ErrAccessRestricted
	}

	value, err := NewTokenValue()
	if err != nil {
		return nil, err
	}

	token, err := s.repo.IssueToken(ctx, memberID, value, now, now.Add(s.ttl))
	if err != nil {
		return nil, err
	}

	metrics.RecordTokenIssued()
	return &IssuedToken{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		TTLSecs:   int(s.ttl / time.Second),
	}, nil
}

func (s *service) Validate(ctx context.Context, callerUserID int, callerRole string, req ValidateTokenRequest) (*Event, error) {
	if err := s.requireStaffAt(ctx, callerUserID, callerRole, req.LocationID); err != nil {
		return nil, err
	}

	event, err := s.repo.ConsumeToken(ctx, req.Token, req.LocationID, callerUserID, s.now())
	if err != nil {
		metrics.RecordTokenValidation(validationResult(err))
		return nil, err
	}

	metrics.RecordTokenValidation("ok")
	metrics.RecordCheckin(SourceQR)
	s.publish(ctx, *event)
	return event, nil
}

func (s *service) Manual(ctx context.Context, callerUserID int, callerRole string, req ManualCheckinRequest) (*Event, error) {
	if err := s.requireStaffAt(ctx, callerUserID, callerRole, req.LocationID); err != nil {
		return nil, err
	}

	event, err := s.repo.RecordManual(ctx, req.MemberID, req.LocationID, callerUserID, s.now())
	if err != nil {
		return nil, err
	}

	metrics.RecordCheckin(SourceManual)
	s.publish(ctx, *event)
	return event, nil
}

func (s *service) ListRecent(ctx context.Context, callerUserID int, callerRole string, locationID int, day *time.Time) ([]Event, error) {
	if err := s.requireStaffAt(ctx, callerUserID, callerRole, locationID); err != nil {
		return nil, err
	}

	return s.repo.ListRecent(ctx, locationID, day, 100)
}

func (s *service) requireStaffAt(ctx context.Context, userID int, role string, locationID int) error {
	if role == auth.RoleOwner {
		return nil
	}

	_, err := s.accessRepo.StaffRoleAt(ctx, userID, locationID)
	if errors.Is(err, access.ErrNotStaffAtLocation) {
		return ErrNotStaffAtLocation
	}
	return err
}

func (s *service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Errorf("Failed to publish check-in event %d: %v", event.ID, err)
	}
}

func validationResult(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrAccessRestricted):
		return "restricted"
	case errors.Is(err, ErrNoAccessAtLocation):
		return "no_access"
	default:
		return "error"
	}
}

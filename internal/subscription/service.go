package subscription

import (
	"context"
	"errors"
	"time"

	"gympass/internal/access"
	"gympass/internal/logger"
	"gympass/internal/metrics"
)

type Service interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	Create(ctx context.Context, userID int, req CreateSubscriptionRequest) (*Subscription, error)
	ListForUser(ctx context.Context, userID int) ([]SubscriptionView, error)
}

type service struct {
	repo       Repository
	accessRepo access.Repository
	now        func() time.Time
}

func NewService(repo Repository, accessRepo access.Repository) Service {
	return &service{
		repo:       repo,
		accessRepo: accessRepo,
		now:        time.Now,
	}
}

func (s *service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

func (s *service) Create(ctx context.Context, userID int, req CreateSubscriptionRequest) (*Subscription, error) {
	memberID, err := s.accessRepo.MemberIDByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlanByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.CreateWithAdmission(ctx, memberID, plan.ID, req.LocationID)
	if errors.Is(err, ErrCapacityBlocked) {
		metrics.RecordCapacityBlocked()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordSubscription(plan.Code)
	return sub, nil
}

// ListForUser returns the member's subscriptions with the access state
// derived at serve time. Serving a recovered marker consumes it, so the
// client shows the "payment received" confirmation exactly once.
func (s *service) ListForUser(ctx context.Context, userID int) ([]SubscriptionView, error) {
	memberID, err := s.accessRepo.MemberIDByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	subs, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]SubscriptionView, 0, len(subs))
	for i := range subs {
		sub := subs[i]
		state, recovered := DeriveAccessState(&sub, now)

		// The clearing update is the arbiter: only the reader that
		// consumes the marker serves it, so a concurrent read cannot
		// show the confirmation twice.
		if recovered {
			cleared, err := s.repo.ClearRecovered(ctx, sub.ID)
			if err != nil {
				logger.Errorf("Failed to clear recovered marker on subscription %d: %v", sub.ID, err)
			}
			recovered = err == nil && cleared
		}

		views = append(views, SubscriptionView{
			Subscription: sub,
			AccessState:  state,
			Recovered:    recovered,
		})
	}

	return views, nil
}

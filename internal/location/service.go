package location

import "context"

type Service interface {
	GetCapacityStatus(ctx context.Context, locationID int) (*CapacityReport, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// GetCapacityStatus is a read-only snapshot. The subscription write path
// re-runs the count under a lock; callers must not treat this value as a
// reservation.
func (s *service) GetCapacityStatus(ctx context.Context, locationID int) (*CapacityReport, error) {
	if _, err := s.repo.GetLocationByID(ctx, locationID); err != nil {
		return nil, err
	}

	limit, err := s.repo.GetCapacityLimit(ctx, locationID)
	if err != nil {
		return nil, err
	}

	activeCount, err := s.repo.CountActiveMembers(ctx, locationID)
	if err != nil {
		return nil, err
	}

	report := ComputeCapacityReport(activeCount, limit)
	return &report, nil
}

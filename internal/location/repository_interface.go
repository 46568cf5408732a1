package location

import "context"

type Repository interface {
	CreateChain(ctx context.Context, name string) (*Chain, error)
	CreateLocation(ctx context.Context, chainID int, name, address string) (*Location, error)
	GetLocationByID(ctx context.Context, id int) (*Location, error)
	ListActiveByChain(ctx context.Context, chainID int) ([]Location, error)
	DeactivateLocation(ctx context.Context, id int) error
	GetCapacityLimit(ctx context.Context, locationID int) (*CapacityLimit, error)
	UpsertCapacityLimit(ctx context.Context, locationID int, maxActive *int, softThreshold float64, hardEnforced bool) (*CapacityLimit, error)
	CountActiveMembers(ctx context.Context, locationID int) (int, error)
}

package access

import (
	"context"
	"errors"
)

// Resolver computes the effective accessible-location set for an identity.
// Staff assignments take total precedence: a staff account's set is exactly
// its assigned active locations and is never widened by member-side grants.
type Resolver interface {
	Resolve(ctx context.Context, userID int, persistedLocationID *int) (*Resolution, error)
}

type resolver struct {
	repo Repository
}

func NewResolver(repo Repository) Resolver {
	return &resolver{repo: repo}
}

func (r *resolver) Resolve(ctx context.Context, userID int, persistedLocationID *int) (*Resolution, error) {
	staffLocations, err := r.repo.ListActiveStaffLocations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(staffLocations) > 0 {
		return buildResolution(staffLocations, persistedLocationID, nil), nil
	}

	memberID, err := r.repo.MemberIDByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return buildResolution(nil, nil, nil), nil
		}
		return nil, err
	}

	grants, err := r.repo.ListActiveGrants(ctx, memberID)
	if err != nil {
		return nil, err
	}

	var locations []LocationSummary
	if hasAllAccess(grants) {
		chainID, err := r.repo.MemberChainID(ctx, memberID)
		if err != nil {
			return nil, err
		}
		// Expanded at query time: locations added to the chain after the
		// grant was created are included.
		locations, err = r.repo.ListActiveChainLocations(ctx, chainID)
		if err != nil {
			return nil, err
		}
	} else {
		locations, err = r.repo.ListGrantedLocations(ctx, memberID)
		if err != nil {
			return nil, err
		}
	}

	homeID, err := r.repo.HomeLocationID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	return buildResolution(locations, persistedLocationID, homeID), nil
}

func hasAllAccess(grants []Grant) bool {
	for _, g := range grants {
		if g.AccessType == TypeAllAccess {
			return true
		}
	}
	return false
}

// buildResolution picks the active location with the fallback chain
// persisted choice -> home grant -> first accessible -> none. The persisted
// id is a client-side hint only; it is honored solely when still accessible.
func buildResolution(locations []LocationSummary, persistedID, homeID *int) *Resolution {
	res := &Resolution{
		Locations:       locations,
		IsMultiLocation: len(locations) > 1,
		NoAccess:        len(locations) == 0,
	}
	if res.Locations == nil {
		res.Locations = []LocationSummary{}
	}

	if len(locations) == 0 {
		return res
	}

	if persistedID != nil && containsLocation(locations, *persistedID) {
		res.ActiveLocationID = persistedID
		return res
	}
	if homeID != nil && containsLocation(locations, *homeID) {
		res.ActiveLocationID = homeID
		return res
	}
	first := locations[0].ID
	res.ActiveLocationID = &first
	return res
}

func containsLocation(locations []LocationSummary, id int) bool {
	for _, l := range locations {
		if l.ID == id {
			return true
		}
	}
	return false
}

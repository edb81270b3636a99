package service

import (
	"math/rand/v2"
	"sort"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
)

// Selection is the outcome of the assignment policy.
type Selection struct {
	DriverID        int64
	DistanceKm      *float64 // nil when either position is unknown
	Type            domain.AssignmentType
	Ranked          []domain.RankedCandidate // by distance, at most MaxRankedCandidates
	TotalCandidates int
}

// AssignmentPolicy picks the driver for a ride from its interests.
// It performs no I/O.
type AssignmentPolicy struct {
	intn func(n int) int
}

// NewAssignmentPolicy creates a policy drawing random picks from intn,
// which must return a uniform value in [0, n). A nil intn uses math/rand/v2.
func NewAssignmentPolicy(intn func(n int) int) *AssignmentPolicy {
	if intn == nil {
		intn = rand.IntN
	}
	return &AssignmentPolicy{intn: intn}
}

// SelectDriver ranks the candidates by distance to the pickup and picks the
// nearest for immediate rides or a uniform random one for scheduled rides.
func (p *AssignmentPolicy) SelectDriver(ride *domain.Ride, interests []*domain.Interest) (*Selection, error) {
	if len(interests) == 0 {
		return nil, ErrNoCandidates
	}

	ranked := rankCandidates(ride, interests)

	var winner domain.RankedCandidate
	var kind domain.AssignmentType
	if ride.IsImmediate {
		winner = ranked[0]
		kind = domain.AssignmentTypeProximity
	} else {
		winner = ranked[p.intn(len(ranked))]
		kind = domain.AssignmentTypeRandom
	}

	top := ranked
	if len(top) > domain.MaxRankedCandidates {
		top = top[:domain.MaxRankedCandidates]
	}

	return &Selection{
		DriverID:        winner.DriverID,
		DistanceKm:      winner.DistanceKm,
		Type:            kind,
		Ranked:          top,
		TotalCandidates: len(interests),
	}, nil
}

// rankCandidates orders candidates by ascending distance. Unknown distances
// go last; ties fall back to earliest interest, then lowest driver id.
func rankCandidates(ride *domain.Ride, interests []*domain.Interest) []domain.RankedCandidate {
	ranked := make([]domain.RankedCandidate, 0, len(interests))
	for _, in := range interests {
		c := domain.RankedCandidate{
			DriverID:            in.DriverID,
			Name:                in.DriverName,
			Phone:               in.DriverPhone,
			InterestExpressedAt: in.ExpressedAt,
		}
		if ride.Pickup != nil && in.Location != nil {
			km := geo.DistanceKm(ride.Pickup.Lat, ride.Pickup.Lng, in.Location.Lat, in.Location.Lng)
			minutes := geo.EstimatedMinutes(km)
			c.DistanceKm = &km
			c.EstimatedMinutes = &minutes
		}
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.DistanceKm != nil && b.DistanceKm == nil:
			return true
		case a.DistanceKm == nil && b.DistanceKm != nil:
			return false
		case a.DistanceKm != nil && *a.DistanceKm != *b.DistanceKm:
			return *a.DistanceKm < *b.DistanceKm
		case !a.InterestExpressedAt.Equal(b.InterestExpressedAt):
			return a.InterestExpressedAt.Before(b.InterestExpressedAt)
		default:
			return a.DriverID < b.DriverID
		}
	})
	return ranked
}

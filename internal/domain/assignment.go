package domain

import "time"

// AssignmentType names the criterion used to pick the driver.
type AssignmentType string

const (
	AssignmentTypeProximity AssignmentType = "proximity"
	AssignmentTypeRandom    AssignmentType = "random"
)

// MaxRankedCandidates is how many ranked candidates an audit record keeps.
const MaxRankedCandidates = 5

// RankedCandidate is one entry of the candidate ranking, ordered by distance.
type RankedCandidate struct {
	DriverID            int64     `json:"driver_id"`
	DistanceKm          *float64  `json:"distance_km"`
	EstimatedMinutes    *int      `json:"estimated_minutes"`
	Name                string    `json:"name,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	InterestExpressedAt time.Time `json:"interest_expressed_at"`
}

// AssignmentRecord is the immutable audit trail of an assignment decision.
type AssignmentRecord struct {
	RideID              int64
	AssignedDriverID    int64
	AssignmentType      AssignmentType
	DriverDistanceKm    *float64
	RankedCandidates    []RankedCandidate
	TotalCandidateCount int
	DecidedAt           time.Time
}

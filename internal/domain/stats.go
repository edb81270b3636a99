package domain

import "time"

// AssignmentTypeStats aggregates audit records of one assignment type.
type AssignmentTypeStats struct {
	Type                AssignmentType `json:"type"`
	Count               int            `json:"count"`
	AvgCandidateCount   float64        `json:"avg_candidate_count"`
	AvgDriverDistanceKm *float64       `json:"avg_driver_distance_km"`
}

// ZoneCount is the number of rides picked up inside one geohash cell.
type ZoneCount struct {
	Zone  string `json:"zone"`
	Rides int    `json:"rides"`
}

// Stats is a snapshot of dispatch activity since a point in time.
type Stats struct {
	Since         time.Time             `json:"since"`
	TotalRides    int                   `json:"total_rides"`
	RidesByStatus map[RideStatus]int    `json:"rides_by_status"`
	Assignments   []AssignmentTypeStats `json:"assignments"`
	TopZones      []ZoneCount           `json:"top_zones"`
}

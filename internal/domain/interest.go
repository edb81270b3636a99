package domain

import "time"

// Interest is a driver's non-binding candidacy for a pending ride.
// There is at most one per (RideID, DriverID).
type Interest struct {
	RideID      int64
	DriverID    int64
	Location    *Coordinates // driver position when interest was expressed
	ExpressedAt time.Time

	// Filled from the driver profile lookup when available.
	DriverName  string
	DriverPhone string
}

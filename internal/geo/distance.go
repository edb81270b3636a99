// Package geo provides great-circle distance and zone helpers.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// AverageSpeedKmh is the assumed urban driving speed for time estimates.
	AverageSpeedKmh = 40.0

	// ZonePrecision is the geohash length of a stats zone (~5km cell).
	ZonePrecision = 5
)

// DistanceKm returns the haversine distance in kilometers between two points
// given in decimal degrees.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// EstimatedMinutes converts a distance to whole minutes at AverageSpeedKmh.
func EstimatedMinutes(km float64) int {
	return int(math.Round(km / AverageSpeedKmh * 60))
}

// Zone returns the geohash cell containing the point.
func Zone(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, ZonePrecision)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

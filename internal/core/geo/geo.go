// Package geo provides pure distance, duration and speed calculations
// used by the aggregation engine. All functions are stateless.
package geo

import (
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// coordinate pairs. Identical points yield 0; the result is symmetric.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ElapsedMinutes returns the absolute elapsed time between two instants
// in minutes. Argument order does not matter; the result is never negative.
func ElapsedMinutes(t1, t2 time.Time) float64 {
	d := t2.Sub(t1)
	if d < 0 {
		d = -d
	}
	return d.Minutes()
}

// SpeedKmh derives speed in km/h from a distance and an elapsed duration.
// Returns 0 when elapsedMinutes is 0 to guard against division by zero.
func SpeedKmh(distanceKm, elapsedMinutes float64) float64 {
	if elapsedMinutes == 0 {
		return 0
	}
	return distanceKm / (elapsedMinutes / 60)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

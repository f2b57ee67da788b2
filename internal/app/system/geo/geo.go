// Package geo provides the pure distance math used by the geofence
// evaluator. Nothing here touches the database or the network.
package geo

import "math"

// EarthRadiusMeters is the mean earth radius used for great-circle distance.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two WGS84
// coordinates using the Haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

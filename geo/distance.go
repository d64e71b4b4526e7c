package geo

import "math"

// Reference point for distance filtering: the UMN Minneapolis campus center.
const (
	CampusLat = 44.9731
	CampusLon = -93.2359

	// SearchRadiusKm is the cutoff for the filtered output.
	SearchRadiusKm = 10.0

	earthRadiusKm = 6371
)

// Coordinate is a resolved latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// DistanceKm returns the great-circle distance in kilometers between two
// points, computed with the haversine formula on a spherical-earth model.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lon1r := lon1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	lon2r := lon2 * math.Pi / 180

	dlat := lat2r - lat1r
	dlon := lon2r - lon1r

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// DistToCampusKm returns the distance from the given point to the campus
// reference point.
func DistToCampusKm(lat, lon float64) float64 {
	return DistanceKm(lat, lon, CampusLat, CampusLon)
}

// WithinRadius reports whether a point is inside the campus search radius.
func WithinRadius(lat, lon float64) bool {
	return DistToCampusKm(lat, lon) <= SearchRadiusKm
}

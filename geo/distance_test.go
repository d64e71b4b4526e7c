package geo

import (
	"math"
	"testing"
)

func TestDistanceKmKnownPoints(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", CampusLat, CampusLon, CampusLat, CampusLon, 0, 0.001},
		{"campus to downtown mpls", CampusLat, CampusLon, 44.9778, -93.2650, 2.35, 0.2},
		{"campus to msp airport", CampusLat, CampusLon, 44.8848, -93.2223, 9.9, 0.3},
	}

	for _, tt := range tests {
		got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
		if math.Abs(got-tt.want) > tt.tolerance {
			t.Errorf("%s: DistanceKm = %.3f; want %.3f ± %.3f", tt.name, got, tt.want, tt.tolerance)
		}
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := DistanceKm(44.97, -93.23, 45.00, -93.30)
	b := DistanceKm(45.00, -93.30, 44.97, -93.23)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %.9f vs %.9f", a, b)
	}
}

func TestWithinRadius(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"campus itself", CampusLat, CampusLon, true},
		{"dinkytown", 44.9800, -93.2360, true},
		{"northeast mpls ~3km", 45.0000, -93.2500, true},
		{"brooklyn center ~14km", 45.0761, -93.3325, false},
	}

	for _, tt := range tests {
		if got := WithinRadius(tt.lat, tt.lon); got != tt.want {
			t.Errorf("%s: WithinRadius(%.4f, %.4f) = %v; want %v",
				tt.name, tt.lat, tt.lon, got, tt.want)
		}
	}
}

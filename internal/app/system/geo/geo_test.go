package geo_test

import (
	"math"
	"testing"

	"github.com/caresphere/caresphere/internal/app/system/geo"
)

func TestDistance_KnownPairs(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantMeters             float64
		tolerance              float64
	}{
		// Reference distances computed with R = 6371 km.
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 343_556, 1_000},
		{"new york to los angeles", 40.7128, -74.0060, 34.0522, -118.2437, 3_935_746, 10_000},
		{"same point", 37.7749, -122.4194, 37.7749, -122.4194, 0, 0.001},
		{"across equator", -0.5, 10, 0.5, 10, 111_195, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := geo.Distance(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.wantMeters) > tc.tolerance {
				t.Errorf("Distance: got %.0f m, want %.0f m (±%.0f)", got, tc.wantMeters, tc.tolerance)
			}
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	d1 := geo.Distance(48.8566, 2.3522, 51.5074, -0.1278)
	d2 := geo.Distance(51.5074, -0.1278, 48.8566, 2.3522)
	if math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %.9f vs %.9f", d1, d2)
	}
}

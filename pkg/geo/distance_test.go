package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/pkg/geo"
)

func TestDistanceMiles_Symmetry(t *testing.T) {
	pairs := [][4]float64{
		{37.7749, -122.4194, 34.0522, -118.2437},
		{40.7128, -74.0060, 41.8781, -87.6298},
		{38.8977, -77.0365, 29.7604, -95.3698},
	}
	for _, p := range pairs {
		ab := geo.DistanceMiles(p[0], p[1], p[2], p[3])
		ba := geo.DistanceMiles(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistanceMiles_SamePointIsZero(t *testing.T) {
	assert.Zero(t, geo.DistanceMiles(37.7749, -122.4194, 37.7749, -122.4194))
}

func TestDistanceMiles_KnownDistance(t *testing.T) {
	// San Francisco to Los Angeles is roughly 347 miles great-circle.
	d := geo.DistanceMiles(37.7749, -122.4194, 34.0522, -118.2437)
	assert.InDelta(t, 347, d, 5)
}

func TestWithinRadius_FiltersAndSorts(t *testing.T) {
	center := entities.Coordinates{Latitude: 37.7749, Longitude: -122.4194}
	candidates := []geo.Candidate{
		{ID: "far", Name: "Far Camp", StateCode: "NV", Latitude: 39.5296, Longitude: -119.8138},
		{ID: "near", Name: "Near Camp", StateCode: "CA", Latitude: 37.8044, Longitude: -122.2712},
		{ID: "mid", Name: "Mid Camp", StateCode: "CA", Latitude: 38.5816, Longitude: -121.4944},
	}

	records := geo.WithinRadius(candidates, center, 100)

	assert.Len(t, records, 2)
	assert.Equal(t, "near", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
	for _, r := range records {
		assert.LessOrEqual(t, r.DistanceMiles, 100.0)
	}
}

func TestWithinRadius_StableForExactTies(t *testing.T) {
	center := entities.Coordinates{Latitude: 0, Longitude: 0}
	candidates := []geo.Candidate{
		{ID: "a", Latitude: 1, Longitude: 0},
		{ID: "b", Latitude: 1, Longitude: 0},
		{ID: "c", Latitude: 1, Longitude: 0},
	}

	records := geo.WithinRadius(candidates, center, 100)

	assert.Equal(t, []string{"a", "b", "c"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

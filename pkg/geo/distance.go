package geo

import (
	"math"
	"sort"

	"github.com/tjg323/recdotgov/internal/domain/entities"
)

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3956.0

// DistanceMiles returns the great-circle distance in miles between two points,
// computed with the haversine formula on a spherical Earth. Out-of-range
// coordinates are not validated; that is the caller's responsibility.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Asin(math.Sqrt(a))
	return earthRadiusMiles * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Candidate pairs a facility-table position with the identity columns that
// survive into the candidate list.
type Candidate struct {
	ID        string
	Name      string
	StateCode string
	Latitude  float64
	Longitude float64
}

// WithinRadius computes each candidate's distance from the center and returns
// those within maxMiles as facility records, sorted ascending by distance.
// The sort is stable, so exact distance ties keep their input order.
func WithinRadius(candidates []Candidate, center entities.Coordinates, maxMiles float64) []entities.FacilityRecord {
	records := make([]entities.FacilityRecord, 0, len(candidates))
	for _, c := range candidates {
		d := DistanceMiles(center.Latitude, center.Longitude, c.Latitude, c.Longitude)
		if d > maxMiles {
			continue
		}
		records = append(records, entities.FacilityRecord{
			ID:            c.ID,
			Name:          c.Name,
			StateCode:     c.StateCode,
			DistanceMiles: d,
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DistanceMiles < records[j].DistanceMiles
	})
	return records
}

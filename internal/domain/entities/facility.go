package entities

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FacilityRecord is one row of a candidate list: a reservable campground
// together with its computed distance from the search center.
type FacilityRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StateCode     string  `json:"state_code"`
	DistanceMiles float64 `json:"distance_miles"`
}

// CandidateList holds the facilities eligible for availability fetching,
// sorted ascending by distance, plus the parameters that generated it.
type CandidateList struct {
	Location    string           `json:"location"`
	MaxDistance float64          `json:"max_distance"`
	Records     []FacilityRecord `json:"records"`
}

// IDs returns the facility ids in list order.
func (c *CandidateList) IDs() []string {
	ids := make([]string, 0, len(c.Records))
	for _, r := range c.Records {
		ids = append(ids, r.ID)
	}
	return ids
}

// FacilityRow is a row of the bulk dataset's facility table, before filtering.
// Latitude and Longitude are nil when the source row has no coordinates.
type FacilityRow struct {
	ID         string
	Name       string
	TypeDesc   string
	Reservable string
	Latitude   *float64
	Longitude  *float64
}

// AddressRow is a row of the bulk dataset's address table.
type AddressRow struct {
	FacilityID string
	StateCode  string
}

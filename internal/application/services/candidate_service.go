package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
	"github.com/tjg323/recdotgov/pkg/geo"
)

const campgroundType = "Campground"

// denylistTerms mark boating and marine facilities that the upstream dataset
// misclassifies as campgrounds.
var denylistTerms = []string{"boat", "sailing", "aquatic", "anchor", "marina", "pier", "dock", "vessel"}

// CandidateService builds the distance-bounded candidate list from the bulk
// dataset, resolving the search center through the configured geocoder.
type CandidateService struct {
	dataset         providers.DatasetProvider
	geocoder        providers.GeocodingProvider
	defaultLocation string
	defaultCenter   entities.Coordinates
	listPath        string
	logger          zerolog.Logger
}

// NewCandidateService creates a candidate list builder that persists its
// artifact at listPath.
func NewCandidateService(
	dataset providers.DatasetProvider,
	geocoder providers.GeocodingProvider,
	defaultLocation string,
	defaultCenter entities.Coordinates,
	listPath string,
	logger zerolog.Logger,
) *CandidateService {
	return &CandidateService{
		dataset:         dataset,
		geocoder:        geocoder,
		defaultLocation: defaultLocation,
		defaultCenter:   defaultCenter,
		listPath:        listPath,
		logger:          logger,
	}
}

// Build produces and persists the candidate list for the given parameters.
// An empty location means the default search center. Re-running always
// overwrites the artifact; freshness gating is the caller's concern.
func (s *CandidateService) Build(ctx context.Context, location string, maxDistance float64) (*entities.CandidateList, error) {
	facilities, addresses, err := s.dataset.Tables(ctx)
	if err != nil {
		return nil, err
	}

	center, locationName, err := s.resolveCenter(ctx, location)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("location", locationName).
		Float64("latitude", center.Latitude).
		Float64("longitude", center.Longitude).
		Float64("max_distance", maxDistance).
		Msg("building candidate list")

	statesByID := addressIndex(addresses)
	candidates := make([]geo.Candidate, 0, len(facilities))
	for _, row := range facilities {
		if !isReservableCampground(row) || isDenylisted(row.Name) {
			continue
		}
		// Inner join: facilities without an address row are dropped.
		states, ok := statesByID[row.ID]
		if !ok {
			continue
		}
		for _, st := range states {
			candidates = append(candidates, geo.Candidate{
				ID:        row.ID,
				Name:      row.Name,
				StateCode: st,
				Latitude:  *row.Latitude,
				Longitude: *row.Longitude,
			})
		}
	}

	records := dedupe(geo.WithinRadius(candidates, center, maxDistance))

	list := &entities.CandidateList{
		Location:    locationName,
		MaxDistance: maxDistance,
		Records:     records,
	}
	if err := s.persist(list); err != nil {
		return nil, err
	}
	s.logBuildSummary(list)
	return list, nil
}

func (s *CandidateService) resolveCenter(ctx context.Context, location string) (entities.Coordinates, string, error) {
	if strings.TrimSpace(location) == "" {
		return s.defaultCenter, s.defaultLocation, nil
	}
	coords, err := s.geocoder.Resolve(ctx, location)
	if err != nil {
		return entities.Coordinates{}, "", err
	}
	s.logger.Info().
		Str("location", location).
		Float64("latitude", coords.Latitude).
		Float64("longitude", coords.Longitude).
		Msg("geocoded search center")
	return coords, location, nil
}

func (s *CandidateService) persist(list *entities.CandidateList) error {
	return writeFileAtomic(s.listPath, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"id", "name", "stateCode", "distanceMiles"}); err != nil {
			return err
		}
		for _, r := range list.Records {
			row := []string{r.ID, r.Name, r.StateCode, strconv.FormatFloat(r.DistanceMiles, 'f', -1, 64)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *CandidateService) logBuildSummary(list *entities.CandidateList) {
	event := s.logger.Info().Str("path", s.listPath).Int("rows", len(list.Records))
	if len(list.Records) > 0 {
		states := map[string]bool{}
		for _, r := range list.Records {
			if r.StateCode != "" {
				states[r.StateCode] = true
			}
		}
		sorted := make([]string, 0, len(states))
		for st := range states {
			sorted = append(sorted, st)
		}
		sort.Strings(sorted)
		event = event.
			Strs("states", sorted).
			Float64("min_distance", list.Records[0].DistanceMiles).
			Float64("max_distance", list.Records[len(list.Records)-1].DistanceMiles)
	}
	event.Msg("candidate list written")
}

// LoadCandidateIDs reads the facility ids back from a candidate list
// artifact, preserving its order.
func LoadCandidateIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate list %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read candidate list header: %w", err)
	}

	var ids []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate list %s: %w", path, err)
		}
		if len(record) > 0 && record[0] != "" {
			ids = append(ids, record[0])
		}
	}
	return ids, nil
}

func isReservableCampground(row entities.FacilityRow) bool {
	return row.TypeDesc == campgroundType &&
		strings.EqualFold(row.Reservable, "true") &&
		row.Latitude != nil &&
		row.Longitude != nil
}

func isDenylisted(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range denylistTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func addressIndex(addresses []entities.AddressRow) map[string][]string {
	index := make(map[string][]string, len(addresses))
	for _, a := range addresses {
		index[a.FacilityID] = append(index[a.FacilityID], a.StateCode)
	}
	return index
}

func dedupe(records []entities.FacilityRecord) []entities.FacilityRecord {
	seen := make(map[entities.FacilityRecord]bool, len(records))
	out := records[:0]
	for _, r := range records {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

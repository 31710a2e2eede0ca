package services_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tjg323/recdotgov/internal/adapters/geocoding"
	"github.com/tjg323/recdotgov/internal/application/services"
	"github.com/tjg323/recdotgov/internal/domain/entities"
)

type fakeDataset struct {
	facilities []entities.FacilityRow
	addresses  []entities.AddressRow
	err        error
}

func (f *fakeDataset) Tables(ctx context.Context) ([]entities.FacilityRow, []entities.AddressRow, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.facilities, f.addresses, nil
}

func coord(v float64) *float64 { return &v }

// Center pinned to San Francisco for all builder tests.
var sfCenter = entities.Coordinates{Latitude: 37.7749, Longitude: -122.4194}

func newBuilder(t *testing.T, ds *fakeDataset) (*services.CandidateService, string) {
	t.Helper()
	listPath := filepath.Join(t.TempDir(), "download.csv")
	geocoder := geocoding.NewFixedProvider(38.9399, -119.9772)
	svc := services.NewCandidateService(ds, geocoder, "San Francisco", sfCenter, listPath, zerolog.Nop())
	return svc, listPath
}

func TestBuild_FiltersJoinsAndSorts(t *testing.T) {
	ds := &fakeDataset{
		facilities: []entities.FacilityRow{
			{ID: "1", Name: "Far Campground", TypeDesc: "Campground", Reservable: "TRUE", Latitude: coord(38.5816), Longitude: coord(-121.4944)},
			{ID: "2", Name: "Near Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8044), Longitude: coord(-122.2712)},
			{ID: "3", Name: "Day Use Area", TypeDesc: "Day Use", Reservable: "true", Latitude: coord(37.8), Longitude: coord(-122.3)},
			{ID: "4", Name: "Unreservable Campground", TypeDesc: "Campground", Reservable: "false", Latitude: coord(37.8), Longitude: coord(-122.3)},
			{ID: "5", Name: "No Coords Campground", TypeDesc: "Campground", Reservable: "true"},
			{ID: "6", Name: "Orphan Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8), Longitude: coord(-122.3)},
		},
		addresses: []entities.AddressRow{
			{FacilityID: "1", StateCode: "CA"},
			{FacilityID: "2", StateCode: "CA"},
			{FacilityID: "3", StateCode: "CA"},
			{FacilityID: "4", StateCode: "CA"},
			{FacilityID: "5", StateCode: "CA"},
			// id 6 has no address row on purpose
		},
	}
	svc, _ := newBuilder(t, ds)

	list, err := svc.Build(context.Background(), "", 150)
	require.NoError(t, err)

	require.Len(t, list.Records, 2)
	assert.Equal(t, "2", list.Records[0].ID)
	assert.Equal(t, "1", list.Records[1].ID)
	for i, r := range list.Records {
		assert.LessOrEqual(t, r.DistanceMiles, 150.0)
		if i > 0 {
			assert.GreaterOrEqual(t, r.DistanceMiles, list.Records[i-1].DistanceMiles)
		}
	}
}

func TestBuild_ExcludesDenylistedNames(t *testing.T) {
	ds := &fakeDataset{
		facilities: []entities.FacilityRow{
			{ID: "1", Name: "Lakeshore Marina Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8), Longitude: coord(-122.3)},
			{ID: "2", Name: "Boat Launch Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8), Longitude: coord(-122.3)},
			{ID: "3", Name: "Pine Flat Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8), Longitude: coord(-122.3)},
		},
		addresses: []entities.AddressRow{
			{FacilityID: "1", StateCode: "CA"},
			{FacilityID: "2", StateCode: "CA"},
			{FacilityID: "3", StateCode: "CA"},
		},
	}
	svc, _ := newBuilder(t, ds)

	list, err := svc.Build(context.Background(), "", 150)
	require.NoError(t, err)

	require.Len(t, list.Records, 1)
	assert.Equal(t, "3", list.Records[0].ID)
}

func TestBuild_EmptyResultIsValidAndPersisted(t *testing.T) {
	ds := &fakeDataset{}
	svc, listPath := newBuilder(t, ds)

	list, err := svc.Build(context.Background(), "", 150)
	require.NoError(t, err)
	assert.Empty(t, list.Records)

	f, err := os.Open(listPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"id", "name", "stateCode", "distanceMiles"}, rows[0])
}

func TestBuild_UsesGeocoderWhenLocationGiven(t *testing.T) {
	// One campground near Tahoe, one near San Francisco; geocoder is pinned
	// to Tahoe, so only the Tahoe campground is within 50 miles.
	ds := &fakeDataset{
		facilities: []entities.FacilityRow{
			{ID: "sf", Name: "Bay Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8044), Longitude: coord(-122.2712)},
			{ID: "tahoe", Name: "Fallen Leaf Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(38.9), Longitude: coord(-120.0)},
		},
		addresses: []entities.AddressRow{
			{FacilityID: "sf", StateCode: "CA"},
			{FacilityID: "tahoe", StateCode: "CA"},
		},
	}
	svc, _ := newBuilder(t, ds)

	list, err := svc.Build(context.Background(), "South Lake Tahoe", 50)
	require.NoError(t, err)

	require.Len(t, list.Records, 1)
	assert.Equal(t, "tahoe", list.Records[0].ID)
	assert.Equal(t, "South Lake Tahoe", list.Location)
}

func TestBuild_DatasetErrorIsFatal(t *testing.T) {
	ds := &fakeDataset{err: os.ErrNotExist}
	svc, _ := newBuilder(t, ds)

	_, err := svc.Build(context.Background(), "", 150)
	assert.Error(t, err)
}

func TestBuild_DeduplicatesIdenticalRows(t *testing.T) {
	ds := &fakeDataset{
		facilities: []entities.FacilityRow{
			{ID: "1", Name: "Pine Flat Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8), Longitude: coord(-122.3)},
		},
		addresses: []entities.AddressRow{
			{FacilityID: "1", StateCode: "CA"},
			{FacilityID: "1", StateCode: "CA"},
		},
	}
	svc, _ := newBuilder(t, ds)

	list, err := svc.Build(context.Background(), "", 150)
	require.NoError(t, err)
	assert.Len(t, list.Records, 1)
}

func TestLoadCandidateIDs_PreservesOrder(t *testing.T) {
	ds := &fakeDataset{
		facilities: []entities.FacilityRow{
			{ID: "far", Name: "Far Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(38.5816), Longitude: coord(-121.4944)},
			{ID: "near", Name: "Near Campground", TypeDesc: "Campground", Reservable: "true", Latitude: coord(37.8044), Longitude: coord(-122.2712)},
		},
		addresses: []entities.AddressRow{
			{FacilityID: "far", StateCode: "CA"},
			{FacilityID: "near", StateCode: "CA"},
		},
	}
	svc, listPath := newBuilder(t, ds)
	_, err := svc.Build(context.Background(), "", 150)
	require.NoError(t, err)

	ids, err := services.LoadCandidateIDs(listPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far"}, ids)
}

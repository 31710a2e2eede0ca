package dataset_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tjg323/recdotgov/internal/adapters/dataset"
)

func buildArchive(t *testing.T, facilities, addresses string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create("Facilities_API_v1.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(facilities))
	require.NoError(t, err)

	aw, err := zw.Create("FacilityAddresses_API_v1.csv")
	require.NoError(t, err)
	_, err = aw.Write([]byte(addresses))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const facilityCSV = "FacilityID,FacilityName,FacilityTypeDescription,Reservable,FacilityLatitude,FacilityLongitude\n" +
	"100,Pine Flat,Campground,true,37.0,-120.0\n" +
	"101,No Coords,Campground,true,,\n"

const addressCSV = "FacilityID,AddressStateCode\n100,CA\n"

func TestTables_ParsesArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "export.zip")
	require.NoError(t, os.WriteFile(archive, buildArchive(t, facilityCSV, addressCSV), 0o644))

	source := dataset.NewRIDBSource("http://unused", archive, zerolog.Nop())
	facilities, addresses, err := source.Tables(context.Background())
	require.NoError(t, err)

	require.Len(t, facilities, 2)
	assert.Equal(t, "100", facilities[0].ID)
	assert.Equal(t, "Pine Flat", facilities[0].Name)
	require.NotNil(t, facilities[0].Latitude)
	assert.InDelta(t, 37.0, *facilities[0].Latitude, 1e-9)
	assert.Nil(t, facilities[1].Latitude)

	require.Len(t, addresses, 1)
	assert.Equal(t, "CA", addresses[0].StateCode)
}

func TestTables_DownloadsWhenArchiveAbsent(t *testing.T) {
	payload := buildArchive(t, facilityCSV, addressCSV)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	archive := filepath.Join(t.TempDir(), "export.zip")
	source := dataset.NewRIDBSource(server.URL, archive, zerolog.Nop())

	facilities, _, err := source.Tables(context.Background())
	require.NoError(t, err)
	assert.Len(t, facilities, 2)

	// Archive is kept for reuse.
	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestTables_MissingTableIsFatal(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("Facilities_API_v1.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(facilityCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	archive := filepath.Join(t.TempDir(), "export.zip")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))

	source := dataset.NewRIDBSource("http://unused", archive, zerolog.Nop())
	_, _, err = source.Tables(context.Background())
	assert.Error(t, err)
}

func TestTables_CorruptArchiveIsFatal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "export.zip")
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0o644))

	source := dataset.NewRIDBSource("http://unused", archive, zerolog.Nop())
	_, _, err := source.Tables(context.Background())
	assert.Error(t, err)
}

package dataset

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
	"github.com/tjg323/recdotgov/pkg/retry"
)

const (
	facilityCSVName = "Facilities_API_v1.csv"
	addressCSVName  = "FacilityAddresses_API_v1.csv"
)

// RIDBSource implements DatasetProvider on top of the RIDB full-export ZIP.
// The archive is downloaded once and reused on later runs.
type RIDBSource struct {
	url         string
	archivePath string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewRIDBSource creates a dataset source for the given export URL, keeping
// the downloaded archive at archivePath.
func NewRIDBSource(url, archivePath string, logger zerolog.Logger) providers.DatasetProvider {
	return &RIDBSource{
		url:         url,
		archivePath: archivePath,
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		logger:      logger,
	}
}

// Tables downloads the archive if needed and parses the facility and address
// tables out of it.
func (s *RIDBSource) Tables(ctx context.Context) ([]entities.FacilityRow, []entities.AddressRow, error) {
	if err := s.ensureArchive(ctx); err != nil {
		return nil, nil, err
	}

	rz, err := zip.OpenReader(s.archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset archive %s: %w", s.archivePath, err)
	}
	defer rz.Close()

	var facilities []entities.FacilityRow
	var addresses []entities.AddressRow
	for _, f := range rz.File {
		switch f.Name {
		case facilityCSVName:
			facilities, err = readFacilityTable(f)
		case addressCSVName:
			addresses, err = readAddressTable(f)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if facilities == nil {
		return nil, nil, fmt.Errorf("dataset archive is missing %s", facilityCSVName)
	}
	if addresses == nil {
		return nil, nil, fmt.Errorf("dataset archive is missing %s", addressCSVName)
	}

	s.logger.Info().
		Int("facilities", len(facilities)).
		Int("addresses", len(addresses)).
		Msg("loaded bulk dataset tables")
	return facilities, addresses, nil
}

func (s *RIDBSource) ensureArchive(ctx context.Context) error {
	if info, err := os.Stat(s.archivePath); err == nil && info.Size() > 0 {
		s.logger.Info().
			Str("archive", s.archivePath).
			Float64("size_mb", float64(info.Size())/1e6).
			Msg("using cached dataset archive")
		return nil
	}

	s.logger.Info().Str("url", s.url).Msg("downloading dataset archive")
	cfg := retry.DefaultConfig()
	return retry.Do(ctx, cfg, func() error {
		return s.download(ctx)
	})
}

func (s *RIDBSource) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build dataset request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &entities.UpstreamError{Op: "dataset download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &entities.UpstreamError{Op: "dataset download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	out, err := os.Create(s.archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", s.archivePath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(s.archivePath)
		return fmt.Errorf("failed to write archive %s: %w", s.archivePath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(s.archivePath)
		return fmt.Errorf("failed to close archive %s: %w", s.archivePath, err)
	}
	return nil
}

func readFacilityTable(f *zip.File) ([]entities.FacilityRow, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	// RIDB exports contain free-text columns with stray quotes.
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", f.Name, err)
	}
	cols, err := columnIndex(header, "FacilityID", "FacilityName", "FacilityTypeDescription", "Reservable", "FacilityLatitude", "FacilityLongitude")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}

	var rows []entities.FacilityRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		rows = append(rows, entities.FacilityRow{
			ID:         field(record, cols["FacilityID"]),
			Name:       field(record, cols["FacilityName"]),
			TypeDesc:   field(record, cols["FacilityTypeDescription"]),
			Reservable: field(record, cols["Reservable"]),
			Latitude:   parseCoordinate(field(record, cols["FacilityLatitude"])),
			Longitude:  parseCoordinate(field(record, cols["FacilityLongitude"])),
		})
	}
	return rows, nil
}

func readAddressTable(f *zip.File) ([]entities.AddressRow, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", f.Name, err)
	}
	cols, err := columnIndex(header, "FacilityID", "AddressStateCode")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}

	var rows []entities.AddressRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		rows = append(rows, entities.AddressRow{
			FacilityID: field(record, cols["FacilityID"]),
			StateCode:  field(record, cols["AddressStateCode"]),
		})
	}
	return rows, nil
}

func columnIndex(header []string, wanted ...string) (map[string]int, error) {
	idx := make(map[string]int, len(wanted))
	for i, name := range header {
		// The first header cell may carry a UTF-8 BOM.
		idx[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	out := make(map[string]int, len(wanted))
	for _, w := range wanted {
		i, ok := idx[w]
		if !ok {
			return nil, fmt.Errorf("missing column %s", w)
		}
		out[w] = i
	}
	return out, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

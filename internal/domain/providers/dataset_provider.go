package providers

import (
	"context"

	"github.com/tjg323/recdotgov/internal/domain/entities"
)

// DatasetProvider defines the interface for the bulk geospatial dataset
// source. Implementations are expected to reuse an already-downloaded
// archive; a missing or corrupt source is fatal to the caller.
type DatasetProvider interface {
	// Tables returns the facility table and the address table.
	Tables(ctx context.Context) ([]entities.FacilityRow, []entities.AddressRow, error)
}

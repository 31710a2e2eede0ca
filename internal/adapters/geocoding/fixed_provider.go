package geocoding

import (
	"context"

	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

// FixedProvider resolves every place name to the same coordinates. It backs
// the default search center and serves as a test double.
type FixedProvider struct {
	coords entities.Coordinates
}

// NewFixedProvider creates a provider pinned to the given coordinates.
func NewFixedProvider(lat, lon float64) providers.GeocodingProvider {
	return &FixedProvider{coords: entities.Coordinates{Latitude: lat, Longitude: lon}}
}

// Resolve returns the pinned coordinates regardless of the place name.
func (p *FixedProvider) Resolve(ctx context.Context, place string) (entities.Coordinates, error) {
	return p.coords, nil
}

package providers

import (
	"context"

	"github.com/tjg323/recdotgov/internal/domain/entities"
)

// GeocodingProvider defines the interface for free-text place resolution
type GeocodingProvider interface {
	// Resolve converts a place name to coordinates. It returns
	// entities.ErrLocationNotFound when the lookup yields no match and an
	// *entities.UpstreamError when the call fails or the response is
	// malformed. No retrying happens at this layer.
	Resolve(ctx context.Context, place string) (entities.Coordinates, error)
}

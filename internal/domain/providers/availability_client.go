package providers

import (
	"context"

	"github.com/tjg323/recdotgov/internal/domain/entities"
)

// AvailabilityClient fetches one facility's availability for one calendar
// month from the external endpoint. HTTP 429 surfaces as
// entities.ErrRateLimited; other transport and status failures surface as
// *entities.UpstreamError.
type AvailabilityClient interface {
	FetchMonth(ctx context.Context, facilityID, month string) (entities.AvailabilityPayload, error)
}

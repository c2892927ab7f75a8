package ports

import (
	"context"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
)

// FunnelRepository is the port to the raw funnel data source. One call
// issues the single read query joining viewings to prospects; rows with a
// null person identifier are excluded at the source.
type FunnelRepository interface {
	FetchFunnelRows(ctx context.Context) ([]domain.FunnelRow, error)
}

package ports

import (
	"context"
	"time"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
)

// SelectWeekParams defines the input for changing a session's selected
// week. Exactly one of Index or Date is set; Date is snapped to the
// nearest week present in the dataset.
type SelectWeekParams struct {
	SessionID string
	Index     *int
	Date      *time.Time
}

// ReportService defines the core operations of the weekly reporting
// engine: the cached aggregated table, per-session week resolution, and
// cache invalidation.
type ReportService interface {
	// WeeklyReport returns the full aggregated table, ordered by
	// (week start ascending, agent ascending).
	WeeklyReport(ctx context.Context) ([]domain.WeeklyAgentMetric, error)

	// CurrentWeek resolves the session's selected week (most recent week
	// when the session has no prior selection) and returns its view.
	CurrentWeek(ctx context.Context, sessionID string) (*domain.WeekView, error)

	// SelectWeek updates the session's selection by index or by date and
	// returns the view for the newly selected week.
	SelectWeek(ctx context.Context, params SelectWeekParams) (*domain.WeekView, error)

	// Invalidate discards the cached table; the next request recomputes it.
	Invalidate()
}

// ReportBroadcaster is the port for notifying connected clients that a
// fresh report table has been loaded.
type ReportBroadcaster interface {
	BroadcastRefresh(loadedAt time.Time, weekCount int)
}

package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
	apperrors "github.com/askvinny/agent-performance-backend/internal/core/errors"
	"github.com/askvinny/agent-performance-backend/internal/core/mocks"
	"github.com/askvinny/agent-performance-backend/internal/core/ports"
	"github.com/askvinny/agent-performance-backend/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock drives the report cache's TTL in tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(repo ports.FunnelRepository, clock *fakeClock) *services.ReportService {
	store := services.NewSelectionStore(services.DefaultSelectionStoreConfig())
	return services.NewReportService(repo, store, nil, testLogger(), time.Hour, clock.Now)
}

func viewing(personID, agent, rawDate string) domain.FunnelRow {
	return domain.FunnelRow{PersonID: personID, Agent: agent, RawDate: rawDate}
}

func applied(personID, agent, rawDate string) domain.FunnelRow {
	return domain.FunnelRow{PersonID: personID, Agent: agent, RawDate: rawDate, Applied: true}
}

func tenant(personID, agent, rawDate string) domain.FunnelRow {
	return domain.FunnelRow{
		PersonID: personID,
		Agent:    agent,
		RawDate:  rawDate,
		Applied:  true,
		Status:   domain.ProspectStatusCurrent,
	}
}

func TestReportService_WeeklyReport_FunnelScenario(t *testing.T) {
	ctx := context.Background()

	// Agent A in the week of Monday 8 Jan 2024: 10 distinct viewings,
	// 4 applications, 2 tenants.
	rows := []domain.FunnelRow{
		tenant("p1", "A", "08/01/2024"),
		tenant("p2", "A", "09/01/2024"),
		applied("p3", "A", "09/01/2024"),
		applied("p4", "A", "10/01/2024"),
		viewing("p5", "A", "10/01/2024"),
		viewing("p6", "A", "11/01/2024"),
		viewing("p7", "A", "12/01/2024"),
		viewing("p8", "A", "13/01/2024"),
		viewing("p9", "A", "14/01/2024"),
		viewing("p10", "A", "14/01/2024"),
	}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(rows, nil)

	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	table, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	require.Len(t, table, 1)

	row := table[0]
	assert.Equal(t, "A", row.Agent)
	assert.Equal(t, date(2024, time.January, 8), row.WeekStart)
	assert.Equal(t, date(2024, time.January, 14), row.WeekEnd)
	assert.Equal(t, 10, row.TotalViewings)
	assert.Equal(t, 4, row.Applications)
	assert.Equal(t, 2, row.Tenants)
	assert.Equal(t, 40.0, row.ViewToAppRate)
	assert.Equal(t, 50.0, row.AppToTenantRate)
	assert.Equal(t, 20.0, row.TotalConversionRate)
}

func TestReportService_WeeklyReport_DistinctCounts(t *testing.T) {
	ctx := context.Background()

	// One person generating several raw rows (repeat viewings plus a
	// duplicated prospect join) must count once per metric.
	rows := []domain.FunnelRow{
		tenant("p1", "A", "08/01/2024"),
		tenant("p1", "A", "08/01/2024"),
		tenant("p1", "A", "10/01/2024"),
		viewing("p2", "A", "09/01/2024"),
	}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(rows, nil)

	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	table, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	require.Len(t, table, 1)

	assert.Equal(t, 2, table[0].TotalViewings)
	assert.Equal(t, 1, table[0].Applications)
	assert.Equal(t, 1, table[0].Tenants)
	assert.LessOrEqual(t, table[0].Tenants, table[0].TotalViewings)
}

func TestReportService_WeeklyReport_SkipsUnparseableDates(t *testing.T) {
	ctx := context.Background()

	rows := []domain.FunnelRow{
		viewing("p1", "A", "08/01/2024"),
		viewing("p2", "A", "garbage"),
		viewing("p3", "A", ""),
		viewing("p4", "A", "2024-01-08"), // wrong ordering for the CRM format
	}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(rows, nil)

	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	table, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, 1, table[0].TotalViewings)
}

func TestReportService_WeeklyReport_Ordering(t *testing.T) {
	ctx := context.Background()

	rows := []domain.FunnelRow{
		viewing("p1", "Zoe", "08/01/2024"),
		viewing("p2", "Amy", "08/01/2024"),
		viewing("p3", "Amy", "01/01/2024"),
	}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(rows, nil)

	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	table, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	require.Len(t, table, 3)

	// Week ascending first, agent ascending within a week.
	assert.Equal(t, date(2024, time.January, 1), table[0].WeekStart)
	assert.Equal(t, "Amy", table[0].Agent)
	assert.Equal(t, date(2024, time.January, 8), table[1].WeekStart)
	assert.Equal(t, "Amy", table[1].Agent)
	assert.Equal(t, "Zoe", table[2].Agent)
}

func TestReportService_WeeklyReport_NoRowForIdleAgents(t *testing.T) {
	ctx := context.Background()

	rows := []domain.FunnelRow{
		viewing("p1", "A", "01/01/2024"),
		viewing("p2", "B", "08/01/2024"),
	}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(rows, nil)

	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	table, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	require.Len(t, table, 2)

	// Agent A has no viewings in the week of 8 Jan: absence, not a zero
	// row.
	for _, row := range table {
		if row.Agent == "A" {
			assert.Equal(t, date(2024, time.January, 1), row.WeekStart)
		}
	}
}

func TestReportService_WeeklyReport_CacheTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: date(2024, time.January, 20)}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return([]domain.FunnelRow{viewing("p1", "A", "08/01/2024")}, nil)

	svc := newTestService(repo, clock)

	_, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)
	_, err = svc.WeeklyReport(ctx)
	require.NoError(t, err)

	// Both calls inside the window share one query.
	repo.AssertNumberOfCalls(t, "FetchFunnelRows", 1)

	clock.Advance(61 * time.Minute)
	_, err = svc.WeeklyReport(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "FetchFunnelRows", 2)
}

func TestReportService_Invalidate(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: date(2024, time.January, 20)}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return([]domain.FunnelRow{viewing("p1", "A", "08/01/2024")}, nil)

	svc := newTestService(repo, clock)

	_, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)

	svc.Invalidate()

	_, err = svc.WeeklyReport(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "FetchFunnelRows", 2)
}

func TestReportService_WeeklyReport_DataSourceFailure(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(nil, errors.New("connection refused"))

	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	table, err := svc.WeeklyReport(ctx)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, apperrors.ErrDataSource)

	// A failed load is not cached.
	_, err = svc.WeeklyReport(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDataSource)
	repo.AssertNumberOfCalls(t, "FetchFunnelRows", 2)
}

func TestReportService_CurrentWeek(t *testing.T) {
	ctx := context.Background()

	rows := []domain.FunnelRow{
		viewing("p1", "A", "01/01/2024"),
		viewing("p2", "A", "08/01/2024"),
		tenant("p3", "A", "15/01/2024"),
	}

	t.Run("defaults to the most recent week", func(t *testing.T) {
		repo := mocks.NewMockFunnelRepository()
		repo.On("FetchFunnelRows", ctx).Return(rows, nil)
		svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

		view, err := svc.CurrentWeek(ctx, "session-1")
		require.NoError(t, err)

		assert.Equal(t, date(2024, time.January, 15), view.WeekStart)
		assert.Equal(t, date(2024, time.January, 21), view.WeekEnd)
		assert.Equal(t, 2, view.SelectedIndex)
		assert.Equal(t, 3, view.WeekCount)
		assert.True(t, view.HasData)
		require.NotNil(t, view.Highlights)
		assert.Equal(t, "A", view.Highlights.TopAgent)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		repo := mocks.NewMockFunnelRepository()
		repo.On("FetchFunnelRows", ctx).Return(rows, nil)
		svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

		index := 0
		_, err := svc.SelectWeek(ctx, ports.SelectWeekParams{SessionID: "session-a", Index: &index})
		require.NoError(t, err)

		viewA, err := svc.CurrentWeek(ctx, "session-a")
		require.NoError(t, err)
		viewB, err := svc.CurrentWeek(ctx, "session-b")
		require.NoError(t, err)

		assert.Equal(t, 0, viewA.SelectedIndex)
		assert.Equal(t, 2, viewB.SelectedIndex)
	})

	t.Run("empty dataset", func(t *testing.T) {
		repo := mocks.NewMockFunnelRepository()
		repo.On("FetchFunnelRows", ctx).Return([]domain.FunnelRow{}, nil)
		svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

		_, err := svc.CurrentWeek(ctx, "session-1")
		assert.ErrorIs(t, err, apperrors.ErrNoWeeksAvailable)
	})
}

func TestReportService_SelectWeek(t *testing.T) {
	ctx := context.Background()

	rows := []domain.FunnelRow{
		viewing("p1", "A", "01/01/2024"),
		viewing("p2", "A", "08/01/2024"),
		viewing("p3", "A", "15/01/2024"),
	}

	newService := func(t *testing.T) *services.ReportService {
		t.Helper()
		repo := mocks.NewMockFunnelRepository()
		repo.On("FetchFunnelRows", ctx).Return(rows, nil)
		return newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})
	}

	t.Run("by index", func(t *testing.T) {
		svc := newService(t)

		index := 1
		view, err := svc.SelectWeek(ctx, ports.SelectWeekParams{SessionID: "s", Index: &index})
		require.NoError(t, err)
		assert.Equal(t, date(2024, time.January, 8), view.WeekStart)

		// The selection sticks for the session.
		view, err = svc.CurrentWeek(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, 1, view.SelectedIndex)
	})

	t.Run("by date jump snaps to the nearest dataset week", func(t *testing.T) {
		svc := newService(t)

		target := date(2024, time.January, 10)
		view, err := svc.SelectWeek(ctx, ports.SelectWeekParams{SessionID: "s", Date: &target})
		require.NoError(t, err)
		assert.Equal(t, date(2024, time.January, 8), view.WeekStart)
		assert.Equal(t, 1, view.SelectedIndex)
	})

	t.Run("bad index leaves the selection unchanged", func(t *testing.T) {
		svc := newService(t)

		index := 1
		_, err := svc.SelectWeek(ctx, ports.SelectWeekParams{SessionID: "s", Index: &index})
		require.NoError(t, err)

		bad := 7
		_, err = svc.SelectWeek(ctx, ports.SelectWeekParams{SessionID: "s", Index: &bad})
		assert.ErrorIs(t, err, apperrors.ErrWeekIndexOutOfRange)

		view, err := svc.CurrentWeek(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, 1, view.SelectedIndex)
	})

	t.Run("neither index nor date", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.SelectWeek(ctx, ports.SelectWeekParams{SessionID: "s"})
		assert.Error(t, err)
	})
}

func TestReportService_BroadcastsOnRefresh(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return([]domain.FunnelRow{viewing("p1", "A", "08/01/2024")}, nil)

	broadcaster := mocks.NewMockReportBroadcaster()
	done := make(chan struct{})
	broadcaster.On("BroadcastRefresh", mock.Anything, 1).Run(func(args mock.Arguments) {
		close(done)
	}).Once()

	store := services.NewSelectionStore(services.DefaultSelectionStoreConfig())
	clock := &fakeClock{now: date(2024, time.January, 20)}
	svc := services.NewReportService(repo, store, broadcaster, testLogger(), time.Hour, clock.Now)

	_, err := svc.WeeklyReport(ctx)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected a refresh broadcast")
	}

	// A cache hit does not broadcast again.
	_, err = svc.WeeklyReport(ctx)
	require.NoError(t, err)
	broadcaster.AssertNumberOfCalls(t, "BroadcastRefresh", 1)
}

func TestReportService_RoundTripWindow(t *testing.T) {
	ctx := context.Background()

	rows := []domain.FunnelRow{
		viewing("p1", "A", "08/01/2024"),
		viewing("p2", "B", "10/01/2024"),
	}

	repo := mocks.NewMockFunnelRepository()
	repo.On("FetchFunnelRows", ctx).Return(rows, nil)
	svc := newTestService(repo, &fakeClock{now: date(2024, time.January, 20)})

	view, err := svc.CurrentWeek(ctx, "s")
	require.NoError(t, err)

	// Re-deriving the window from the filtered rows matches the view's
	// own window exactly.
	resolver := services.NewWeekResolver([]time.Time{view.WeekStart})
	start, end := resolver.WindowFor(view.WeekStart)
	assert.Equal(t, view.WeekStart, start)
	assert.Equal(t, view.WeekEnd, end)
	for _, row := range view.Rows {
		assert.Equal(t, view.WeekStart, row.WeekStart)
		assert.Equal(t, view.WeekEnd, row.WeekEnd)
	}
}

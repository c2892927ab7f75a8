package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
	apperrors "github.com/askvinny/agent-performance-backend/internal/core/errors"
	"github.com/askvinny/agent-performance-backend/internal/core/ports"
)

// ReportService implements the weekly aggregation and reporting engine.
// The aggregated table is memoised for a bounded window: callers within
// the TTL share the cached table, and the mutex guarantees at most one
// underlying query per window.
type ReportService struct {
	repo        ports.FunnelRepository
	selections  *SelectionStore
	broadcaster ports.ReportBroadcaster
	logger      *slog.Logger
	ttl         time.Duration
	now         func() time.Time

	mu       sync.Mutex
	table    []domain.WeeklyAgentMetric
	loadedAt time.Time
	loaded   bool
}

var _ ports.ReportService = (*ReportService)(nil)

// NewReportService creates a new report service. The broadcaster may be
// nil when no real-time notification surface is wired. now defaults to
// time.Now and exists so tests can drive the cache clock.
func NewReportService(
	repo ports.FunnelRepository,
	selections *SelectionStore,
	broadcaster ports.ReportBroadcaster,
	logger *slog.Logger,
	ttl time.Duration,
	now func() time.Time,
) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		repo:        repo,
		selections:  selections,
		broadcaster: broadcaster,
		logger:      logger.With("service", "report"),
		ttl:         ttl,
		now:         now,
	}
}

// WeeklyReport returns the full aggregated table, reloading it from the
// data source when the cached copy has expired.
func (s *ReportService) WeeklyReport(ctx context.Context) ([]domain.WeeklyAgentMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableLocked(ctx)
}

// tableLocked returns the cached table, refreshing it when stale.
// Callers must hold s.mu.
func (s *ReportService) tableLocked(ctx context.Context) ([]domain.WeeklyAgentMetric, error) {
	if s.loaded && s.now().Sub(s.loadedAt) < s.ttl {
		return s.table, nil
	}

	rows, err := s.repo.FetchFunnelRows(ctx)
	if err != nil {
		// No partial result and no retry; connectivity problems belong to
		// the caller.
		return nil, apperrors.NewDataSourceError(err)
	}

	table, skipped := aggregate(rows)

	s.table = table
	s.loadedAt = s.now()
	s.loaded = true

	weekCount := len(domain.DistinctWeeks(table))
	s.logger.Info("weekly report loaded",
		"rows_in", len(rows),
		"rows_out", len(table),
		"rows_skipped", skipped,
		"weeks", weekCount,
	)

	if s.broadcaster != nil {
		go s.broadcaster.BroadcastRefresh(s.loadedAt, weekCount)
	}

	return s.table, nil
}

// CurrentWeek resolves the session's selected week and returns its view.
// A session with no prior selection, or one whose stored index no longer
// exists after a refresh, starts at the most recent week.
func (s *ReportService) CurrentWeek(ctx context.Context, sessionID string) (*domain.WeekView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.tableLocked(ctx)
	if err != nil {
		return nil, err
	}

	resolver := NewWeekResolver(domain.DistinctWeeks(table))

	index, ok := s.selections.Get(sessionID)
	if !ok || !resolver.Contains(index) {
		index, err = resolver.InitialSelection()
		if err != nil {
			return nil, err
		}
		s.selections.Set(sessionID, index)
	}

	return weekView(table, resolver, index), nil
}

// SelectWeek updates the session's selection by index or by nearest-week
// date jump. A failed selection leaves the stored selection unchanged.
func (s *ReportService) SelectWeek(ctx context.Context, params ports.SelectWeekParams) (*domain.WeekView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.tableLocked(ctx)
	if err != nil {
		return nil, err
	}

	resolver := NewWeekResolver(domain.DistinctWeeks(table))

	var index int
	switch {
	case params.Index != nil:
		if _, err := resolver.SelectByIndex(*params.Index); err != nil {
			return nil, err
		}
		index = *params.Index
	case params.Date != nil:
		index, _, err = resolver.SelectNearest(*params.Date)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Either index or date must be provided")
	}

	s.selections.Set(params.SessionID, index)

	return weekView(table, resolver, index), nil
}

// Invalidate discards the cached table so the next request recomputes it.
func (s *ReportService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.table = nil
	s.logger.Info("weekly report cache invalidated")
}

// weekView builds the single-week slice handed to the presentation layer.
func weekView(table []domain.WeeklyAgentMetric, resolver *WeekResolver, index int) *domain.WeekView {
	weekStart := resolver.Weeks()[index]
	start, end := resolver.WindowFor(weekStart)
	rows := domain.FilterWeek(table, weekStart)

	view := &domain.WeekView{
		WeekStart:     start,
		WeekEnd:       end,
		SelectedIndex: index,
		WeekCount:     resolver.Len(),
		Rows:          rows,
	}

	if highlights, ok := domain.Highlights(rows); ok {
		view.Highlights = &highlights
		view.HasData = true
	}

	return view
}

// groupKey identifies one (agent, week) bucket.
type groupKey struct {
	agent string
	week  time.Time
}

// aggregate turns raw funnel rows into the ordered report table. Counts
// are distinct-person counts per bucket, so duplicate join rows for one
// person never inflate a metric. Rows whose date cannot be parsed are
// dropped and counted, not fatal.
func aggregate(rows []domain.FunnelRow) ([]domain.WeeklyAgentMetric, int) {
	viewings := make(map[groupKey]map[string]struct{})
	applications := make(map[groupKey]map[string]struct{})
	tenants := make(map[groupKey]map[string]struct{})

	skipped := 0
	for _, row := range rows {
		if row.PersonID == "" {
			continue
		}

		date, err := domain.ParseViewingDate(row.RawDate)
		if err != nil {
			// Row-level format errors are absorbed; the load continues.
			skipped++
			continue
		}

		key := groupKey{agent: row.Agent, week: domain.WeekStart(date)}

		addPerson(viewings, key, row.PersonID)
		if row.Applied {
			addPerson(applications, key, row.PersonID)
		}
		if row.Status == domain.ProspectStatusCurrent {
			addPerson(tenants, key, row.PersonID)
		}
	}

	table := make([]domain.WeeklyAgentMetric, 0, len(viewings))
	for key, persons := range viewings {
		totalViewings := len(persons)
		applicationCount := len(applications[key])
		tenantCount := len(tenants[key])

		table = append(table, domain.WeeklyAgentMetric{
			Agent:               key.agent,
			WeekStart:           key.week,
			WeekEnd:             domain.WeekEnd(key.week),
			TotalViewings:       totalViewings,
			Applications:        applicationCount,
			Tenants:             tenantCount,
			ViewToAppRate:       domain.Rate(applicationCount, totalViewings),
			AppToTenantRate:     domain.Rate(tenantCount, applicationCount),
			TotalConversionRate: domain.Rate(tenantCount, totalViewings),
		})
	}

	sort.Slice(table, func(i, j int) bool {
		if !table[i].WeekStart.Equal(table[j].WeekStart) {
			return table[i].WeekStart.Before(table[j].WeekStart)
		}
		return table[i].Agent < table[j].Agent
	})

	return table, skipped
}

func addPerson(groups map[groupKey]map[string]struct{}, key groupKey, personID string) {
	persons, exists := groups[key]
	if !exists {
		persons = make(map[string]struct{})
		groups[key] = persons
	}
	persons[personID] = struct{}{}
}

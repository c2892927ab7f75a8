package domain

import "time"

// ProspectStatusCurrent marks a prospect who has become a tenant.
const ProspectStatusCurrent = "Current"

// FunnelRow is one raw viewing event joined (left) to its prospect record.
// RawDate carries the CRM's textual day/month/year date; parsing happens
// during aggregation so a dirty row can be dropped without failing the
// whole load. Applied and Status are zero-valued when no prospect matched.
type FunnelRow struct {
	PersonID string
	Agent    string
	RawDate  string
	Applied  bool
	Status   string
}

// WeeklyAgentMetric is one row of the weekly funnel report: the outcomes
// credited to a single agent within a single Monday-anchored week.
type WeeklyAgentMetric struct {
	Agent               string
	WeekStart           time.Time
	WeekEnd             time.Time
	TotalViewings       int
	Applications        int
	Tenants             int
	ViewToAppRate       float64
	AppToTenantRate     float64
	TotalConversionRate float64
}

// WeekHighlights are the derived display figures for a single filtered
// week: the best-converting agent and the mean conversion across agents.
type WeekHighlights struct {
	TopAgent    string
	TopRate     float64
	AverageRate float64
}

// Coverage summarises the span of the full report table.
type Coverage struct {
	WeekCount int
	FirstWeek time.Time
	LastWeek  time.Time
}

// WeekView is the resolved single-week slice of the report handed to the
// presentation layer: the display window, the filtered rows, and the
// derived highlights. HasData is false when the resolved week has no rows,
// which the consumer must render as an empty state rather than a failure.
type WeekView struct {
	WeekStart     time.Time
	WeekEnd       time.Time
	SelectedIndex int
	WeekCount     int
	Rows          []WeeklyAgentMetric
	Highlights    *WeekHighlights
	HasData       bool
}

// DistinctWeeks returns the sorted distinct week starts present in an
// ordered report table. The table is already sorted by week start, so a
// single pass suffices.
func DistinctWeeks(rows []WeeklyAgentMetric) []time.Time {
	weeks := make([]time.Time, 0)
	for _, row := range rows {
		if len(weeks) == 0 || !weeks[len(weeks)-1].Equal(row.WeekStart) {
			weeks = append(weeks, row.WeekStart)
		}
	}
	return weeks
}

// FilterWeek returns the rows belonging to the given week start.
func FilterWeek(rows []WeeklyAgentMetric, weekStart time.Time) []WeeklyAgentMetric {
	filtered := make([]WeeklyAgentMetric, 0)
	for _, row := range rows {
		if row.WeekStart.Equal(weekStart) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// Highlights computes the top agent (maximum total conversion rate, ties
// broken by first occurrence) and the average conversion rate over the
// filtered week. Returns false when the week has no rows.
func Highlights(rows []WeeklyAgentMetric) (WeekHighlights, bool) {
	if len(rows) == 0 {
		return WeekHighlights{}, false
	}

	top := 0
	sum := 0.0
	for i, row := range rows {
		if row.TotalConversionRate > rows[top].TotalConversionRate {
			top = i
		}
		sum += row.TotalConversionRate
	}

	return WeekHighlights{
		TopAgent:    rows[top].Agent,
		TopRate:     RoundRate(rows[top].TotalConversionRate),
		AverageRate: RoundRate(sum / float64(len(rows))),
	}, true
}

// TableCoverage summarises the weeks spanned by the full report table.
func TableCoverage(rows []WeeklyAgentMetric) Coverage {
	weeks := DistinctWeeks(rows)
	if len(weeks) == 0 {
		return Coverage{}
	}
	return Coverage{
		WeekCount: len(weeks),
		FirstWeek: weeks[0],
		LastWeek:  weeks[len(weeks)-1],
	}
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
	"github.com/askvinny/agent-performance-backend/internal/core/ports"
)

// FunnelRepository reads the raw viewing funnel from the CRM export
// tables. One call issues the single read query per cache refresh.
type FunnelRepository struct {
	pool *pgxpool.Pool
}

var _ ports.FunnelRepository = (*FunnelRepository)(nil)

func NewFunnelRepository(pool *pgxpool.Pool) ports.FunnelRepository {
	return &FunnelRepository{pool: pool}
}

// FetchFunnelRows returns every viewing event with a non-null person
// identifier, left-joined to its prospect record. Dates come back raw;
// parsing belongs to the aggregation so one dirty row cannot fail the
// whole query.
func (r *FunnelRepository) FetchFunnelRows(ctx context.Context) ([]domain.FunnelRow, error) {
	const query = `
SELECT v."personId",
       v."Agent",
       v."Date",
       p."Applied" IS NOT NULL AS applied,
       COALESCE(p."Status", '') AS status
FROM viewings v
LEFT JOIN prospects p ON v."personId" = p."personId"
WHERE v."personId" IS NOT NULL
`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funnel := make([]domain.FunnelRow, 0)
	for rows.Next() {
		var (
			personID pgtype.Text
			agent    pgtype.Text
			rawDate  pgtype.Text
			applied  bool
			status   string
		)
		if err := rows.Scan(&personID, &agent, &rawDate, &applied, &status); err != nil {
			return nil, err
		}

		funnel = append(funnel, domain.FunnelRow{
			PersonID: textOrEmpty(personID),
			Agent:    textOrEmpty(agent),
			RawDate:  textOrEmpty(rawDate),
			Applied:  applied,
			Status:   status,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return funnel, nil
}

func textOrEmpty(text pgtype.Text) string {
	if text.Valid {
		return text.String
	}
	return ""
}

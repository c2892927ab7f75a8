package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
)

func seedFunnel(t *testing.T, ctx context.Context) {
	t.Helper()

	_, err := testPool.Exec(ctx, `TRUNCATE viewings, prospects`)
	require.NoError(t, err)

	_, err = testPool.Exec(ctx, `
		INSERT INTO viewings ("personId", "Agent", "Date") VALUES
			('p1', 'Amy', '08/01/2024'),
			('p1', 'Amy', '10/01/2024'),
			('p2', 'Zoe', '09/01/2024'),
			('p3', 'Amy', 'not-a-date'),
			(NULL, 'Amy', '08/01/2024')
	`)
	require.NoError(t, err)

	_, err = testPool.Exec(ctx, `
		INSERT INTO prospects ("personId", "Applied", "Status") VALUES
			('p1', '12/01/2024', 'Current'),
			('p3', '15/01/2024', NULL)
	`)
	require.NoError(t, err)
}

func TestFetchFunnelRows(t *testing.T) {
	ctx := context.Background()
	seedFunnel(t, ctx)

	repo := NewFunnelRepository(testPool)
	rows, err := repo.FetchFunnelRows(ctx)
	require.NoError(t, err)

	// The NULL personId viewing is filtered out in SQL; the unparseable
	// date comes back raw for the aggregation to decide.
	require.Len(t, rows, 4)

	byPerson := make(map[string][]domain.FunnelRow)
	for _, row := range rows {
		byPerson[row.PersonID] = append(byPerson[row.PersonID], row)
	}

	require.Len(t, byPerson["p1"], 2)
	for _, row := range byPerson["p1"] {
		assert.Equal(t, "Amy", row.Agent)
		assert.True(t, row.Applied)
		assert.Equal(t, domain.ProspectStatusCurrent, row.Status)
	}

	// No prospect record: viewed only.
	require.Len(t, byPerson["p2"], 1)
	assert.False(t, byPerson["p2"][0].Applied)
	assert.Empty(t, byPerson["p2"][0].Status)

	// Applied but with a NULL status: not yet a tenant.
	require.Len(t, byPerson["p3"], 1)
	assert.True(t, byPerson["p3"][0].Applied)
	assert.Empty(t, byPerson["p3"][0].Status)
	assert.Equal(t, "not-a-date", byPerson["p3"][0].RawDate)
}

func TestFetchFunnelRows_EmptyTables(t *testing.T) {
	ctx := context.Background()

	_, err := testPool.Exec(ctx, `TRUNCATE viewings, prospects`)
	require.NoError(t, err)

	repo := NewFunnelRepository(testPool)
	rows, err := repo.FetchFunnelRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

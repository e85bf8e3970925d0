package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

type memoryRepo struct {
	rows    map[string][][]interface{}
	readErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[string][][]interface{}{}}
}

func (m *memoryRepo) AppendRows(_ context.Context, rng string, rows [][]interface{}) error {
	m.rows[rng] = append(m.rows[rng], rows...)
	return nil
}

func (m *memoryRepo) ReadRange(_ context.Context, rng string) ([][]interface{}, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.rows[rng], nil
}

func TestRowsFollowHeaders(t *testing.T) {
	assert.Len(t, DailyMilkRow(models.DailyMilkSummary{}), len(DailyMilkHeader))
	assert.Len(t, MonthlyFinancialRow(models.MonthlyFinancialSummary{}), len(MonthlyFinancialHeader))
}

func TestExporterAppendsRows(t *testing.T) {
	repo := newMemoryRepo()
	e := NewExporter(repo)
	ctx := context.Background()

	require.NoError(t, e.EnsureHeaders(ctx))
	require.NoError(t, e.EnsureHeaders(ctx))
	require.Len(t, repo.rows[DailyMilkRange], 1)
	require.Len(t, repo.rows[MonthlyFinancialRange], 1)

	sum := models.DailyMilkSummary{
		FarmID: uuid.New(),
		Date:   models.DateOf(2024, 5, 1),
		DailyMilkFigures: models.DailyMilkFigures{
			TotalDaily:    decimal.NewFromInt(18),
			CowsMilked:    1,
			AveragePerCow: decimal.NewFromInt(18),
		},
		Staleness: models.Staleness{Version: 2, ComputedAt: time.Date(2024, 5, 2, 0, 30, 0, 0, time.UTC)},
	}
	require.NoError(t, e.PutDailyMilk(ctx, sum))

	rows := repo.rows[DailyMilkRange]
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "2024-05-01", row[1])
	assert.Equal(t, 2, row[2])
	assert.Equal(t, "18.00", row[6])
	assert.Equal(t, "0.00", row[4])
	assert.Equal(t, "2024-05-02T00:30:00Z", row[10])
}

func TestEnsureHeadersReadFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.readErr = errors.New("quota exceeded")
	assert.Error(t, NewExporter(repo).EnsureHeaders(context.Background()))
}

package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/polysignal/internal/adapters/storage"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReport(id string, startedAt time.Time, profits ...float64) *domain.BacktestReport {
	capital := 100.0
	trades := make([]domain.TradeRecord, 0, len(profits))
	for i, p := range profits {
		capital += p
		trades = append(trades, domain.TradeRecord{
			ID:             id + "-t" + string(rune('a'+i)),
			QuestionID:     string(rune('A' + i)),
			Question:       "Will X happen?",
			Estimate:       0.8,
			EstimateStatus: domain.StatusStructured,
			Direction:      domain.DirectionBuy,
			BetOnYes:       true,
			Correct:        p > 0,
			BetAmount:      10,
			Profit:         p,
			CapitalAfter:   capital,
			Timestamp:      startedAt,
		})
	}
	summary := domain.Summarize(100, trades)
	return &domain.BacktestReport{
		RunID:          id,
		StartedAt:      startedAt,
		State:          domain.StateComplete,
		RiskLevel:      domain.RiskMedium,
		BetSizePercent: 10,
		MarketsTested:  len(trades),
		Summary:        summary,
		Trades:         trades,
	}
}

func TestSQLiteStorage_SaveAndListRuns(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.SaveRun(context.Background(), makeReport("run-old", now.Add(-time.Hour), 10, -11)))
	require.NoError(t, db.SaveRun(context.Background(), makeReport("run-new", now, 10, 11, 12.1)))

	runs, err := db.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Más reciente primero
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, now, runs[0].CreatedAt)
	assert.Equal(t, domain.RiskMedium, runs[0].RiskLevel)
	assert.Equal(t, 3, runs[0].Summary.TotalBets)
	assert.Equal(t, 3, runs[0].Summary.WinningBets)
	assert.InDelta(t, 133.1, runs[0].Summary.FinalCapital, 0.001)
	assert.InDelta(t, 33.1, runs[0].Summary.ROI, 0.001)

	assert.Equal(t, "run-old", runs[1].ID)
	assert.Equal(t, 1, runs[1].Summary.WinningBets)

	n, err := db.CountTrades(context.Background(), "run-new")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStorage_SaveRunIdempotent(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	r := makeReport("run-1", time.Now(), 5)
	require.NoError(t, db.SaveRun(context.Background(), r))
	require.NoError(t, db.SaveRun(context.Background(), r))

	runs, err := db.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	n, err := db.CountTrades(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStorage_AssignsRunID(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	r := makeReport("", time.Now())
	require.NoError(t, db.SaveRun(context.Background(), r))
	assert.NotEmpty(t, r.RunID)
}

func TestSQLiteStorage_ListLimit(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.SaveRun(context.Background(), makeReport(id, base.Add(time.Duration(i)*time.Minute), 1)))
	}

	runs, err := db.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSQLiteStorage_PrunesOldRunsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveRun(context.Background(), makeReport("stale", time.Now().AddDate(0, 0, -45), 1)))
	require.NoError(t, db.SaveRun(context.Background(), makeReport("fresh", time.Now(), 1)))
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fresh", runs[0].ID)

	n, err := db.CountTrades(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

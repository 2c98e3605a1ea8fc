package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/polysignal/internal/application/backtest"
	"github.com/alejandrodnm/polysignal/internal/application/estimator"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeService struct {
	reply          string
	err            error
	gotCalibration string
	gotLines       []string
}

func (f *fakeService) EstimateProbability(_ context.Context, _ string, lines []string, calibration string) (string, error) {
	f.gotLines = lines
	f.gotCalibration = calibration
	return f.reply, f.err
}

type fakeRunner struct {
	report    *domain.BacktestReport
	err       error
	markets   []domain.MarketRecord
	gotParams backtest.Params
	runs      int
}

func (f *fakeRunner) Run(_ context.Context, p backtest.Params) (*domain.BacktestReport, error) {
	f.runs++
	f.gotParams = p
	return f.report, f.err
}

func (f *fakeRunner) ResolvedMarkets(context.Context) ([]domain.MarketRecord, error) {
	return f.markets, f.err
}

type fakeNews struct {
	lines []string
	err   error
}

func (f *fakeNews) FetchContext(context.Context, string, int) ([]string, error) {
	return f.lines, f.err
}

type fakeStorage struct {
	saved []*domain.BacktestReport
	err   error
}

func (f *fakeStorage) SaveRun(_ context.Context, r *domain.BacktestReport) error {
	f.saved = append(f.saved, r)
	return f.err
}

func (f *fakeStorage) ListRuns(context.Context, int) ([]domain.RunRecord, error) {
	out := make([]domain.RunRecord, 0, len(f.saved))
	for _, r := range f.saved {
		out = append(out, domain.RunRecord{ID: r.RunID, Summary: r.Summary})
	}
	return out, nil
}

func (f *fakeStorage) Close() error { return nil }

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(svc *fakeService, runner *fakeRunner, news *fakeNews, store *fakeStorage) *Service {
	var n ports.ContextProvider
	if news != nil {
		n = news
	}
	s := New(Config{}, estimator.New(svc), runner, n, nil)
	if store != nil {
		s.storage = store
	}
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleReport() *domain.BacktestReport {
	trades := []domain.TradeRecord{
		{QuestionID: "1", Question: "Will bitcoin rise?", Estimate: 0.8, Correct: true, Profit: 5},
		{QuestionID: "2", Question: "Will bitcoin fall?", Estimate: 0.9, Correct: true, Profit: 5},
		{QuestionID: "3", Question: "Will it rain?", Estimate: 0.75, Correct: false, Profit: -5},
	}
	summary := domain.Summarize(100, trades)
	return &domain.BacktestReport{
		RunID:    "run-1",
		State:    domain.StateComplete,
		Summary:  summary,
		Trades:   trades,
		Insights: domain.Aggregate(summary, trades),
	}
}

// --- tests ---

func TestGenerateSignal_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		price float64
		risk  domain.RiskLevel
		want  domain.Direction
	}{
		{"strong yes medium", `{"yes_probability": 0.8, "reason": "Strong ETF inflows"}`, 0.6, domain.RiskMedium, domain.DirectionBuy},
		{"weak yes low", `{"yes_probability": 0.75, "reason": "x"}`, 0.6, domain.RiskLow, domain.DirectionHold},
		{"strong no medium", `{"yes_probability": 0.2, "reason": "x"}`, 0.5, domain.RiskMedium, domain.DirectionSell},
		{"heuristic percent", "I think it's about 72% likely.", 0.5, domain.RiskMedium, domain.DirectionBuy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(&fakeService{reply: tt.reply}, &fakeRunner{}, nil, nil)
			res, err := s.GenerateSignal(context.Background(), SignalRequest{
				Question:    "Will BTC exceed $100k?",
				RiskLevel:   tt.risk,
				MarketPrice: tt.price,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Signal.Direction)
			assert.Equal(t, fixedNow, res.Signal.Timestamp)
			assert.Equal(t, tt.risk, res.Signal.RiskLevel)
			assert.False(t, res.BacktestUsed)
		})
	}
}

func TestGenerateSignal_Validation(t *testing.T) {
	s := newService(&fakeService{}, &fakeRunner{}, nil, nil)

	_, err := s.GenerateSignal(context.Background(), SignalRequest{Question: "  ", MarketPrice: 0.5})
	assert.ErrorIs(t, err, domain.ErrMissingQuestion)

	for _, p := range []float64{-0.1, 1.1, math.NaN()} {
		_, err = s.GenerateSignal(context.Background(), SignalRequest{Question: "Q?", MarketPrice: p})
		assert.ErrorIs(t, err, domain.ErrInvalidMarketPrice)
	}
}

func TestGenerateSignal_DegradedIsNotAnError(t *testing.T) {
	s := newService(&fakeService{err: errors.New("timeout")}, &fakeRunner{}, nil, nil)
	res, err := s.GenerateSignal(context.Background(), SignalRequest{
		Question:    "Q?",
		RiskLevel:   domain.RiskMedium,
		MarketPrice: 0.5,
	})

	require.NoError(t, err)
	assert.True(t, res.Degraded())
	assert.Equal(t, "timeout", res.Cause)
	assert.Equal(t, domain.DirectionHold, res.Signal.Direction)
	assert.InDelta(t, 0.5, res.Signal.Confidence, 1e-9)
}

func TestGenerateSignal_WithBacktestInjectsCalibration(t *testing.T) {
	svc := &fakeService{reply: `{"yes_probability": 0.6, "reason": "x"}`}
	runner := &fakeRunner{report: sampleReport()}
	store := &fakeStorage{}
	s := newService(svc, runner, nil, store)

	res, err := s.GenerateSignal(context.Background(), SignalRequest{
		Question:        "Will bitcoin hit 100k?",
		RiskLevel:       domain.RiskHigh,
		MarketPrice:     0.5,
		IncludeBacktest: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, runner.runs)
	assert.Equal(t, domain.RiskHigh, runner.gotParams.RiskLevel)
	assert.InDelta(t, defaultCapital, runner.gotParams.InitialCapital, 1e-9)
	assert.True(t, res.BacktestUsed)
	require.NotNil(t, res.Backtest)
	assert.Equal(t, 3, res.Backtest.TotalBets)
	require.NotNil(t, res.Insights)
	assert.Contains(t, svc.gotCalibration, "HISTORICAL PERFORMANCE")
	assert.Contains(t, svc.gotCalibration, `"bitcoin"`)
	assert.Len(t, store.saved, 1)
}

func TestGenerateSignal_BacktestFailureFallsBack(t *testing.T) {
	svc := &fakeService{reply: `{"yes_probability": 0.6, "reason": "x"}`}
	runner := &fakeRunner{report: &domain.BacktestReport{State: domain.StateNoData}, err: domain.ErrNoData}
	s := newService(svc, runner, nil, nil)

	res, err := s.GenerateSignal(context.Background(), SignalRequest{
		Question:        "Q?",
		MarketPrice:     0.5,
		IncludeBacktest: true,
	})
	require.NoError(t, err)
	assert.False(t, res.BacktestUsed)
	assert.Nil(t, res.Backtest)
	assert.Empty(t, svc.gotCalibration)
	assert.Equal(t, domain.RiskVeryHigh, res.Signal.RiskLevel)
}

func TestGenerateSignal_ContextFailureUsesEmptyContext(t *testing.T) {
	svc := &fakeService{reply: `{"yes_probability": 0.6, "reason": "x"}`}
	s := newService(svc, &fakeRunner{}, &fakeNews{err: errors.New("newsapi down")}, nil)

	res, err := s.GenerateSignal(context.Background(), SignalRequest{Question: "Q?", MarketPrice: 0.5})
	require.NoError(t, err)
	assert.Empty(t, svc.gotLines)
	assert.Equal(t, domain.StatusStructured, res.Status)
}

func TestGenerateSignal_PassesContextLines(t *testing.T) {
	svc := &fakeService{reply: `{"yes_probability": 0.6, "reason": "x"}`}
	s := newService(svc, &fakeRunner{}, &fakeNews{lines: []string{"a", "b"}}, nil)

	_, err := s.GenerateSignal(context.Background(), SignalRequest{Question: "Q?", MarketPrice: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, svc.gotLines)
}

func TestRunBacktest_ArchivesRun(t *testing.T) {
	store := &fakeStorage{}
	runner := &fakeRunner{report: sampleReport()}
	s := newService(&fakeService{}, runner, nil, store)

	report, err := s.RunBacktest(context.Background(), 250, 10)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.InDelta(t, 250.0, runner.gotParams.InitialCapital, 1e-9)
	assert.InDelta(t, 10.0, runner.gotParams.BetSizePercent, 1e-9)
	require.Len(t, store.saved, 1)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestRunBacktest_Errors(t *testing.T) {
	s := newService(&fakeService{}, &fakeRunner{err: domain.ErrInvalidBetSize}, nil, nil)
	_, err := s.RunBacktest(context.Background(), 100, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBetSize)

	s = newService(&fakeService{}, &fakeRunner{err: errors.New("indexer down")}, nil, nil)
	_, err = s.RunBacktest(context.Background(), 100, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.RunBacktest")
}

func TestListResolvedMarkets(t *testing.T) {
	w := 0
	markets := []domain.MarketRecord{{QuestionID: "1", WinningOutcome: &w}}
	s := newService(&fakeService{}, &fakeRunner{markets: markets}, nil, nil)

	got, err := s.ListResolvedMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, markets, got)
}

func TestListRuns_NoStorage(t *testing.T) {
	s := newService(&fakeService{}, &fakeRunner{}, nil, nil)
	runs, err := s.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

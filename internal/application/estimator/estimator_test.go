package estimator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/polysignal/internal/application/estimator"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	reply           string
	err             error
	gotCalibration  string
	gotContextLines []string
	calls           int
}

func (f *fakeService) EstimateProbability(_ context.Context, _ string, lines []string, calibration string) (string, error) {
	f.calls++
	f.gotContextLines = lines
	f.gotCalibration = calibration
	return f.reply, f.err
}

func TestEstimate_Structured(t *testing.T) {
	svc := &fakeService{reply: `{"yes_probability": 0.8, "reason": "Strong ETF inflows"}`}
	est := estimator.New(svc).Estimate(context.Background(), estimator.Request{
		Question:     "Will BTC exceed $100k?",
		ContextLines: []string{"BTC rallies"},
		Mode:         estimator.ModeCalibrated,
	})

	assert.InDelta(t, 0.8, est.Probability, 1e-9)
	assert.Equal(t, domain.StatusStructured, est.Status)
	assert.False(t, est.Degraded())
	assert.Equal(t, []string{"BTC rallies"}, svc.gotContextLines)
}

func TestEstimate_BlindDropsCalibration(t *testing.T) {
	svc := &fakeService{reply: `{"yes_probability": 0.6, "reason": "x"}`}
	e := estimator.New(svc)

	e.Estimate(context.Background(), estimator.Request{
		Question:    "Q?",
		Mode:        estimator.ModeBlind,
		Calibration: "HISTORICAL PERFORMANCE ...",
	})
	assert.Empty(t, svc.gotCalibration)

	e.Estimate(context.Background(), estimator.Request{
		Question:    "Q?",
		Mode:        estimator.ModeCalibrated,
		Calibration: "HISTORICAL PERFORMANCE ...",
	})
	assert.Equal(t, "HISTORICAL PERFORMANCE ...", svc.gotCalibration)
}

func TestEstimate_ServiceFailureIsDegraded(t *testing.T) {
	svc := &fakeService{err: errors.New("dial tcp: i/o timeout")}
	est := estimator.New(svc).Estimate(context.Background(), estimator.Request{Question: "Q?"})

	require.True(t, est.Degraded())
	assert.InDelta(t, 0.5, est.Probability, 1e-9)
	assert.Equal(t, "dial tcp: i/o timeout", est.Cause)
	assert.Contains(t, est.Reason, "i/o timeout")
	assert.Equal(t, 1, svc.calls)
}

func TestEstimate_LongErrorTruncated(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'e'
	}
	svc := &fakeService{err: errors.New(string(long))}
	est := estimator.New(svc).Estimate(context.Background(), estimator.Request{Question: "Q?"})

	assert.Less(t, len(est.Cause), 200)
	assert.LessOrEqual(t, len([]rune(est.Reason)), domain.MaxReasonLen)
}

func TestEstimate_HeuristicTagged(t *testing.T) {
	svc := &fakeService{reply: "I think it's about 72% likely."}
	est := estimator.New(svc).Estimate(context.Background(), estimator.Request{Question: "Q?"})

	assert.InDelta(t, 0.72, est.Probability, 1e-9)
	assert.Equal(t, domain.StatusHeuristic, est.Status)
	assert.True(t, est.LowConfidenceParse())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "blind", estimator.ModeBlind.String())
	assert.Equal(t, "calibrated", estimator.ModeCalibrated.String())
}

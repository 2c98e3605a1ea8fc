package api

import (
	"time"

	"github.com/alejandrodnm/polysignal/internal/application/engine"
	"github.com/alejandrodnm/polysignal/internal/domain"
)

// DTOs JSON del API. Los nombres de campo siguen lo que consume el frontend.

type signalRequest struct {
	Question        string   `json:"question"`
	RiskLevel       string   `json:"riskLevel"`
	MarketPrice     *float64 `json:"marketPrice"`
	IncludeBacktest bool     `json:"includeBacktest"`
}

type backtestRequest struct {
	InitialCapital *float64 `json:"initialCapital"`
	BetSizePercent *float64 `json:"betSizePercent"`
}

type signalDTO struct {
	Direction   string    `json:"direction"`
	Confidence  float64   `json:"confidence"`
	Reason      string    `json:"reason"`
	MarketPrice float64   `json:"marketPrice"`
	RiskLevel   string    `json:"riskLevel"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Degraded    bool      `json:"degraded"`
	Cause       string    `json:"cause,omitempty"`
}

type signalResponse struct {
	Success         bool                `json:"success"`
	Signal          signalDTO           `json:"signal"`
	BacktestUsed    bool                `json:"backtest_used"`
	BacktestSummary *backtestSummaryDTO `json:"backtest_summary,omitempty"`
}

type backtestSummaryDTO struct {
	Accuracy  float64 `json:"accuracy"`
	ROI       float64 `json:"roi"`
	TotalBets int     `json:"total_bets"`
}

type summaryDTO struct {
	Accuracy       float64 `json:"accuracy"`
	InitialCapital float64 `json:"initialCapital"`
	FinalCapital   float64 `json:"finalCapital"`
	TotalProfit    float64 `json:"totalProfit"`
	ROI            float64 `json:"roi"`
	TotalBets      int     `json:"totalBets"`
	WinningBets    int     `json:"winningBets"`
}

type tradeDTO struct {
	QuestionID       string    `json:"questionId"`
	Question         string    `json:"question"`
	AIConfidence     float64   `json:"aiConfidence"`
	EstimateStatus   string    `json:"estimateStatus"`
	BetOnYes         bool      `json:"betOnYes"`
	ActualWinner     int       `json:"actualWinner"`
	ActualWinnerName string    `json:"actualWinnerName"`
	AICorrect        bool      `json:"aiCorrect"`
	BetAmount        float64   `json:"betAmount"`
	Profit           float64   `json:"profit"`
	CapitalAfter     float64   `json:"capitalAfter"`
	Timestamp        time.Time `json:"timestamp"`
}

type bandDTO struct {
	Samples  int     `json:"samples"`
	Accuracy float64 `json:"accuracy"`
}

type topicDTO struct {
	Keyword  string  `json:"keyword"`
	Samples  int     `json:"samples"`
	Accuracy float64 `json:"accuracy"`
}

type insightsDTO struct {
	Recent         bandDTO    `json:"recent"`
	HighConfidence *bandDTO   `json:"highConfidence,omitempty"`
	LowConfidence  *bandDTO   `json:"lowConfidence,omitempty"`
	Topics         []topicDTO `json:"topics"`
}

type backtestResponse struct {
	Success  bool        `json:"success"`
	RunID    string      `json:"runId"`
	Skipped  int         `json:"skipped"`
	Summary  summaryDTO  `json:"summary"`
	Results  []tradeDTO  `json:"results"`
	Insights insightsDTO `json:"insights"`
}

type marketDTO struct {
	QuestionID         string    `json:"questionId"`
	Question           string    `json:"question"`
	OutcomeNames       []string  `json:"outcomeNames"`
	WinningOutcome     *int      `json:"winningOutcome"`
	WinningOutcomeName string    `json:"winningOutcomeName"`
	EndTime            time.Time `json:"endTime"`
	IsResolved         bool      `json:"isResolved"`
}

type marketsResponse struct {
	Success bool        `json:"success"`
	Markets []marketDTO `json:"markets"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// --- mapping ---

func toSignalResponse(res engine.SignalResult) signalResponse {
	sig := res.Signal
	out := signalResponse{
		Success: true,
		Signal: signalDTO{
			Direction:   string(sig.Direction),
			Confidence:  sig.Confidence,
			Reason:      sig.Reason,
			MarketPrice: sig.MarketPrice,
			RiskLevel:   string(sig.RiskLevel),
			Timestamp:   sig.Timestamp,
			Status:      string(res.Status),
			Degraded:    res.Degraded(),
			Cause:       res.Cause,
		},
		BacktestUsed: res.BacktestUsed,
	}
	if res.Backtest != nil {
		out.BacktestSummary = &backtestSummaryDTO{
			Accuracy:  res.Backtest.Accuracy,
			ROI:       res.Backtest.ROI,
			TotalBets: res.Backtest.TotalBets,
		}
	}
	return out
}

func toBacktestResponse(r *domain.BacktestReport) backtestResponse {
	s := r.Summary
	out := backtestResponse{
		Success: true,
		RunID:   r.RunID,
		Skipped: r.Skipped,
		Summary: summaryDTO{
			Accuracy:       s.Accuracy,
			InitialCapital: s.InitialCapital,
			FinalCapital:   s.FinalCapital,
			TotalProfit:    s.TotalProfit,
			ROI:            s.ROI,
			TotalBets:      s.TotalBets,
			WinningBets:    s.WinningBets,
		},
		Results:  make([]tradeDTO, 0, len(r.Trades)),
		Insights: toInsightsDTO(r.Insights),
	}
	for _, t := range r.Trades {
		out.Results = append(out.Results, tradeDTO{
			QuestionID:       t.QuestionID,
			Question:         t.Question,
			AIConfidence:     t.Estimate,
			EstimateStatus:   string(t.EstimateStatus),
			BetOnYes:         t.BetOnYes,
			ActualWinner:     t.ActualWinner,
			ActualWinnerName: t.ActualWinnerName,
			AICorrect:        t.Correct,
			BetAmount:        t.BetAmount,
			Profit:           t.Profit,
			CapitalAfter:     t.CapitalAfter,
			Timestamp:        t.Timestamp,
		})
	}
	return out
}

func toInsightsDTO(in domain.Insights) insightsDTO {
	out := insightsDTO{
		Recent: bandDTO{Samples: in.Recent.Samples, Accuracy: in.Recent.Accuracy},
		Topics: make([]topicDTO, 0, len(in.TopTopics())),
	}
	if in.HighConfidence.Presentable() {
		out.HighConfidence = &bandDTO{Samples: in.HighConfidence.Samples, Accuracy: in.HighConfidence.Accuracy}
	}
	if in.LowConfidence.Presentable() {
		out.LowConfidence = &bandDTO{Samples: in.LowConfidence.Samples, Accuracy: in.LowConfidence.Accuracy}
	}
	for _, t := range in.TopTopics() {
		out.Topics = append(out.Topics, topicDTO{Keyword: t.Keyword, Samples: t.Samples, Accuracy: t.Accuracy})
	}
	return out
}

func toMarketDTO(m domain.MarketRecord) marketDTO {
	return marketDTO{
		QuestionID:         m.QuestionID,
		Question:           m.Question,
		OutcomeNames:       m.OutcomeNames,
		WinningOutcome:     m.WinningOutcome,
		WinningOutcomeName: m.WinnerName(),
		EndTime:            m.EndTime,
		IsResolved:         m.Resolved(),
	}
}

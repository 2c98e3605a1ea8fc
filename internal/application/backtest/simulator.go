package backtest

// simulator.go reproduce la política de decisión sobre mercados ya resueltos.
//
// Para cada mercado, del más reciente al más antiguo:
// 1. Estima la probabilidad YES en modo ciego (sin calibración, precio 0.5)
// 2. Apuesta pct% del capital actual (mínimo MinBet) a YES si p > umbral
// 3. Aplica el payout y registra el trade con el capital resultante
//
// El capital es compuesto: cada apuesta depende del resultado de la anterior,
// así que la fase de apply es siempre secuencial.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polysignal/internal/application/estimator"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
)

const defaultContextItems = 5

// Config contiene los parámetros del simulador.
type Config struct {
	MaxMarkets      int
	MinBet          float64
	Payout          domain.PayoutModel
	BetYesThreshold float64
	RiskLevel       domain.RiskLevel // usado si Params.RiskLevel está vacío
	EstimateWorkers int              // > 1 paraleliza solo las estimaciones
	SkipDegraded    bool             // saltar mercados cuyo estimador falló
	WithContext     bool             // pedir noticias para cada pregunta
	ContextItems    int
}

// DefaultConfig devuelve la configuración del modelo simplificado:
// 20 mercados, pago plano, YES si p > 0.5.
func DefaultConfig() Config {
	return Config{
		MaxMarkets:      domain.DefaultMaxMarkets,
		MinBet:          domain.DefaultMinBet,
		Payout:          domain.DefaultPayout(),
		BetYesThreshold: domain.DefaultBetYesThreshold,
		RiskLevel:       domain.RiskVeryHigh,
		EstimateWorkers: 1,
		ContextItems:    defaultContextItems,
	}
}

// Params son los parámetros de una ejecución concreta.
type Params struct {
	InitialCapital float64
	BetSizePercent float64
	RiskLevel      domain.RiskLevel
}

// Validate rechaza capital <= 0 y porcentajes fuera de (0, 100].
func (p Params) Validate() error {
	if !(p.InitialCapital > 0) {
		return domain.ErrInvalidCapital
	}
	if !(p.BetSizePercent > 0 && p.BetSizePercent <= 100) {
		return domain.ErrInvalidBetSize
	}
	return nil
}

// Simulator ejecuta backtests. No guarda estado entre runs: cada Run tiene
// su propio Ledger, así que puede usarse desde varias goroutines.
type Simulator struct {
	cfg       Config
	markets   ports.MarketProvider
	estimator *estimator.Estimator
	news      ports.ContextProvider // opcional
	now       func() time.Time
}

// New crea un Simulator. news puede ser nil.
func New(cfg Config, markets ports.MarketProvider, est *estimator.Estimator, news ports.ContextProvider) *Simulator {
	def := DefaultConfig()
	if cfg.MaxMarkets <= 0 {
		cfg.MaxMarkets = def.MaxMarkets
	}
	if cfg.MinBet <= 0 {
		cfg.MinBet = def.MinBet
	}
	if cfg.Payout == (domain.PayoutModel{}) {
		cfg.Payout = def.Payout
	}
	if cfg.BetYesThreshold <= 0 || cfg.BetYesThreshold >= 1 {
		cfg.BetYesThreshold = def.BetYesThreshold
	}
	if cfg.RiskLevel == "" {
		cfg.RiskLevel = def.RiskLevel
	}
	if cfg.EstimateWorkers <= 0 {
		cfg.EstimateWorkers = 1
	}
	if cfg.ContextItems <= 0 {
		cfg.ContextItems = def.ContextItems
	}
	return &Simulator{
		cfg:       cfg,
		markets:   markets,
		estimator: est,
		news:      news,
		now:       time.Now,
	}
}

// Run ejecuta un backtest completo.
// Sin mercados resueltos devuelve el report en StateNoData junto con
// domain.ErrNoData. Un fallo en un mercado se loguea y el mercado se salta.
func (s *Simulator) Run(ctx context.Context, p Params) (*domain.BacktestReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	// Un run empezado llega hasta el final aunque el caller cancele;
	// cada llamada externa conserva su propio timeout.
	ctx = context.WithoutCancel(ctx)
	if p.RiskLevel == "" {
		p.RiskLevel = s.cfg.RiskLevel
	}

	report := &domain.BacktestReport{
		RunID:          uuid.NewString(),
		StartedAt:      s.now(),
		State:          domain.StateIdle,
		RiskLevel:      p.RiskLevel,
		BetSizePercent: p.BetSizePercent,
	}

	markets, err := s.selectMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("backtest.Run: fetch markets: %w", err)
	}
	if len(markets) == 0 {
		report.State = domain.StateNoData
		report.Summary = domain.Summarize(p.InitialCapital, nil)
		slog.Warn("backtest has no resolved markets")
		return report, domain.ErrNoData
	}

	report.State = domain.StateRunning
	report.MarketsTested = len(markets)
	slog.Info("backtest starting",
		"run_id", report.RunID,
		"markets", len(markets),
		"initial_capital", p.InitialCapital,
		"bet_pct", p.BetSizePercent,
		"workers", s.cfg.EstimateWorkers,
	)

	estimates := s.estimateAll(ctx, markets)

	ledger := domain.NewLedger(p.InitialCapital)
	report.Trades = make([]domain.TradeRecord, 0, len(markets))
	for i, m := range markets {
		if estimates[i].err != nil {
			slog.Warn("backtest skipped market",
				"n", fmt.Sprintf("%d/%d", i+1, len(markets)),
				"question_id", m.QuestionID,
				"question", domain.Truncate(m.Question, 60),
				"err", estimates[i].err,
			)
			report.Skipped++
			continue
		}

		var trade domain.TradeRecord
		trade, ledger = s.apply(m, estimates[i].est, ledger, p)
		report.Trades = append(report.Trades, trade)

		slog.Debug("backtest trade",
			"n", fmt.Sprintf("%d/%d", i+1, len(markets)),
			"question_id", m.QuestionID,
			"estimate", trade.Estimate,
			"bet_on_yes", trade.BetOnYes,
			"correct", trade.Correct,
			"profit", trade.Profit,
			"capital", trade.CapitalAfter,
		)
	}

	report.Summary = domain.Summarize(p.InitialCapital, report.Trades)
	report.Insights = domain.Aggregate(report.Summary, report.Trades)
	report.State = domain.StateComplete

	slog.Info("backtest complete",
		"run_id", report.RunID,
		"bets", report.Summary.TotalBets,
		"skipped", report.Skipped,
		"accuracy", fmt.Sprintf("%.1f%%", report.Summary.Accuracy),
		"roi", fmt.Sprintf("%.1f%%", report.Summary.ROI),
		"final_capital", fmt.Sprintf("%.2f", report.Summary.FinalCapital),
	)
	return report, nil
}

// ResolvedMarkets devuelve los mercados resueltos, el más reciente primero.
func (s *Simulator) ResolvedMarkets(ctx context.Context) ([]domain.MarketRecord, error) {
	all, err := s.markets.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	resolved := domain.ResolvedOnly(all)
	domain.SortMostRecentFirst(resolved)
	return resolved, nil
}

func (s *Simulator) selectMarkets(ctx context.Context) ([]domain.MarketRecord, error) {
	resolved, err := s.ResolvedMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if len(resolved) > s.cfg.MaxMarkets {
		resolved = resolved[:s.cfg.MaxMarkets]
	}
	return resolved, nil
}

// apply calcula la apuesta sobre el ledger actual y devuelve el trade y el
// ledger siguiente.
func (s *Simulator) apply(m domain.MarketRecord, est domain.ProbabilityEstimate, ledger domain.Ledger, p Params) (domain.TradeRecord, domain.Ledger) {
	bet := ledger.BetAmount(p.BetSizePercent, s.cfg.MinBet)
	betOnYes := est.Probability > s.cfg.BetYesThreshold
	winner := m.Winner()
	correct := betCorrect(betOnYes, winner)
	profit := s.cfg.Payout.Profit(bet, correct)
	next := ledger.Apply(profit)

	return domain.TradeRecord{
		ID:               uuid.NewString(),
		QuestionID:       m.QuestionID,
		Question:         m.Question,
		Estimate:         est.Probability,
		EstimateStatus:   est.Status,
		Reason:           est.Reason,
		Direction:        domain.Decide(est.Probability, domain.BacktestMarketPrice, p.RiskLevel),
		BetOnYes:         betOnYes,
		ActualWinner:     winner,
		ActualWinnerName: m.WinnerName(),
		Correct:          correct,
		BetAmount:        bet,
		Profit:           profit,
		CapitalAfter:     next.Capital,
		Timestamp:        s.now(),
	}, next
}

// betCorrect: acierta si apostó YES y ganó YES, o apostó NO y ganó cualquier otro outcome.
func betCorrect(betOnYes bool, winner int) bool {
	if betOnYes {
		return winner == domain.YesIndex
	}
	return winner != domain.YesIndex
}

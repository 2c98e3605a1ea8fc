package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alejandrodnm/polysignal/internal/application/backtest"
	"github.com/alejandrodnm/polysignal/internal/application/estimator"
	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
)

const (
	defaultCapital      = 100.0
	defaultBetSizePct   = 5.0
	defaultContextItems = 10
)

// BacktestRunner es la interfaz mínima que el engine necesita del simulador.
// Desacopla Service de *backtest.Simulator concreto.
type BacktestRunner interface {
	Run(ctx context.Context, p backtest.Params) (*domain.BacktestReport, error)
	ResolvedMarkets(ctx context.Context) ([]domain.MarketRecord, error)
}

// Config contiene los defaults del engine.
type Config struct {
	// Capital y tamaño de apuesta del backtest que se lanza con IncludeBacktest.
	InitialCapital float64
	BetSizePercent float64
	ContextItems   int
}

// SignalRequest es una petición de señal en vivo.
type SignalRequest struct {
	Question        string
	RiskLevel       domain.RiskLevel
	MarketPrice     float64
	IncludeBacktest bool
}

// Validate rechaza preguntas vacías y precios fuera de [0,1].
func (r SignalRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return domain.ErrMissingQuestion
	}
	if math.IsNaN(r.MarketPrice) || r.MarketPrice < 0 || r.MarketPrice > 1 {
		return domain.ErrInvalidMarketPrice
	}
	return nil
}

// SignalResult es la señal más cómo se obtuvo.
type SignalResult struct {
	Signal domain.Signal
	Status domain.EstimateStatus
	Cause  string // solo si Status == StatusDegraded

	// BacktestUsed es true si la calibración de un backtest llegó al prompt.
	BacktestUsed bool
	Backtest     *domain.BacktestSummary
	Insights     *domain.Insights
}

// Degraded devuelve true si la señal sale del fallback neutral.
func (r SignalResult) Degraded() bool {
	return r.Status == domain.StatusDegraded
}

// Service orquesta estimador, backtest y archivo de runs.
type Service struct {
	cfg       Config
	estimator *estimator.Estimator
	backtests BacktestRunner
	news      ports.ContextProvider // opcional
	storage   ports.RunStorage      // opcional
	now       func() time.Time
}

// New crea un Service. news y storage pueden ser nil.
func New(
	cfg Config,
	est *estimator.Estimator,
	backtests BacktestRunner,
	news ports.ContextProvider,
	storage ports.RunStorage,
) *Service {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = defaultCapital
	}
	if cfg.BetSizePercent <= 0 || cfg.BetSizePercent > 100 {
		cfg.BetSizePercent = defaultBetSizePct
	}
	if cfg.ContextItems <= 0 {
		cfg.ContextItems = defaultContextItems
	}
	return &Service{
		cfg:       cfg,
		estimator: est,
		backtests: backtests,
		news:      news,
		storage:   storage,
		now:       time.Now,
	}
}

// GenerateSignal estima la pregunta y aplica la política de decisión.
//
// Solo devuelve error si la petición es inválida. Fallos del contexto, del
// backtest o del estimador degradan el resultado pero no lo abortan.
// Con IncludeBacktest se lanza un backtest nuevo cuya calibración se usa
// solo en esta petición.
func (s *Service) GenerateSignal(ctx context.Context, req SignalRequest) (SignalResult, error) {
	if err := req.Validate(); err != nil {
		return SignalResult{}, err
	}
	if req.RiskLevel == "" {
		req.RiskLevel = domain.RiskVeryHigh
	}

	var result SignalResult
	calibration := ""
	if req.IncludeBacktest {
		report, err := s.backtests.Run(ctx, backtest.Params{
			InitialCapital: s.cfg.InitialCapital,
			BetSizePercent: s.cfg.BetSizePercent,
			RiskLevel:      req.RiskLevel,
		})
		switch {
		case err != nil:
			slog.Warn("calibration backtest failed, continuing without it", "err", err)
		default:
			s.archive(ctx, report)
			summary, insights := report.Summary, report.Insights
			result.Backtest = &summary
			result.Insights = &insights
			calibration = domain.FormatCalibration(insights)
			result.BacktestUsed = calibration != ""
		}
	}

	est := s.estimator.Estimate(ctx, estimator.Request{
		Question:     req.Question,
		ContextLines: s.fetchContext(ctx, req.Question),
		Mode:         estimator.ModeCalibrated,
		Calibration:  calibration,
	})

	result.Signal = domain.NewSignal(est, req.MarketPrice, req.RiskLevel, s.now())
	result.Status = est.Status
	result.Cause = est.Cause

	slog.Info("signal generated",
		"question", domain.Truncate(req.Question, 60),
		"direction", result.Signal.Direction,
		"confidence", fmt.Sprintf("%.2f", result.Signal.Confidence),
		"market_price", req.MarketPrice,
		"risk", req.RiskLevel,
		"status", est.Status,
		"backtest_used", result.BacktestUsed,
	)
	return result, nil
}

// RunBacktest ejecuta un backtest con los parámetros del caller y lo archiva
// si hay storage configurado.
func (s *Service) RunBacktest(ctx context.Context, initialCapital, betSizePercent float64) (*domain.BacktestReport, error) {
	report, err := s.backtests.Run(ctx, backtest.Params{
		InitialCapital: initialCapital,
		BetSizePercent: betSizePercent,
	})
	if err != nil {
		if domain.IsValidation(err) || errors.Is(err, domain.ErrNoData) {
			return report, err
		}
		return nil, fmt.Errorf("engine.RunBacktest: %w", err)
	}
	s.archive(ctx, report)
	return report, nil
}

// ListResolvedMarkets devuelve los mercados resueltos, el más reciente primero.
func (s *Service) ListResolvedMarkets(ctx context.Context) ([]domain.MarketRecord, error) {
	markets, err := s.backtests.ResolvedMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.ListResolvedMarkets: %w", err)
	}
	return markets, nil
}

// ListRuns devuelve los últimos backtests archivados. Sin storage, vacío.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.storage == nil {
		return nil, nil
	}
	runs, err := s.storage.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("engine.ListRuns: %w", err)
	}
	return runs, nil
}

func (s *Service) fetchContext(ctx context.Context, question string) []string {
	if s.news == nil {
		return nil
	}
	lines, err := s.news.FetchContext(ctx, question, s.cfg.ContextItems)
	if err != nil {
		slog.Warn("context fetch failed, estimating without context", "err", err)
		return nil
	}
	return lines
}

func (s *Service) archive(ctx context.Context, report *domain.BacktestReport) {
	if s.storage == nil || report == nil {
		return
	}
	if err := s.storage.SaveRun(ctx, report); err != nil {
		slog.Warn("storage error", "run_id", report.RunID, "err", err)
	}
}

package domain

import (
	"math"
	"time"
)

const (
	// DefaultBetYesThreshold: se apuesta YES si la probabilidad lo supera.
	DefaultBetYesThreshold = 0.5
	// DefaultMinBet es la apuesta mínima aunque el capital sea 0.
	DefaultMinBet = 1.0
	// DefaultMaxMarkets es cuántos mercados resueltos recientes se reproducen.
	DefaultMaxMarkets = 20
	// BacktestMarketPrice es el precio neutral con el que se evalúa la política en modo ciego.
	BacktestMarketPrice = 0.5
)

// BacktestState es el estado de una ejecución del simulador.
type BacktestState string

const (
	StateIdle     BacktestState = "idle"
	StateRunning  BacktestState = "running"
	StateComplete BacktestState = "complete"
	StateNoData   BacktestState = "no_data"
)

// PayoutModel define cuánto se gana o pierde por apuesta.
// El modelo por defecto es simplificado (pago plano 100%) y no usa odds de mercado.
type PayoutModel struct {
	WinMultiplier float64 // profit = bet × WinMultiplier
	LossFraction  float64 // pérdida = bet × LossFraction
}

// DefaultPayout es el pago plano: +bet si acierta, -bet si falla.
func DefaultPayout() PayoutModel {
	return PayoutModel{WinMultiplier: 1.0, LossFraction: 1.0}
}

// Profit devuelve el P&L de una apuesta de betAmount.
func (p PayoutModel) Profit(betAmount float64, correct bool) float64 {
	if correct {
		return betAmount * p.WinMultiplier
	}
	return -betAmount * p.LossFraction
}

// Ledger es el capital de una ejecución del backtest. Cada run tiene el suyo,
// se pasa por valor entre pasos.
type Ledger struct {
	Initial float64
	Capital float64
}

// NewLedger crea un ledger con el capital inicial.
func NewLedger(initial float64) Ledger {
	return Ledger{Initial: initial, Capital: initial}
}

// BetAmount calcula la apuesta: pct% del capital actual, con suelo minBet.
func (l Ledger) BetAmount(betSizePercent, minBet float64) float64 {
	return math.Max(minBet, l.Capital*betSizePercent/100)
}

// Apply devuelve el ledger tras sumar profit.
func (l Ledger) Apply(profit float64) Ledger {
	l.Capital += profit
	return l
}

// BacktestSummary son los contadores agregados de un backtest.
type BacktestSummary struct {
	TotalBets      int
	WinningBets    int
	Accuracy       float64 // porcentaje 0–100
	InitialCapital float64
	FinalCapital   float64
	TotalProfit    float64
	ROI            float64 // porcentaje
}

// LosingBets devuelve las apuestas perdidas.
func (s BacktestSummary) LosingBets() int {
	return s.TotalBets - s.WinningBets
}

// Summarize calcula el resumen a partir de la secuencia de trades.
// finalCapital = initial + Σprofit; accuracy = 0 sin apuestas.
func Summarize(initialCapital float64, trades []TradeRecord) BacktestSummary {
	s := BacktestSummary{
		TotalBets:      len(trades),
		InitialCapital: initialCapital,
	}
	for _, t := range trades {
		if t.Correct {
			s.WinningBets++
		}
		s.TotalProfit += t.Profit
	}
	s.FinalCapital = initialCapital + s.TotalProfit
	s.Accuracy = pct(s.WinningBets, s.TotalBets)
	if initialCapital > 0 {
		s.ROI = (s.FinalCapital - initialCapital) / initialCapital * 100
	}
	return s
}

// BacktestReport agrupa todo lo producido por una ejecución.
type BacktestReport struct {
	RunID          string
	StartedAt      time.Time
	State          BacktestState
	RiskLevel      RiskLevel
	BetSizePercent float64
	MarketsTested  int // mercados resueltos reproducidos (incluye los saltados)
	Skipped        int
	Summary        BacktestSummary
	Trades         []TradeRecord
	Insights       Insights
}

// RunRecord es una fila del archivo de backtests.
type RunRecord struct {
	ID             string
	CreatedAt      time.Time
	RiskLevel      RiskLevel
	BetSizePercent float64
	Skipped        int
	Summary        BacktestSummary
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

package domain

import "time"

// TradeRecord es una apuesta simulada del backtest, una por mercado.
// Se crean en orden de replay y no se modifican después.
type TradeRecord struct {
	ID               string
	QuestionID       string
	Question         string
	Estimate         float64        // probabilidad YES del estimador (ciego)
	EstimateStatus   EstimateStatus // de dónde salió la probabilidad
	Reason           string
	Direction        Direction // política evaluada a precio neutral, informativa
	BetOnYes         bool
	ActualWinner     int
	ActualWinnerName string
	Correct          bool
	BetAmount        float64
	Profit           float64 // > 0 ganada, < 0 perdida
	CapitalAfter     float64
	Timestamp        time.Time
}

// CapitalBefore devuelve el capital previo a esta apuesta.
func (t TradeRecord) CapitalBefore() float64 {
	return t.CapitalAfter - t.Profit
}

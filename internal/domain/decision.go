package domain

import (
	"strings"
	"time"
)

// Direction es la acción recomendada para un mercado.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// RiskLevel selecciona el par de umbrales de la política de decisión.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very-high"
)

// Threshold es el par (buy, sell) de un nivel de riesgo.
type Threshold struct {
	Buy  float64
	Sell float64
}

// riskThresholds es la tabla de la política. Los valores no son óptimos
// calculados, son parámetros ajustables.
var riskThresholds = map[RiskLevel]Threshold{
	RiskLow:      {Buy: 0.80, Sell: 0.40},
	RiskMedium:   {Buy: 0.70, Sell: 0.30},
	RiskHigh:     {Buy: 0.60, Sell: 0.40},
	RiskVeryHigh: {Buy: 0.55, Sell: 0.45},
}

// ParseRiskLevel normaliza el nivel de riesgo recibido del caller.
// Acepta los alias de la UI (conservative/moderate/aggressive).
// Cualquier otro valor cae en RiskVeryHigh.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "conservative":
		return RiskLow
	case "medium", "moderate":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// Thresholds devuelve los umbrales del nivel dado (very-high si no se reconoce).
func Thresholds(risk RiskLevel) Threshold {
	if t, ok := riskThresholds[risk]; ok {
		return t
	}
	return riskThresholds[RiskVeryHigh]
}

// Decide aplica la política: BUY si p supera el umbral de compra y el precio,
// SELL si p está bajo el umbral de venta y el NO cotiza por encima de p,
// HOLD en otro caso. Desigualdades estrictas: los empates caen en HOLD.
func Decide(probability, marketPrice float64, risk RiskLevel) Direction {
	t := Thresholds(risk)
	switch {
	case probability > t.Buy && probability > marketPrice:
		return DirectionBuy
	case probability < t.Sell && (1-marketPrice) > probability:
		return DirectionSell
	default:
		return DirectionHold
	}
}

// Signal es la salida accionable del engine para una pregunta en vivo.
type Signal struct {
	Direction   Direction
	Confidence  float64 // = probabilidad estimada de YES
	Reason      string
	MarketPrice float64
	RiskLevel   RiskLevel
	Timestamp   time.Time
}

// NewSignal aplica la política a una estimación y construye la Signal.
func NewSignal(est ProbabilityEstimate, marketPrice float64, risk RiskLevel, now time.Time) Signal {
	return Signal{
		Direction:   Decide(est.Probability, marketPrice, risk),
		Confidence:  est.Probability,
		Reason:      est.Reason,
		MarketPrice: marketPrice,
		RiskLevel:   risk,
		Timestamp:   now,
	}
}

package domain

import "math"

const (
	// NeutralProbability se usa cuando no hay una estimación válida.
	NeutralProbability = 0.5
	// MaxReasonLen limita el texto de reason que viaja en Signal y TradeRecord.
	MaxReasonLen = 300
	// FallbackReason es el reason fijo cuando la respuesta no se pudo interpretar.
	FallbackReason = "Parsing failed, neutral stance."
)

// EstimateStatus indica de dónde salió la probabilidad.
type EstimateStatus string

const (
	// StatusStructured: objeto JSON válido en la respuesta.
	StatusStructured EstimateStatus = "structured"
	// StatusHeuristic: número extraído del texto libre (parse de baja confianza).
	StatusHeuristic EstimateStatus = "heuristic"
	// StatusDefault: no se encontró ningún número, 0.5 por defecto.
	StatusDefault EstimateStatus = "default"
	// StatusDegraded: el servicio externo falló, 0.5 neutral.
	StatusDegraded EstimateStatus = "degraded"
)

// ProbabilityEstimate es el resultado normalizado de una llamada al estimador.
type ProbabilityEstimate struct {
	Probability float64
	Reason      string
	Status      EstimateStatus
	Cause       string // solo cuando Status == StatusDegraded
}

// Degraded devuelve true si la estimación es un fallback por fallo del servicio.
func (e ProbabilityEstimate) Degraded() bool {
	return e.Status == StatusDegraded
}

// LowConfidenceParse devuelve true si la probabilidad no vino de un objeto estructurado.
func (e ProbabilityEstimate) LowConfidenceParse() bool {
	return e.Status != StatusStructured
}

// NewEstimate construye una estimación con la probabilidad acotada a [0,1]
// y el reason truncado a MaxReasonLen.
func NewEstimate(p float64, reason string, status EstimateStatus) ProbabilityEstimate {
	return ProbabilityEstimate{
		Probability: ClampProbability(p),
		Reason:      Truncate(reason, MaxReasonLen),
		Status:      status,
	}
}

// NeutralEstimate es la estimación 0.5 usada en los caminos de fallback.
func NeutralEstimate(reason string, status EstimateStatus) ProbabilityEstimate {
	return NewEstimate(NeutralProbability, reason, status)
}

// ClampProbability acota p a [0,1]. NaN se trata como neutral.
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return NeutralProbability
	}
	return math.Max(0, math.Min(1, p))
}

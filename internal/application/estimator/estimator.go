package estimator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/alejandrodnm/polysignal/internal/ports"
)

// maxCauseLen limita el texto del error que se incrusta en el reason degradado.
const maxCauseLen = 120

// Mode decide si el bloque de calibración llega al servicio.
type Mode int

const (
	// ModeBlind descarta la calibración. Lo usa el backtest: un run no puede
	// puntuarse con estadísticas sacadas de sí mismo.
	ModeBlind Mode = iota
	// ModeCalibrated pasa la calibración tal cual.
	ModeCalibrated
)

func (m Mode) String() string {
	if m == ModeCalibrated {
		return "calibrated"
	}
	return "blind"
}

// Request es una llamada al estimador.
type Request struct {
	Question     string
	ContextLines []string
	Mode         Mode
	Calibration  string
}

// Estimator envuelve el ProbabilityService y normaliza su salida.
type Estimator struct {
	service ports.ProbabilityService
}

// New crea un Estimator sobre el servicio dado.
func New(service ports.ProbabilityService) *Estimator {
	return &Estimator{service: service}
}

// Estimate nunca devuelve error: si el servicio falla, la estimación sale
// neutral con StatusDegraded y la causa en Cause.
func (e *Estimator) Estimate(ctx context.Context, req Request) domain.ProbabilityEstimate {
	calibration := ""
	if req.Mode == ModeCalibrated {
		calibration = req.Calibration
	}

	raw, err := e.service.EstimateProbability(ctx, req.Question, req.ContextLines, calibration)
	if err != nil {
		cause := domain.Truncate(err.Error(), maxCauseLen)
		slog.Warn("probability service failed, using neutral estimate",
			"question", domain.Truncate(req.Question, 60),
			"mode", req.Mode,
			"err", err,
		)
		est := domain.NeutralEstimate(fmt.Sprintf("Estimator unavailable (%s), neutral stance.", cause), domain.StatusDegraded)
		est.Cause = cause
		return est
	}

	est := ParseReply(raw)
	if est.LowConfidenceParse() {
		slog.Debug("estimator reply without structured object",
			"status", est.Status,
			"raw", domain.Truncate(raw, 200),
		)
	}
	return est
}

package ports

import "context"

// ProbabilityService es el servicio externo de estimación (un LLM).
// Devuelve el texto crudo de la respuesta; el parseo lo hace el estimador.
type ProbabilityService interface {
	// EstimateProbability recibe la pregunta, las líneas de contexto y un
	// bloque de calibración opcional ("" = sin calibración). Se espera que la
	// respuesta contenga un objeto {"yes_probability": float, "reason": string}.
	EstimateProbability(ctx context.Context, question string, contextLines []string, calibration string) (string, error)
}

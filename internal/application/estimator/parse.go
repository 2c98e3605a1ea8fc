package estimator

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/alejandrodnm/polysignal/internal/domain"
)

const (
	maxSentenceLen = 100
	noReason       = "No reason provided."
)

var (
	percentRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	decimalRe  = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)
	sentenceRe = regexp.MustCompile(`^(.*?[.!?])(\s|$)`)
)

type structuredReply struct {
	YesProbability *float64 `json:"yes_probability"`
	Reason         string   `json:"reason"`
}

// ParseReply convierte la respuesta cruda del servicio en una estimación.
//
// Primero busca un objeto JSON con yes_probability numérico (StatusStructured).
// Si no hay, extrae un número del texto: porcentaje o decimal, y los
// decimales > 1 se interpretan como porcentaje (StatusHeuristic). Sin ningún
// número devuelve 0.5 con FallbackReason (StatusDefault).
func ParseReply(raw string) domain.ProbabilityEstimate {
	if est, ok := parseStructured(raw); ok {
		return est
	}
	return parseHeuristic(raw)
}

// parseStructured prueba a decodificar un objeto desde cada '{' del texto.
// Los modelos suelen envolver el JSON en prosa o en bloques ```json.
func parseStructured(raw string) (domain.ProbabilityEstimate, bool) {
	for i := strings.IndexByte(raw, '{'); i >= 0; {
		var reply structuredReply
		dec := json.NewDecoder(strings.NewReader(raw[i:]))
		if err := dec.Decode(&reply); err == nil && reply.YesProbability != nil {
			reason := strings.TrimSpace(reply.Reason)
			if reason == "" {
				reason = noReason
			}
			return domain.NewEstimate(*reply.YesProbability, reason, domain.StatusStructured), true
		}

		next := strings.IndexByte(raw[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return domain.ProbabilityEstimate{}, false
}

func parseHeuristic(raw string) domain.ProbabilityEstimate {
	p, ok := extractNumber(raw)
	if !ok {
		return domain.NeutralEstimate(domain.FallbackReason, domain.StatusDefault)
	}
	reason := firstSentence(raw)
	if reason == "" {
		reason = noReason
	}
	return domain.NewEstimate(p, reason, domain.StatusHeuristic)
}

func extractNumber(raw string) (float64, bool) {
	if m := percentRe.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v / 100, true
		}
	}
	if m := decimalRe.FindString(raw); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			if v > 1 {
				v /= 100
			}
			return v, true
		}
	}
	return 0, false
}

// firstSentence devuelve la primera frase del texto, como mucho 100 caracteres.
func firstSentence(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	if m := sentenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	return domain.Truncate(text, maxSentenceLen)
}

package domain

import (
	"fmt"
	"strings"
)

// MaxCalibrationLen acota el bloque que se inyecta en el prompt.
const MaxCalibrationLen = 1000

// FormatCalibration renderiza los insights como bloque de calibración para
// la siguiente estimación en vivo. Devuelve "" si no hay apuestas.
// El texto fijo no contiene ninguna palabra de TopicKeywords: una keyword
// solo aparece si pasó el mínimo de muestras.
func FormatCalibration(in Insights) string {
	if in.Empty() {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "HISTORICAL PERFORMANCE (backtest over %d resolved questions):\n", in.TotalBets)
	fmt.Fprintf(&sb, "- Overall accuracy: %.1f%% | ROI: %.1f%%\n", in.Accuracy, in.ROI)

	if in.Recent.Samples > 0 {
		fmt.Fprintf(&sb, "- Recent form (last %d): %.1f%% accuracy\n", in.Recent.Samples, in.Recent.Accuracy)
	}
	if in.HighConfidence.Presentable() {
		fmt.Fprintf(&sb, "- High-confidence calls (>=%.0f%%): %.1f%% accuracy over %d samples\n",
			HighConfidenceFloor*100, in.HighConfidence.Accuracy, in.HighConfidence.Samples)
	}
	for _, t := range in.TopTopics() {
		fmt.Fprintf(&sb, "- Topic %q: %.1f%% accuracy over %d samples\n", t.Keyword, t.Accuracy, t.Samples)
	}

	sb.WriteString("Use this past calibration to adjust your confidence: be more cautious where accuracy was low and do not overstate certainty.")
	return Truncate(sb.String(), MaxCalibrationLen)
}

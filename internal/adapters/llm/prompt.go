package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a market prediction AI agent."

// BuildPrompt arma el prompt de usuario. El bloque de calibración solo se
// incluye si no está vacío.
func BuildPrompt(question string, contextLines []string, calibration string) string {
	var sb strings.Builder
	sb.WriteString(`Follow these steps carefully:
1. Read the question carefully.
2. Analyze the context lines to see whether most signals are positive (bullish) or negative (bearish) toward the event happening.
3. Consider mixed signals as neutral.
4. Assign a confidence score (0-1) for the event being TRUE, following this scale:
   - 0.9-1.0 -> very strong positive evidence
   - 0.7-0.9 -> moderate positive evidence
   - 0.4-0.7 -> neutral/mixed signals
   - 0.1-0.4 -> moderate negative evidence
   - 0.0-0.1 -> strong negative evidence
5. Base this confidence only on the provided context, not outside knowledge.
6. Return your reasoning and the final confidence in JSON strictly as:
{
  "yes_probability": float,
  "reason": "short explanation of key signals"
}
`)

	if calibration = strings.TrimSpace(calibration); calibration != "" {
		sb.WriteString("\n")
		sb.WriteString(calibration)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\nContext:\n", question)
	if len(contextLines) == 0 {
		sb.WriteString("- (no recent context available)\n")
	}
	for _, line := range contextLines {
		fmt.Fprintf(&sb, "- %s\n", line)
	}
	return sb.String()
}

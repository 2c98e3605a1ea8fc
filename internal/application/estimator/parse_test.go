package estimator

import (
	"strings"
	"testing"

	"github.com/alejandrodnm/polysignal/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantP      float64
		wantStatus domain.EstimateStatus
		wantReason string
	}{
		{
			name:       "plain json",
			raw:        `{"yes_probability": 0.8, "reason": "Strong ETF inflows"}`,
			wantP:      0.8,
			wantStatus: domain.StatusStructured,
			wantReason: "Strong ETF inflows",
		},
		{
			name:       "json wrapped in prose and fences",
			raw:        "Here is my answer:\n```json\n{\"yes_probability\": 0.35, \"reason\": \"Mixed news\"}\n```",
			wantP:      0.35,
			wantStatus: domain.StatusStructured,
			wantReason: "Mixed news",
		},
		{
			name:       "json above one is clamped",
			raw:        `{"yes_probability": 1.4, "reason": "overconfident"}`,
			wantP:      1.0,
			wantStatus: domain.StatusStructured,
			wantReason: "overconfident",
		},
		{
			name:       "negative json is clamped",
			raw:        `{"yes_probability": -0.2, "reason": "nope"}`,
			wantP:      0.0,
			wantStatus: domain.StatusStructured,
			wantReason: "nope",
		},
		{
			name:       "skips a brace that is not the object",
			raw:        `Using {context} I return {"yes_probability": 0.6, "reason": "ok"}`,
			wantP:      0.6,
			wantStatus: domain.StatusStructured,
			wantReason: "ok",
		},
		{
			name:       "missing reason",
			raw:        `{"yes_probability": 0.55}`,
			wantP:      0.55,
			wantStatus: domain.StatusStructured,
			wantReason: noReason,
		},
		{
			name:       "percentage in free text",
			raw:        "I think it's about 72% likely. The news is positive.",
			wantP:      0.72,
			wantStatus: domain.StatusHeuristic,
			wantReason: "I think it's about 72% likely.",
		},
		{
			name:       "decimal in free text",
			raw:        "Probability 0.64 given the momentum",
			wantP:      0.64,
			wantStatus: domain.StatusHeuristic,
			wantReason: "Probability 0.64 given the momentum",
		},
		{
			name:       "decimal above one treated as percent",
			raw:        "My estimate is 65 out of a hundred.",
			wantP:      0.65,
			wantStatus: domain.StatusHeuristic,
			wantReason: "My estimate is 65 out of a hundred.",
		},
		{
			name:       "string probability falls back to heuristic",
			raw:        `{"yes_probability": "0.7", "reason": "quoted"}`,
			wantP:      0.7,
			wantStatus: domain.StatusHeuristic,
		},
		{
			name:       "no number at all",
			raw:        "I cannot determine this.",
			wantP:      0.5,
			wantStatus: domain.StatusDefault,
			wantReason: domain.FallbackReason,
		},
		{
			name:       "empty reply",
			raw:        "",
			wantP:      0.5,
			wantStatus: domain.StatusDefault,
			wantReason: domain.FallbackReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReply(tt.raw)
			assert.InDelta(t, tt.wantP, got.Probability, 1e-9)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, got.Reason)
			}
			assert.GreaterOrEqual(t, got.Probability, 0.0)
			assert.LessOrEqual(t, got.Probability, 1.0)
		})
	}
}

func TestParseReply_HeuristicReasonTruncated(t *testing.T) {
	long := "The outlook is around 40% because " + strings.Repeat("very ", 40) + "uncertain"
	got := ParseReply(long)

	assert.Equal(t, domain.StatusHeuristic, got.Status)
	assert.True(t, got.LowConfidenceParse())
	assert.LessOrEqual(t, len([]rune(got.Reason)), maxSentenceLen)
	assert.Contains(t, got.Reason, "...")
}

func TestParseReply_StructuredReasonBounded(t *testing.T) {
	raw := `{"yes_probability": 0.5, "reason": "` + strings.Repeat("x", 500) + `"}`
	got := ParseReply(raw)
	assert.LessOrEqual(t, len([]rune(got.Reason)), domain.MaxReasonLen)
}

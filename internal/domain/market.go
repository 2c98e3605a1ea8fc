package domain

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"
)

// YesIndex es el índice convencional del outcome "Yes" en OutcomeNames.
const YesIndex = 0

// MarketRecord representa una pregunta binaria del indexer y su resolución.
// Es de solo lectura para todo el engine.
type MarketRecord struct {
	QuestionID   string
	Question     string
	OutcomeNames []string // índice 0 = "Yes" por convención
	// WinningOutcome es nil hasta que el mercado se resuelve.
	WinningOutcome *int
	EndTime        time.Time
}

// Resolved devuelve true si el mercado ya tiene outcome ganador.
func (m MarketRecord) Resolved() bool {
	return m.WinningOutcome != nil
}

// Winner devuelve el índice ganador, o -1 si no está resuelto.
func (m MarketRecord) Winner() int {
	if m.WinningOutcome == nil {
		return -1
	}
	return *m.WinningOutcome
}

// WinnerName devuelve el nombre del outcome ganador.
// Si el índice no tiene nombre se usa "Outcome N".
func (m MarketRecord) WinnerName() string {
	w := m.Winner()
	if w < 0 {
		return ""
	}
	if w < len(m.OutcomeNames) && m.OutcomeNames[w] != "" {
		return m.OutcomeNames[w]
	}
	return fmt.Sprintf("Outcome %d", w)
}

// Validate comprueba que el índice ganador esté dentro de OutcomeNames.
func (m MarketRecord) Validate() error {
	if m.QuestionID == "" {
		return fmt.Errorf("market: missing question id")
	}
	if m.WinningOutcome == nil {
		return nil
	}
	w := *m.WinningOutcome
	if w < 0 || w >= len(m.OutcomeNames) {
		return fmt.Errorf("market %s: winning outcome %d out of range [0,%d)", m.QuestionID, w, len(m.OutcomeNames))
	}
	return nil
}

// ResolvedOnly filtra los mercados que ya tienen outcome ganador.
func ResolvedOnly(markets []MarketRecord) []MarketRecord {
	out := make([]MarketRecord, 0, len(markets))
	for _, m := range markets {
		if m.Resolved() {
			out = append(out, m)
		}
	}
	return out
}

// SortMostRecentFirst ordena por EndTime descendente. Empates por QuestionID desc
// para que el orden sea determinista entre ejecuciones.
func SortMostRecentFirst(markets []MarketRecord) {
	sort.SliceStable(markets, func(i, j int) bool {
		if !markets[i].EndTime.Equal(markets[j].EndTime) {
			return markets[i].EndTime.After(markets[j].EndTime)
		}
		return markets[i].QuestionID > markets[j].QuestionID
	})
}

// Truncate recorta s a maxLen caracteres (runes) añadiendo "..." si es necesario.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

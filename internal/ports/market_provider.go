package ports

import (
	"context"

	"github.com/alejandrodnm/polysignal/internal/domain"
)

// MarketProvider obtiene el histórico de mercados del indexer.
type MarketProvider interface {
	// FetchMarkets devuelve las preguntas más recientes unidas con sus
	// resoluciones por questionId. Los mercados sin resolver tienen
	// WinningOutcome nil.
	FetchMarkets(ctx context.Context) ([]domain.MarketRecord, error)
}

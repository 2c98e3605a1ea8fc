package ports

import (
	"context"

	"github.com/alejandrodnm/polysignal/internal/domain"
)

// Notifier presenta los resultados al usuario.
type Notifier interface {
	// NotifySignal muestra una señal generada.
	NotifySignal(ctx context.Context, sig domain.Signal, status domain.EstimateStatus) error

	// NotifyBacktest muestra el resumen, los trades y los insights de un backtest.
	NotifyBacktest(ctx context.Context, report *domain.BacktestReport) error
}

package ports

import (
	"context"

	"github.com/alejandrodnm/polysignal/internal/domain"
)

// RunStorage archiva los backtests ejecutados. Es solo de auditoría:
// el estimador nunca lee de aquí.
type RunStorage interface {
	// SaveRun persiste el resumen y los trades de un backtest.
	SaveRun(ctx context.Context, report *domain.BacktestReport) error

	// ListRuns devuelve los últimos limit runs, el más reciente primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// Storage persiste los runs de backtest y sus resultados.
type Storage interface {
	// SaveRun persiste el run completo (métricas + trades) y devuelve
	// su ID. Si run.ID está vacío el storage genera uno.
	SaveRun(ctx context.Context, run *domain.BacktestRun) (string, error)

	// History devuelve los resúmenes de runs ejecutados en el rango dado.
	History(ctx context.Context, from, to time.Time) ([]domain.RunSummary, error)

	// Close cierra la conexión limpiamente.
	Close() error
}

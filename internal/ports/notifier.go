package ports

import (
	"context"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// Notifier presenta el resultado de un run al usuario.
type Notifier interface {
	// Report muestra las métricas y los trades del run.
	// En la implementación de consola, imprime una tabla formateada.
	Report(ctx context.Context, run *domain.BacktestRun) error
}

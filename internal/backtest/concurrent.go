package backtest

// concurrent.go — resolución de salidas en paralelo.
//
// Resolve es stateless por trade, así que un worker pool puede repartir
// el trabajo sin locks. La pasada de equity del runner sigue siendo
// estrictamente secuencial: aquí solo se paraleliza el lookup + pricing,
// conservando el orden original de los trades en la salida.

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// resolveConcurrent resuelve los trades con cfg.Workers workers y
// devuelve los resultados en el orden original de entrada.
func (r *Runner) resolveConcurrent(ctx context.Context, trades []domain.Trade) ([]domain.TradeResult, int, error) {
	type slot struct {
		res domain.TradeResult
		ok  bool
	}
	slots := make([]slot, len(trades))
	indexCh := make(chan int, len(trades))

	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				if ctx.Err() != nil {
					return
				}
				res, err := r.sim.Resolve(trades[i])
				if err != nil {
					continue // queda como skip por datos
				}
				slots[i] = slot{res: res, ok: true}
			}
		}()
	}

	for i := range trades {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("backtest.resolveConcurrent: %w", err)
	}

	results := make([]domain.TradeResult, 0, len(trades))
	noData := 0
	for _, s := range slots {
		if s.ok {
			results = append(results, s.res)
		} else {
			noData++
		}
	}
	return results, noData, nil
}

package risk

// sizing.go — position sizing por riesgo fijo con cap de posición.
//
// La cantidad sale del mínimo entre dos límites:
//   - riesgo:   (capital × risk_per_trade) / precio
//   - posición: (capital × max_position_pct) / precio
// escalado por confianza (0.5x a 1x) y acotado por el máximo absoluto
// de contratos. Para primas cercanas a cero se usa un suelo de pricing
// que evita cantidades absurdas.

import "fmt"

// MinPricingThreshold es el precio mínimo usado para los cálculos de sizing.
const MinPricingThreshold = 0.10

// PositionSizer convierte (precio de entrada, confianza) en nº de contratos.
// La configuración es de solo lectura; SizePosition es una función pura.
type PositionSizer struct {
	capital              float64
	riskPerTrade         float64
	maxPositionPct       float64
	absoluteMaxContracts int
}

// NewPositionSizer valida la configuración de riesgo y construye el sizer.
func NewPositionSizer(capital, riskPerTrade, maxPositionPct float64, absoluteMaxContracts int) (*PositionSizer, error) {
	if capital <= 0 {
		return nil, fmt.Errorf("risk.NewPositionSizer: capital %.2f must be positive", capital)
	}
	if riskPerTrade <= 0 || riskPerTrade > 1 {
		return nil, fmt.Errorf("risk.NewPositionSizer: risk_per_trade %.4f must be in (0,1]", riskPerTrade)
	}
	if maxPositionPct <= 0 || maxPositionPct > 1 {
		return nil, fmt.Errorf("risk.NewPositionSizer: max_position_pct %.4f must be in (0,1]", maxPositionPct)
	}
	if absoluteMaxContracts <= 0 {
		return nil, fmt.Errorf("risk.NewPositionSizer: absolute_max_contracts %d must be positive", absoluteMaxContracts)
	}
	return &PositionSizer{
		capital:              capital,
		riskPerTrade:         riskPerTrade,
		maxPositionPct:       maxPositionPct,
		absoluteMaxContracts: absoluteMaxContracts,
	}, nil
}

// SizePosition devuelve cuántos contratos abrir para un precio de entrada.
// confidence en [0,1] escala la cantidad (0 → mitad, 1 → completa);
// cualquier otro valor (incluido NaN) se ignora.
//
// Falla cerrado: entryPrice <= 0 devuelve 0 contratos.
func (s *PositionSizer) SizePosition(entryPrice, confidence float64) int {
	if entryPrice <= 0 {
		return 0
	}

	calculationPrice := entryPrice
	if calculationPrice < MinPricingThreshold {
		calculationPrice = MinPricingThreshold
	}

	riskBasedQty := s.capital * s.riskPerTrade / calculationPrice
	maxPositionQty := s.capital * s.maxPositionPct / calculationPrice

	quantity := riskBasedQty
	if maxPositionQty < quantity {
		quantity = maxPositionQty
	}

	if confidence >= 0 && confidence <= 1 {
		quantity *= 0.5 + confidence/2
	}

	contracts := int(quantity)
	if contracts > s.absoluteMaxContracts {
		contracts = s.absoluteMaxContracts
	}
	if contracts < 1 {
		contracts = 1
	}

	// Última comprobación: el coste total nunca supera el capital.
	if float64(contracts)*entryPrice > s.capital {
		contracts = int(s.capital / entryPrice)
		if contracts < 0 {
			contracts = 0
		}
	}

	return contracts
}

// Capital devuelve el capital configurado.
func (s *PositionSizer) Capital() float64 { return s.capital }

package ledger

import "github.com/shopspring/decimal"

// Clasificación de varianza de una línea de conteo.
const (
	VarianceMatch    = "match"    // varianza cero
	VarianceShortage = "shortage" // faltante (físico < sistema)
	VarianceOverage  = "overage"  // sobrante (físico > sistema)
)

// ClassifyVariance clasifica una varianza (físico - sistema).
func ClassifyVariance(variance decimal.Decimal) string {
	switch {
	case variance.IsNegative():
		return VarianceShortage
	case variance.IsPositive():
		return VarianceOverage
	default:
		return VarianceMatch
	}
}

// VariancePolicy parametriza la evaluación de un conteo. Configurable por el
// caller; no se codifica ningún umbral fijo.
type VariancePolicy struct {
	// CriticalValueThreshold: un conteo se marca crítico cuando la suma de
	// los valores absolutos de varianza no resueltos supera este monto.
	// Cero desactiva la marca.
	CriticalValueThreshold decimal.Decimal
}

// IsCritical evalúa el valor total absoluto de varianza contra el umbral.
func (p VariancePolicy) IsCritical(totalAbsVarianceValue decimal.Decimal) bool {
	if p.CriticalValueThreshold.IsZero() {
		return false
	}
	return totalAbsVarianceValue.GreaterThan(p.CriticalValueThreshold)
}

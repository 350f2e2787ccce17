package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel representa la cantidad actual de un producto en una ubicación
// (bodega, tienda, punto de venta). Única por par (producto, ubicación).
// Invariante: Quantity es la suma neta de todos los deltas del libro de
// transacciones para ese par desde su creación. Solo el servicio de
// mutaciones escribe este registro.
type StockLevel struct {
	ProductID     string
	LocationID    string
	Quantity      decimal.Decimal
	MinStockLevel decimal.Decimal
	UpdatedAt     time.Time
}

// BelowMinimum indica si el nivel actual está por debajo del mínimo configurado.
func (s *StockLevel) BelowMinimum() bool {
	if s.MinStockLevel.IsZero() {
		return false
	}
	return s.Quantity.LessThan(s.MinStockLevel)
}

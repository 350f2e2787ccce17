package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product datos mínimos de referencia que el kardex necesita de un producto:
// existencia, SKU legible y costo unitario para valorizar varianzas.
// La gestión del catálogo vive fuera de este subsistema.
type Product struct {
	ID        string
	SKU       string
	Name      string
	UnitCost  decimal.Decimal
	Weighable bool // productos pesables admiten cantidades fraccionarias
	CreatedAt time.Time
}

// Location una ubicación física de inventario (bodega, tienda).
type Location struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
}

package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// StockLevelRepository define el puerto para consultar/escribir niveles de
// stock por (producto, ubicación). Un par sin nivel registrado se trata como
// cantidad cero, no como error. Solo el servicio de mutaciones escribe aquí.
type StockLevelRepository interface {
	Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error)
	// GetForUpdate bloquea la fila para update dentro de la transacción
	// (SELECT FOR UPDATE en PostgreSQL).
	GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockLevel, error)
	// Upsert escribe la cantidad absoluta calculada (idempotente).
	Upsert(ctx context.Context, level *entity.StockLevel) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error)
	ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error)
	// TotalQuantity suma las cantidades del producto en todas las ubicaciones.
	TotalQuantity(ctx context.Context, productID string) (decimal.Decimal, error)
}

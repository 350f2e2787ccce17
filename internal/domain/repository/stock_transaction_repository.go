package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// StockTransactionRepository define el puerto de persistencia del libro de
// movimientos. Solo existe Append: el libro es inmutable y las correcciones
// se hacen con entradas compensatorias.
type StockTransactionRepository interface {
	// Append valida NewQuantity == PreviousQuantity + Quantity y persiste.
	// Devuelve domain.ErrInvariantViolation si la entrada no cuadra.
	Append(ctx context.Context, tx *entity.StockTransaction) error
	GetByID(ctx context.Context, id string) (*entity.StockTransaction, error)
	// ListByProduct/ListByLocation devuelven en orden de creación.
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error)
	ListByLocation(ctx context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error)
	// ListByReference devuelve todas las entradas correlacionadas con un
	// documento (las dos piernas de un traslado, los ajustes de un conteo).
	ListByReference(ctx context.Context, reference string) ([]*entity.StockTransaction, error)
}

package repository

import (
	"context"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// ProductRepository puerto de solo lectura sobre los datos de referencia de
// producto que el kardex necesita (existencia y costo unitario).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	ListByIDs(ctx context.Context, ids []string) ([]*entity.Product, error)
}

// LocationRepository puerto de solo lectura sobre ubicaciones.
type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Location, error)
}

package repository

import (
	"context"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// InventoryCountRepository define el puerto de persistencia de sesiones de
// conteo físico y sus líneas.
type InventoryCountRepository interface {
	CreateCount(ctx context.Context, count *entity.InventoryCount, items []*entity.InventoryCountItem) error
	GetCount(ctx context.Context, countID string) (*entity.InventoryCount, error)
	UpdateCount(ctx context.Context, count *entity.InventoryCount) error
	ListCounts(ctx context.Context, locationID string, limit, offset int) ([]*entity.InventoryCount, error)

	GetItem(ctx context.Context, countID, productID string) (*entity.InventoryCountItem, error)
	UpsertItem(ctx context.Context, item *entity.InventoryCountItem) error
	ListItems(ctx context.Context, countID string) ([]*entity.InventoryCountItem, error)
}

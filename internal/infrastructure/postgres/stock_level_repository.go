package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo implementación de StockLevelRepository sobre PostgreSQL
// (usable con pool o tx).
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

const levelColumns = `product_id, location_id, quantity, min_stock_level, updated_at`

// Get obtiene el nivel actual del par; un par sin fila devuelve cantidad cero.
func (r *StockLevelRepo) Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM stock_levels WHERE product_id = $1 AND location_id = $2`
	return r.scanOne(ctx, query, productID, locationID)
}

// GetForUpdate obtiene el nivel y bloquea la fila (SELECT FOR UPDATE).
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM stock_levels WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`
	return r.scanOne(ctx, query, productID, locationID)
}

func (r *StockLevelRepo) scanOne(ctx context.Context, query, productID, locationID string) (*entity.StockLevel, error) {
	var lv entity.StockLevel
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&lv.ProductID, &lv.LocationID, &lv.Quantity, &lv.MinStockLevel, &lv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockLevel{ProductID: productID, LocationID: locationID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return &lv, nil
}

// Upsert escribe la cantidad absoluta calculada (idempotente por par).
func (r *StockLevelRepo) Upsert(ctx context.Context, level *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (product_id, location_id, quantity, min_stock_level, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity,
		              min_stock_level = EXCLUDED.min_stock_level,
		              updated_at = now()`
	_, err := r.q.Exec(ctx, query, level.ProductID, level.LocationID, level.Quantity, level.MinStockLevel)
	if err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}
	return nil
}

// ListByProduct niveles del producto en todas las ubicaciones.
func (r *StockLevelRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM stock_levels WHERE product_id = $1
		ORDER BY location_id`
	return r.scanMany(ctx, query, productID)
}

// ListByLocation niveles de todos los productos de una ubicación.
func (r *StockLevelRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM stock_levels WHERE location_id = $1
		ORDER BY product_id`
	return r.scanMany(ctx, query, locationID)
}

func (r *StockLevelRepo) scanMany(ctx context.Context, query string, arg any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLevel
	for rows.Next() {
		var lv entity.StockLevel
		if err := rows.Scan(&lv.ProductID, &lv.LocationID, &lv.Quantity, &lv.MinStockLevel, &lv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		list = append(list, &lv)
	}
	return list, rows.Err()
}

// TotalQuantity suma las cantidades del producto en todas las ubicaciones.
func (r *StockLevelRepo) TotalQuantity(ctx context.Context, productID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_levels WHERE product_id = $1`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, productID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("total quantity: %w", err)
	}
	return total, nil
}

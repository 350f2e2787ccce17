package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.InventoryCountRepository = (*InventoryCountRepo)(nil)

// InventoryCountRepo persistencia de sesiones de conteo y sus líneas sobre
// PostgreSQL (usable con pool o tx).
type InventoryCountRepo struct {
	q Querier
}

// NewInventoryCountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryCountRepository(q Querier) *InventoryCountRepo {
	return &InventoryCountRepo{q: q}
}

const countColumns = `id, name, type, location_id, status, created_by, total_products, counted_products, total_variances, created_at, completed_at`

// CreateCount inserta la sesión y todas sus líneas.
func (r *InventoryCountRepo) CreateCount(ctx context.Context, count *entity.InventoryCount, items []*entity.InventoryCountItem) error {
	if count.ID == "" {
		count.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_counts (` + countColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		count.ID, count.Name, count.Type, count.LocationID, count.Status,
		count.CreatedBy, count.TotalProducts, count.CountedProducts,
		count.TotalVariances, count.CreatedAt, count.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create inventory count: %w", err)
	}
	for _, item := range items {
		if err := r.UpsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// GetCount obtiene una sesión por ID.
func (r *InventoryCountRepo) GetCount(ctx context.Context, countID string) (*entity.InventoryCount, error) {
	query := `
		SELECT ` + countColumns + `
		FROM inventory_counts WHERE id = $1`
	var c entity.InventoryCount
	err := r.q.QueryRow(ctx, query, countID).Scan(
		&c.ID, &c.Name, &c.Type, &c.LocationID, &c.Status,
		&c.CreatedBy, &c.TotalProducts, &c.CountedProducts,
		&c.TotalVariances, &c.CreatedAt, &c.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCountNotFound
		}
		return nil, fmt.Errorf("get inventory count: %w", err)
	}
	return &c, nil
}

// UpdateCount actualiza estado y contadores de la sesión.
func (r *InventoryCountRepo) UpdateCount(ctx context.Context, count *entity.InventoryCount) error {
	query := `
		UPDATE inventory_counts
		SET status = $2, counted_products = $3, total_variances = $4, completed_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		count.ID, count.Status, count.CountedProducts, count.TotalVariances, count.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update inventory count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCountNotFound
	}
	return nil
}

// ListCounts lista sesiones, opcionalmente filtradas por ubicación.
func (r *InventoryCountRepo) ListCounts(ctx context.Context, locationID string, limit, offset int) ([]*entity.InventoryCount, error) {
	query := `
		SELECT ` + countColumns + `
		FROM inventory_counts`
	args := []any{}
	pos := 1
	if locationID != "" {
		query += fmt.Sprintf(" WHERE location_id = $%d", pos)
		args = append(args, locationID)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory counts: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryCount
	for rows.Next() {
		var c entity.InventoryCount
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Type, &c.LocationID, &c.Status,
			&c.CreatedBy, &c.TotalProducts, &c.CountedProducts,
			&c.TotalVariances, &c.CreatedAt, &c.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inventory count: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

const itemColumns = `count_id, product_id, location_id, system_quantity, physical_quantity, variance, variance_value, unit_cost, status`

// GetItem obtiene una línea por (conteo, producto).
func (r *InventoryCountRepo) GetItem(ctx context.Context, countID, productID string) (*entity.InventoryCountItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_count_items WHERE count_id = $1 AND product_id = $2`
	var it entity.InventoryCountItem
	err := r.q.QueryRow(ctx, query, countID, productID).Scan(
		&it.CountID, &it.ProductID, &it.LocationID,
		&it.SystemQuantity, &it.PhysicalQuantity,
		&it.Variance, &it.VarianceValue, &it.UnitCost, &it.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get count item: %w", err)
	}
	return &it, nil
}

// UpsertItem inserta o actualiza una línea (re-conteo: last write wins).
func (r *InventoryCountRepo) UpsertItem(ctx context.Context, item *entity.InventoryCountItem) error {
	query := `
		INSERT INTO inventory_count_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (count_id, product_id)
		DO UPDATE SET physical_quantity = EXCLUDED.physical_quantity,
		              variance = EXCLUDED.variance,
		              variance_value = EXCLUDED.variance_value,
		              status = EXCLUDED.status`
	_, err := r.q.Exec(ctx, query,
		item.CountID, item.ProductID, item.LocationID,
		item.SystemQuantity, item.PhysicalQuantity,
		item.Variance, item.VarianceValue, item.UnitCost, item.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert count item: %w", err)
	}
	return nil
}

// ListItems todas las líneas de un conteo.
func (r *InventoryCountRepo) ListItems(ctx context.Context, countID string) ([]*entity.InventoryCountItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_count_items WHERE count_id = $1
		ORDER BY product_id`
	rows, err := r.q.Query(ctx, query, countID)
	if err != nil {
		return nil, fmt.Errorf("list count items: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryCountItem
	for rows.Next() {
		var it entity.InventoryCountItem
		if err := rows.Scan(
			&it.CountID, &it.ProductID, &it.LocationID,
			&it.SystemQuantity, &it.PhysicalQuantity,
			&it.Variance, &it.VarianceValue, &it.UnitCost, &it.Status,
		); err != nil {
			return nil, fmt.Errorf("scan count item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

// StockTransactionRepo implementación del libro de movimientos sobre
// PostgreSQL (usable con pool o tx). La tabla es solo-append: no existe
// UPDATE ni DELETE en este repositorio.
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

const txColumns = `id, product_id, location_id, type, quantity, previous_quantity, new_quantity, reason, reference, related_id, created_by, created_at`

// Append valida el invariante pre/post y persiste la entrada. La secuencia
// seq (BIGSERIAL) da el orden de creación para los listados.
func (r *StockTransactionRepo) Append(ctx context.Context, tx *entity.StockTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_transactions (` + txColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	createdBy := (*string)(nil)
	if tx.CreatedBy != "" {
		createdBy = &tx.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		tx.ID, tx.ProductID, tx.LocationID, tx.Type,
		tx.Quantity, tx.PreviousQuantity, tx.NewQuantity,
		tx.Reason, tx.Reference, tx.RelatedID, createdBy, tx.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("append stock transaction: %w", err)
	}
	return nil
}

// GetByID obtiene una entrada por ID.
func (r *StockTransactionRepo) GetByID(ctx context.Context, id string) (*entity.StockTransaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM stock_transactions WHERE id = $1`
	tx, err := r.scanRow(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock transaction: %w", err)
	}
	return tx, nil
}

// ListByProduct entradas del producto en orden de creación.
func (r *StockTransactionRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	return r.listFiltered(ctx, "product_id", productID, from, to, limit, offset)
}

// ListByLocation entradas de la ubicación en orden de creación.
func (r *StockTransactionRepo) ListByLocation(ctx context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	return r.listFiltered(ctx, "location_id", locationID, from, to, limit, offset)
}

func (r *StockTransactionRepo) listFiltered(ctx context.Context, column, value string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM stock_transactions WHERE ` + column + ` = $1`
	args := []any{value}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY seq LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.scanRows(ctx, query, args...)
}

// ListByReference todas las entradas correlacionadas con un documento
// (las dos piernas de un traslado, los ajustes de un conteo).
func (r *StockTransactionRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockTransaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM stock_transactions WHERE reference = $1
		ORDER BY seq`
	return r.scanRows(ctx, query, reference)
}

func (r *StockTransactionRepo) scanRows(ctx context.Context, query string, args ...any) ([]*entity.StockTransaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransaction
	for rows.Next() {
		tx, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		list = append(list, tx)
	}
	return list, rows.Err()
}

func (r *StockTransactionRepo) scanRow(row pgx.Row) (*entity.StockTransaction, error) {
	var tx entity.StockTransaction
	var reason, reference, relatedID, createdBy *string
	err := row.Scan(
		&tx.ID, &tx.ProductID, &tx.LocationID, &tx.Type,
		&tx.Quantity, &tx.PreviousQuantity, &tx.NewQuantity,
		&reason, &reference, &relatedID, &createdBy, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		tx.Reason = *reason
	}
	if reference != nil {
		tx.Reference = *reference
	}
	if relatedID != nil {
		tx.RelatedID = *relatedID
	}
	if createdBy != nil {
		tx.CreatedBy = *createdBy
	}
	return &tx, nil
}

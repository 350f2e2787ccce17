package ledger

import (
	"context"

	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una unidad atómica de almacenamiento,
// pasando repositorios atados a esa unidad. Garantiza que la escritura del
// nivel y el append al libro ocurren ambos o ninguno — la regla de
// consistencia central del kardex.
//
// Implementaciones: transacción PostgreSQL (infrastructure/postgres) y store
// en memoria con rollback por snapshot (infrastructure/memory).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		levels repository.StockLevelRepository,
		txns repository.StockTransactionRepository,
	) error) error
}

package memory

import (
	"context"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner unidad atómica sobre el store en memoria: toma un snapshot de
// niveles y libro antes de ejecutar fn y lo restaura si fn falla. Las
// unidades se serializan entre sí (txMu); las lecturas fuera de unidades
// siguen concurrentes.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn; si devuelve error, restaura el estado previo de niveles y
// libro — la escritura del nivel y el append ocurren ambos o ninguno.
func (r *TxRunner) Run(ctx context.Context, fn func(
	levels repository.StockLevelRepository,
	txns repository.StockTransactionRepository,
) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	snap := r.snapshot()
	if err := fn(r.store.Levels(), r.store.Transactions()); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	levels  map[string]*entity.StockLevel
	txns    []*entity.StockTransaction
	txnByID map[string]*entity.StockTransaction
}

func (r *TxRunner) snapshot() snapshot {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	levels := make(map[string]*entity.StockLevel, len(r.store.levels))
	for k, v := range r.store.levels {
		cp := *v
		levels[k] = &cp
	}
	txns := make([]*entity.StockTransaction, len(r.store.txns))
	copy(txns, r.store.txns)
	byID := make(map[string]*entity.StockTransaction, len(r.store.txnByID))
	for k, v := range r.store.txnByID {
		byID[k] = v
	}
	return snapshot{levels: levels, txns: txns, txnByID: byID}
}

func (r *TxRunner) restore(s snapshot) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.levels = s.levels
	r.store.txns = s.txns
	r.store.txnByID = s.txnByID
}

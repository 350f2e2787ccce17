// Package memory implementa el PersistenceGateway en memoria: modo desarrollo
// sin PostgreSQL y doble de pruebas. Mapas protegidos con sync.RWMutex; las
// unidades atómicas se implementan con snapshot + restore bajo un lock de
// escritura global.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// Store contenedor de datos en memoria. Las vistas de repositorio se obtienen
// con Levels(), Transactions(), Counts(), Products(), Locations() y el runner
// de unidades atómicas con Runner().
type Store struct {
	mu      sync.RWMutex
	txMu    sync.Mutex // serializa unidades atómicas (escrituras nivel+libro)
	levels  map[string]*entity.StockLevel
	txns    []*entity.StockTransaction
	txnByID map[string]*entity.StockTransaction

	counts     map[string]*entity.InventoryCount
	countItems map[string]map[string]*entity.InventoryCountItem

	products  map[string]*entity.Product
	locations map[string]*entity.Location
}

// NewStore construye el store vacío.
func NewStore() *Store {
	return &Store{
		levels:     map[string]*entity.StockLevel{},
		txnByID:    map[string]*entity.StockTransaction{},
		counts:     map[string]*entity.InventoryCount{},
		countItems: map[string]map[string]*entity.InventoryCountItem{},
		products:   map[string]*entity.Product{},
		locations:  map[string]*entity.Location{},
	}
}

func levelKey(productID, locationID string) string {
	return productID + "|" + locationID
}

// SeedProduct registra un producto de referencia.
func (s *Store) SeedProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.products[cp.ID] = &cp
}

// SeedLocation registra una ubicación.
func (s *Store) SeedLocation(l *entity.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.locations[cp.ID] = &cp
}

// ──────────────────────────────────────────────────────────────────────────────
// StockLevelRepository
// ──────────────────────────────────────────────────────────────────────────────

type levelRepo struct{ s *Store }

// Levels vista StockLevelRepository del store.
func (s *Store) Levels() repository.StockLevelRepository { return levelRepo{s} }

var _ repository.StockLevelRepository = levelRepo{}

// Get devuelve el nivel del par; un par sin nivel devuelve cantidad cero.
func (r levelRepo) Get(_ context.Context, productID, locationID string) (*entity.StockLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if lv, ok := r.s.levels[levelKey(productID, locationID)]; ok {
		cp := *lv
		return &cp, nil
	}
	return &entity.StockLevel{ProductID: productID, LocationID: locationID, Quantity: decimal.Zero}, nil
}

// GetForUpdate en memoria equivale a Get: la exclusión la da el KeyLock del
// servicio más la serialización del runner.
func (r levelRepo) GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	return r.Get(ctx, productID, locationID)
}

func (r levelRepo) Upsert(_ context.Context, level *entity.StockLevel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *level
	r.s.levels[levelKey(level.ProductID, level.LocationID)] = &cp
	return nil
}

func (r levelRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.StockLevel
	for _, lv := range r.s.levels {
		if lv.ProductID == productID {
			cp := *lv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (r levelRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.StockLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.StockLevel
	for _, lv := range r.s.levels {
		if lv.LocationID == locationID {
			cp := *lv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r levelRepo) TotalQuantity(_ context.Context, productID string) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := decimal.Zero
	for _, lv := range r.s.levels {
		if lv.ProductID == productID {
			total = total.Add(lv.Quantity)
		}
	}
	return total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// StockTransactionRepository
// ──────────────────────────────────────────────────────────────────────────────

type txnRepo struct{ s *Store }

// Transactions vista StockTransactionRepository del store.
func (s *Store) Transactions() repository.StockTransactionRepository { return txnRepo{s} }

var _ repository.StockTransactionRepository = txnRepo{}

// Append valida el invariante pre/post y agrega al final del libro.
func (r txnRepo) Append(_ context.Context, tx *entity.StockTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.txnByID[tx.ID]; dup {
		return domain.ErrDuplicate
	}
	cp := *tx
	r.s.txns = append(r.s.txns, &cp)
	r.s.txnByID[cp.ID] = &cp
	return nil
}

func (r txnRepo) GetByID(_ context.Context, id string) (*entity.StockTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if tx, ok := r.s.txnByID[id]; ok {
		cp := *tx
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r txnRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	return r.list(func(tx *entity.StockTransaction) bool { return tx.ProductID == productID }, from, to, limit, offset)
}

func (r txnRepo) ListByLocation(_ context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	return r.list(func(tx *entity.StockTransaction) bool { return tx.LocationID == locationID }, from, to, limit, offset)
}

func (r txnRepo) ListByReference(_ context.Context, reference string) ([]*entity.StockTransaction, error) {
	return r.list(func(tx *entity.StockTransaction) bool { return tx.Reference == reference }, nil, nil, 0, 0)
}

// list recorre el libro en orden de creación aplicando filtro y paginación.
// limit <= 0 significa sin límite.
func (r txnRepo) list(match func(*entity.StockTransaction) bool, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.StockTransaction
	skipped := 0
	for _, tx := range r.s.txns {
		if !match(tx) {
			continue
		}
		if from != nil && tx.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && tx.CreatedAt.After(*to) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *tx
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// InventoryCountRepository
// ──────────────────────────────────────────────────────────────────────────────

type countRepo struct{ s *Store }

// Counts vista InventoryCountRepository del store.
func (s *Store) Counts() repository.InventoryCountRepository { return countRepo{s} }

var _ repository.InventoryCountRepository = countRepo{}

func (r countRepo) CreateCount(_ context.Context, count *entity.InventoryCount, items []*entity.InventoryCountItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.counts[count.ID]; dup {
		return domain.ErrDuplicate
	}
	cp := *count
	r.s.counts[count.ID] = &cp
	lines := make(map[string]*entity.InventoryCountItem, len(items))
	for _, it := range items {
		icp := *it
		lines[it.ProductID] = &icp
	}
	r.s.countItems[count.ID] = lines
	return nil
}

func (r countRepo) GetCount(_ context.Context, countID string) (*entity.InventoryCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if cnt, ok := r.s.counts[countID]; ok {
		cp := *cnt
		return &cp, nil
	}
	return nil, domain.ErrCountNotFound
}

func (r countRepo) UpdateCount(_ context.Context, count *entity.InventoryCount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.counts[count.ID]; !ok {
		return domain.ErrCountNotFound
	}
	cp := *count
	r.s.counts[count.ID] = &cp
	return nil
}

func (r countRepo) ListCounts(_ context.Context, locationID string, limit, offset int) ([]*entity.InventoryCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.InventoryCount
	for _, cnt := range r.s.counts {
		if locationID != "" && cnt.LocationID != locationID {
			continue
		}
		cp := *cnt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r countRepo) GetItem(_ context.Context, countID, productID string) (*entity.InventoryCountItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if lines, ok := r.s.countItems[countID]; ok {
		if it, ok := lines[productID]; ok {
			cp := *it
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r countRepo) UpsertItem(_ context.Context, item *entity.InventoryCountItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines, ok := r.s.countItems[item.CountID]
	if !ok {
		return domain.ErrCountNotFound
	}
	cp := *item
	lines[item.ProductID] = &cp
	return nil
}

func (r countRepo) ListItems(_ context.Context, countID string) ([]*entity.InventoryCountItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lines, ok := r.s.countItems[countID]
	if !ok {
		return nil, domain.ErrCountNotFound
	}
	var out []*entity.InventoryCountItem
	for _, it := range lines {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ProductRepository / LocationRepository
// ──────────────────────────────────────────────────────────────────────────────

type productRepo struct{ s *Store }

// Products vista ProductRepository del store.
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

var _ repository.ProductRepository = productRepo{}

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrProductNotFound
}

func (r productRepo) ListByIDs(_ context.Context, ids []string) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type locationRepo struct{ s *Store }

// Locations vista LocationRepository del store.
func (s *Store) Locations() repository.LocationRepository { return locationRepo{s} }

var _ repository.LocationRepository = locationRepo{}

func (r locationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.locations[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrLocationNotFound
}

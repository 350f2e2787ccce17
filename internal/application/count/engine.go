package count

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	domledger "github.com/jhoicas/Kardex-api/internal/domain/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

// Engine gestiona sesiones de conteo físico: crea la sesión con la foto del
// sistema, registra cantidades físicas y al finalizar emite los ajustes a
// través del servicio de mutaciones. Contar nunca muta niveles; solo
// Finalize toca stock real.
type Engine struct {
	countRepo    repository.InventoryCountRepository
	levelRepo    repository.StockLevelRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	mutations    *ledger.MutationService
	policy       domledger.VariancePolicy
	log          *logger.Logger
}

// NewEngine construye el motor de conteos.
func NewEngine(
	countRepo repository.InventoryCountRepository,
	levelRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	mutations *ledger.MutationService,
	policy domledger.VariancePolicy,
	log *logger.Logger,
) *Engine {
	return &Engine{
		countRepo:    countRepo,
		levelRepo:    levelRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		mutations:    mutations,
		policy:       policy,
		log:          log,
	}
}

// CreateInput parámetros para abrir una sesión de conteo.
type CreateInput struct {
	Name       string
	Type       string   // full | partial
	LocationID string
	ProductIDs []string // solo para partial
	CreatedBy  string
}

// CreateCount abre la sesión en draft y congela la foto del sistema
// (SystemQuantity) por línea. Un producto sin nivel registrado entra con
// foto cero.
func (e *Engine) CreateCount(ctx context.Context, in CreateInput) (*entity.InventoryCount, error) {
	if in.Name == "" || in.LocationID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := e.locationRepo.GetByID(ctx, in.LocationID); err != nil {
		return nil, domain.ErrLocationNotFound
	}

	var productIDs []string
	systemQty := map[string]decimal.Decimal{}
	switch in.Type {
	case entity.CountTypeFull:
		levels, err := e.levelRepo.ListByLocation(ctx, in.LocationID)
		if err != nil {
			return nil, err
		}
		for _, lv := range levels {
			productIDs = append(productIDs, lv.ProductID)
			systemQty[lv.ProductID] = lv.Quantity
		}
	case entity.CountTypePartial:
		if len(in.ProductIDs) == 0 {
			return nil, domain.ErrInvalidInput
		}
		for _, id := range in.ProductIDs {
			lv, err := e.levelRepo.Get(ctx, id, in.LocationID)
			if err != nil {
				return nil, err
			}
			productIDs = append(productIDs, id)
			systemQty[id] = lv.Quantity
		}
	default:
		return nil, domain.ErrInvalidInput
	}

	products, err := e.productRepo.ListByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	costByID := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		costByID[p.ID] = p.UnitCost
	}

	now := time.Now()
	cnt := &entity.InventoryCount{
		ID:            uuid.New().String(),
		Name:          in.Name,
		Type:          in.Type,
		LocationID:    in.LocationID,
		Status:        entity.CountStatusDraft,
		CreatedBy:     in.CreatedBy,
		TotalProducts: len(productIDs),
		CreatedAt:     now,
	}
	items := make([]*entity.InventoryCountItem, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, &entity.InventoryCountItem{
			CountID:        cnt.ID,
			ProductID:      id,
			LocationID:     in.LocationID,
			SystemQuantity: systemQty[id],
			UnitCost:       costByID[id],
			Status:         entity.CountItemPending,
		})
	}
	if err := e.countRepo.CreateCount(ctx, cnt, items); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("count_id", cnt.ID).
		Str("location_id", in.LocationID).
		Int("products", cnt.TotalProducts).
		Msg("sesión de conteo creada")
	return cnt, nil
}

// StartCounting pasa el conteo de draft a in_progress.
func (e *Engine) StartCounting(ctx context.Context, countID string) error {
	cnt, err := e.getCount(ctx, countID)
	if err != nil {
		return err
	}
	if cnt.Status != entity.CountStatusDraft {
		return domain.ErrCountState
	}
	cnt.Status = entity.CountStatusInProgress
	return e.countRepo.UpdateCount(ctx, cnt)
}

// RecordPhysicalCount registra la cantidad física de una línea y calcula
// varianza y valor de varianza. Re-contar la misma línea sobreescribe el
// valor anterior (last write wins) mientras el conteo esté in_progress.
func (e *Engine) RecordPhysicalCount(ctx context.Context, countID, productID string, quantity decimal.Decimal) (*entity.InventoryCountItem, error) {
	if quantity.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	cnt, err := e.getCount(ctx, countID)
	if err != nil {
		return nil, err
	}
	if cnt.Status != entity.CountStatusInProgress {
		return nil, domain.ErrCountState
	}
	item, err := e.countRepo.GetItem(ctx, countID, productID)
	if err != nil {
		return nil, err
	}
	item.PhysicalQuantity = quantity
	item.Variance = quantity.Sub(item.SystemQuantity)
	item.VarianceValue = item.Variance.Mul(item.UnitCost)
	item.Status = entity.CountItemCounted
	if err := e.countRepo.UpsertItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// VerifyItem marca una línea ya contada como verificada por un supervisor.
// Opcional: Finalize no lo exige.
func (e *Engine) VerifyItem(ctx context.Context, countID, productID string) error {
	cnt, err := e.getCount(ctx, countID)
	if err != nil {
		return err
	}
	if cnt.Status != entity.CountStatusInProgress {
		return domain.ErrCountState
	}
	item, err := e.countRepo.GetItem(ctx, countID, productID)
	if err != nil {
		return err
	}
	if item.Status != entity.CountItemCounted {
		return domain.ErrCountState
	}
	item.Status = entity.CountItemVerified
	return e.countRepo.UpsertItem(ctx, item)
}

// Summary resultado de finalizar o evaluar un conteo.
type Summary struct {
	Count         *entity.InventoryCount
	Adjustments   []*entity.StockTransaction
	TotalVariance decimal.Decimal // suma de valores absolutos de varianza
	Critical      bool
}

// Finalize cierra el conteo: por cada línea contada con varianza distinta de
// cero emite exactamente un ajuste vía el servicio de mutaciones, con
// Reference = id del conteo. Es el único camino por el que un conteo afecta
// stock real.
func (e *Engine) Finalize(ctx context.Context, countID, actorID string) (*Summary, error) {
	cnt, err := e.getCount(ctx, countID)
	if err != nil {
		return nil, err
	}
	if cnt.Status != entity.CountStatusInProgress {
		return nil, domain.ErrCountState
	}
	items, err := e.countRepo.ListItems(ctx, countID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Count: cnt}
	counted := 0
	variances := 0
	totalAbs := decimal.Zero
	for _, item := range items {
		if item.Status == entity.CountItemPending {
			continue
		}
		counted++
		if item.Variance.IsZero() {
			continue
		}
		variances++
		totalAbs = totalAbs.Add(item.VarianceValue.Abs())
		adj, err := e.mutations.ApplyAdjustment(ctx, ledger.AdjustmentInput{
			ProductID:        item.ProductID,
			LocationID:       item.LocationID,
			PhysicalQuantity: item.PhysicalQuantity,
			Reason:           "ajuste por conteo físico: " + cnt.Name,
			Reference:        cnt.ID,
			ActorID:          actorID,
		})
		if err != nil {
			return nil, err
		}
		sum.Adjustments = append(sum.Adjustments, adj)
	}

	now := time.Now()
	cnt.Status = entity.CountStatusCompleted
	cnt.CountedProducts = counted
	cnt.TotalVariances = variances
	cnt.CompletedAt = &now
	if err := e.countRepo.UpdateCount(ctx, cnt); err != nil {
		return nil, err
	}

	sum.TotalVariance = totalAbs
	sum.Critical = e.policy.IsCritical(totalAbs)
	if sum.Critical {
		e.log.Warn().
			Str("count_id", cnt.ID).
			Str("total_variance_value", totalAbs.String()).
			Msg("conteo finalizado con varianza crítica")
	}
	return sum, nil
}

// Cancel cancela el conteo desde draft o in_progress. No se muta stock y las
// cantidades físicas registradas se descartan como no autoritativas.
func (e *Engine) Cancel(ctx context.Context, countID string) error {
	cnt, err := e.getCount(ctx, countID)
	if err != nil {
		return err
	}
	if cnt.Terminal() {
		return domain.ErrCountState
	}
	cnt.Status = entity.CountStatusCancelled
	return e.countRepo.UpdateCount(ctx, cnt)
}

// ListCounts lista sesiones, opcionalmente filtradas por ubicación.
func (e *Engine) ListCounts(ctx context.Context, locationID string, limit, offset int) ([]*entity.InventoryCount, error) {
	return e.countRepo.ListCounts(ctx, locationID, limit, offset)
}

// GetCount devuelve la sesión con sus líneas.
func (e *Engine) GetCount(ctx context.Context, countID string) (*entity.InventoryCount, []*entity.InventoryCountItem, error) {
	cnt, err := e.getCount(ctx, countID)
	if err != nil {
		return nil, nil, err
	}
	items, err := e.countRepo.ListItems(ctx, countID)
	if err != nil {
		return nil, nil, err
	}
	return cnt, items, nil
}

func (e *Engine) getCount(ctx context.Context, countID string) (*entity.InventoryCount, error) {
	cnt, err := e.countRepo.GetCount(ctx, countID)
	if err != nil || cnt == nil {
		return nil, domain.ErrCountNotFound
	}
	return cnt, nil
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

// Policy parámetros de comportamiento del kardex, inyectados por configuración
// (nunca un switch global a nivel de módulo).
type Policy struct {
	// AllowNegativeStock permite que una venta/salida deje el nivel en
	// negativo (venta de emergencia / backorder). Con false se devuelve
	// domain.ErrInsufficientStock.
	AllowNegativeStock bool
}

// MutationService es el único escritor del almacén de niveles y del libro de
// movimientos. Cada operación es una unidad lógica: lock por clave, leer
// nivel, calcular delta, append al libro y escribir el nivel — todo dentro de
// una unidad atómica del TxRunner.
type MutationService struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	locks        *KeyLock
	policy       Policy
	log          *logger.Logger
}

// NewMutationService construye el servicio de mutaciones.
func NewMutationService(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	locks *KeyLock,
	policy Policy,
	log *logger.Logger,
) *MutationService {
	return &MutationService{
		txRunner:     txRunner,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		locks:        locks,
		policy:       policy,
		log:          log,
	}
}

// SaleInput venta finalizada: una llamada por línea de factura.
type SaleInput struct {
	ProductID  string
	LocationID string
	Quantity   decimal.Decimal // cantidad vendida, positiva
	Reference  string          // número de factura
	RelatedID  string          // id de la venta
	ActorID    string
}

// ApplySale aplica una venta: delta = -Quantity, tipo sale. El nivel puede
// quedar negativo si la política lo permite.
func (s *MutationService) ApplySale(ctx context.Context, in SaleInput) (*entity.StockTransaction, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return s.applyDelta(ctx, deltaInput{
		ProductID:   in.ProductID,
		LocationID:  in.LocationID,
		Delta:       in.Quantity.Neg(),
		Type:        entity.TxTypeSale,
		Reference:   in.Reference,
		RelatedID:   in.RelatedID,
		ActorID:     in.ActorID,
		CheckPolicy: true,
	})
}

// PurchaseInput recepción de una línea de orden de compra.
type PurchaseInput struct {
	ProductID  string
	LocationID string
	Quantity   decimal.Decimal // cantidad recibida, positiva
	Reference  string          // número de orden de compra
	RelatedID  string
	ActorID    string
}

// ApplyPurchaseReceipt aplica una recepción de compra: delta = +Quantity, tipo purchase.
func (s *MutationService) ApplyPurchaseReceipt(ctx context.Context, in PurchaseInput) (*entity.StockTransaction, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return s.applyDelta(ctx, deltaInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Delta:      in.Quantity,
		Type:       entity.TxTypePurchase,
		Reference:  in.Reference,
		RelatedID:  in.RelatedID,
		ActorID:    in.ActorID,
	})
}

// EntryInput entrada manual de mercancía (sin documento de compra).
type EntryInput struct {
	ProductID  string
	LocationID string
	Quantity   decimal.Decimal
	Reason     string
	Reference  string
	ActorID    string
}

// RegisterEntry registra una entrada manual: delta = +Quantity, tipo entry.
func (s *MutationService) RegisterEntry(ctx context.Context, in EntryInput) (*entity.StockTransaction, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return s.applyDelta(ctx, deltaInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Delta:      in.Quantity,
		Type:       entity.TxTypeEntry,
		Reason:     in.Reason,
		Reference:  in.Reference,
		ActorID:    in.ActorID,
	})
}

// ExitInput salida manual de mercancía (merma, consumo interno).
type ExitInput struct {
	ProductID  string
	LocationID string
	Quantity   decimal.Decimal
	Reason     string
	Reference  string
	ActorID    string
}

// RegisterExit registra una salida manual: delta = -Quantity, tipo exit.
func (s *MutationService) RegisterExit(ctx context.Context, in ExitInput) (*entity.StockTransaction, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return s.applyDelta(ctx, deltaInput{
		ProductID:   in.ProductID,
		LocationID:  in.LocationID,
		Delta:       in.Quantity.Neg(),
		Type:        entity.TxTypeExit,
		Reason:      in.Reason,
		Reference:   in.Reference,
		ActorID:     in.ActorID,
		CheckPolicy: true,
	})
}

// AdjustmentInput ajuste a una cantidad física observada.
type AdjustmentInput struct {
	ProductID        string
	LocationID       string
	PhysicalQuantity decimal.Decimal // nueva cantidad física observada
	Reason           string
	Reference        string // id del conteo u otra nota de ajuste
	ActorID          string
}

// ApplyAdjustment ajusta el nivel a la cantidad física observada:
// delta = físico - actual, tipo adjustment. Un delta cero es válido y se
// persiste igual: documenta que el nivel fue auditado sin cambio.
func (s *MutationService) ApplyAdjustment(ctx context.Context, in AdjustmentInput) (*entity.StockTransaction, error) {
	if err := s.checkRefs(ctx, in.ProductID, in.LocationID); err != nil {
		return nil, err
	}
	release, err := s.locks.Acquire(ctx, LockKey(in.ProductID, in.LocationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var created *entity.StockTransaction
	err = s.txRunner.Run(ctx, func(levels repository.StockLevelRepository, txns repository.StockTransactionRepository) error {
		level, err := levels.GetForUpdate(ctx, in.ProductID, in.LocationID)
		if err != nil {
			return err
		}
		delta := in.PhysicalQuantity.Sub(level.Quantity)
		created, err = s.writePair(ctx, levels, txns, level, delta, entity.TxTypeAdjustment, in.Reason, in.Reference, "", in.ActorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// TransferInput traslado de mercancía entre dos ubicaciones.
type TransferInput struct {
	ProductID        string
	SourceLocationID string
	TargetLocationID string
	Quantity         decimal.Decimal // positiva
	Reference        string          // comparte las dos piernas
	ActorID          string
}

// TransferResult las dos piernas del traslado, en orden de aplicación.
type TransferResult struct {
	Out *entity.StockTransaction
	In  *entity.StockTransaction
}

// ApplyTransfer ejecuta un traslado como dos mutaciones acopladas bajo ambos
// locks (adquiridos en orden lexicográfico): transfer_out en origen y
// transfer_in en destino, misma Reference. Si la pierna de entrada falla se
// aplica una reversión compensatoria en el origen; si la compensación también
// falla se devuelve domain.ErrPartialTransfer — nunca se deja el libro
// inconsistente en silencio.
func (s *MutationService) ApplyTransfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if !in.Quantity.IsPositive() || in.SourceLocationID == in.TargetLocationID {
		return nil, domain.ErrInvalidInput
	}
	if err := s.checkRefs(ctx, in.ProductID, in.SourceLocationID); err != nil {
		return nil, err
	}
	if _, err := s.locationRepo.GetByID(ctx, in.TargetLocationID); err != nil {
		return nil, domain.ErrLocationNotFound
	}

	release, err := s.locks.Acquire(ctx,
		LockKey(in.ProductID, in.SourceLocationID),
		LockKey(in.ProductID, in.TargetLocationID),
	)
	if err != nil {
		return nil, err
	}
	defer release()

	out, err := s.runLeg(ctx, in.ProductID, in.SourceLocationID, in.Quantity.Neg(),
		entity.TxTypeTransferOut, "", in.Reference, in.ActorID, true)
	if err != nil {
		return nil, err
	}

	inTx, err := s.runLeg(ctx, in.ProductID, in.TargetLocationID, in.Quantity,
		entity.TxTypeTransferIn, "", in.Reference, in.ActorID, false)
	if err != nil {
		// Saga: revertir la pierna de salida ya aplicada con una entrada
		// compensatoria en el origen, misma Reference.
		if _, compErr := s.runLeg(ctx, in.ProductID, in.SourceLocationID, in.Quantity,
			entity.TxTypeTransferIn, "reversión de traslado fallido", in.Reference, in.ActorID, false); compErr != nil {
			s.log.Error().
				Err(compErr).
				Str("product_id", in.ProductID).
				Str("reference", in.Reference).
				Msg("traslado parcial: la compensación también falló")
			return nil, fmt.Errorf("%w: pierna de entrada: %v, compensación: %v",
				domain.ErrPartialTransfer, err, compErr)
		}
		return nil, fmt.Errorf("pierna de entrada del traslado: %w", err)
	}
	return &TransferResult{Out: out, In: inTx}, nil
}

// SeedLevel siembra el nivel inicial de un par (producto, ubicación) con una
// cantidad absoluta. Es la única escritura absoluta permitida fuera del flujo
// de mutaciones y no genera entrada en el libro: sembrar dos veces la misma
// cantidad es idempotente.
func (s *MutationService) SeedLevel(ctx context.Context, productID, locationID string, quantity, minStock decimal.Decimal) error {
	if err := s.checkRefs(ctx, productID, locationID); err != nil {
		return err
	}
	release, err := s.locks.Acquire(ctx, LockKey(productID, locationID))
	if err != nil {
		return err
	}
	defer release()

	return s.txRunner.Run(ctx, func(levels repository.StockLevelRepository, _ repository.StockTransactionRepository) error {
		return levels.Upsert(ctx, &entity.StockLevel{
			ProductID:     productID,
			LocationID:    locationID,
			Quantity:      quantity,
			MinStockLevel: minStock,
			UpdatedAt:     time.Now(),
		})
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Internos
// ──────────────────────────────────────────────────────────────────────────────

type deltaInput struct {
	ProductID   string
	LocationID  string
	Delta       decimal.Decimal
	Type        string
	Reason      string
	Reference   string
	RelatedID   string
	ActorID     string
	CheckPolicy bool // aplicar la política de stock negativo
}

// applyDelta toma el lock del par y ejecuta la unidad lógica completa.
func (s *MutationService) applyDelta(ctx context.Context, in deltaInput) (*entity.StockTransaction, error) {
	if err := s.checkRefs(ctx, in.ProductID, in.LocationID); err != nil {
		return nil, err
	}
	release, err := s.locks.Acquire(ctx, LockKey(in.ProductID, in.LocationID))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.applyDeltaLocked(ctx, in)
}

// runLeg aplica una pierna de traslado. Los locks ya deben estar tomados.
func (s *MutationService) runLeg(
	ctx context.Context,
	productID, locationID string,
	delta decimal.Decimal,
	txType, reason, reference, actorID string,
	checkPolicy bool,
) (*entity.StockTransaction, error) {
	return s.applyDeltaLocked(ctx, deltaInput{
		ProductID:   productID,
		LocationID:  locationID,
		Delta:       delta,
		Type:        txType,
		Reason:      reason,
		Reference:   reference,
		ActorID:     actorID,
		CheckPolicy: checkPolicy,
	})
}

func (s *MutationService) applyDeltaLocked(ctx context.Context, in deltaInput) (*entity.StockTransaction, error) {
	var created *entity.StockTransaction
	err := s.txRunner.Run(ctx, func(levels repository.StockLevelRepository, txns repository.StockTransactionRepository) error {
		level, err := levels.GetForUpdate(ctx, in.ProductID, in.LocationID)
		if err != nil {
			return err
		}
		if in.CheckPolicy && !s.policy.AllowNegativeStock && level.Quantity.Add(in.Delta).IsNegative() {
			return domain.ErrInsufficientStock
		}
		created, err = s.writePair(ctx, levels, txns, level, in.Delta, in.Type, in.Reason, in.Reference, in.RelatedID, in.ActorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// writePair hace el append al libro y la escritura del nivel como par. El
// PreviousQuantity sale de la lectura bloqueada dentro de la misma unidad
// atómica, así que el invariante pre/post queda garantizado por construcción;
// Append lo re-valida igual como segunda línea de defensa.
func (s *MutationService) writePair(
	ctx context.Context,
	levels repository.StockLevelRepository,
	txns repository.StockTransactionRepository,
	level *entity.StockLevel,
	delta decimal.Decimal,
	txType, reason, reference, relatedID, actorID string,
) (*entity.StockTransaction, error) {
	now := time.Now()
	tx := &entity.StockTransaction{
		ID:               uuid.New().String(),
		ProductID:        level.ProductID,
		LocationID:       level.LocationID,
		Type:             txType,
		Quantity:         delta,
		PreviousQuantity: level.Quantity,
		NewQuantity:      level.Quantity.Add(delta),
		Reason:           reason,
		Reference:        reference,
		RelatedID:        relatedID,
		CreatedBy:        actorID,
		CreatedAt:        now,
	}
	if err := txns.Append(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			s.log.Error().
				Str("product_id", tx.ProductID).
				Str("location_id", tx.LocationID).
				Str("type", tx.Type).
				Str("reference", tx.Reference).
				Msg("append rechazado por invariante del kardex")
		}
		return nil, err
	}
	level.Quantity = tx.NewQuantity
	level.UpdatedAt = now
	if err := levels.Upsert(ctx, level); err != nil {
		return nil, err
	}
	return tx, nil
}

// checkRefs valida que producto y ubicación existan.
func (s *MutationService) checkRefs(ctx context.Context, productID, locationID string) error {
	if productID == "" || locationID == "" {
		return domain.ErrInvalidInput
	}
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return domain.ErrProductNotFound
	}
	if _, err := s.locationRepo.GetByID(ctx, locationID); err != nil {
		return domain.ErrLocationNotFound
	}
	return nil
}

package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testProductID  = "prod-001"
	testProductID2 = "prod-002"
	testLocMain    = "loc-principal"
	testLocAux     = "loc-bodega"
	testActor      = "operador-test"
)

// newFixture arma el servicio de mutaciones sobre el backend en memoria con
// producto y dos ubicaciones sembrados.
func newFixture(t *testing.T, policy ledger.Policy) (*ledger.MutationService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedProduct(&entity.Product{ID: testProductID, SKU: "SKU-001", Name: "Arroz 500g", UnitCost: decimal.NewFromInt(2500)})
	store.SeedProduct(&entity.Product{ID: testProductID2, SKU: "SKU-002", Name: "Café molido", UnitCost: decimal.NewFromInt(12000)})
	store.SeedLocation(&entity.Location{ID: testLocMain, Code: "PRIN", Name: "Local principal"})
	store.SeedLocation(&entity.Location{ID: testLocAux, Code: "BOD", Name: "Bodega"})

	svc := ledger.NewMutationService(
		memory.NewTxRunner(store),
		store.Products(),
		store.Locations(),
		ledger.NewKeyLock(0),
		policy,
		logger.Nop(),
	)
	return svc, store
}

// seedLevel siembra una cantidad inicial sin pasar por el libro.
func seedLevel(t *testing.T, svc *ledger.MutationService, productID, locationID string, qty int64) {
	t.Helper()
	err := svc.SeedLevel(context.Background(), productID, locationID, decimal.NewFromInt(qty), decimal.Zero)
	require.NoError(t, err)
}

// levelQty lee la cantidad actual de un par.
func levelQty(t *testing.T, store *memory.Store, productID, locationID string) decimal.Decimal {
	t.Helper()
	lv, err := store.Levels().Get(context.Background(), productID, locationID)
	require.NoError(t, err)
	return lv.Quantity
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventas y compras
// ──────────────────────────────────────────────────────────────────────────────

// Una venta de 5 sobre un nivel de 100 deja 95 y una entrada en el libro con
// delta -5 y pre/post correctos.
func TestApplySale_DescuentaYRegistraEnLibro(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 100)

	tx, err := svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(5),
		Reference:  "FAC-0001",
		RelatedID:  "venta-77",
		ActorID:    testActor,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TxTypeSale, tx.Type)
	assert.True(t, tx.Quantity.Equal(decimal.NewFromInt(-5)), "el delta de una venta es negativo")
	assert.True(t, tx.PreviousQuantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, tx.NewQuantity.Equal(decimal.NewFromInt(95)))
	assert.Equal(t, "FAC-0001", tx.Reference)
	assert.Equal(t, "venta-77", tx.RelatedID)
	assert.Equal(t, testActor, tx.CreatedBy)
	assert.NotEmpty(t, tx.ID)

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(95)))

	stored, err := store.Transactions().GetByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.NewQuantity.Equal(decimal.NewFromInt(95)))
}

func TestApplySale_CantidadNoPositivaEsInvalida(t *testing.T) {
	svc, _ := newFixture(t, ledger.Policy{AllowNegativeStock: true})

	_, err := svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(-3),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Con la política permisiva (default del negocio) una venta puede dejar el
// nivel en negativo: venta de emergencia / backorder.
func TestApplySale_StockNegativoPermitido(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 2)

	tx, err := svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(5),
		Reference:  "FAC-0002",
	})
	require.NoError(t, err)
	assert.True(t, tx.NewQuantity.Equal(decimal.NewFromInt(-3)))
	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(-3)))
}

// Con la política estricta la misma venta se rechaza y no queda rastro ni en
// el nivel ni en el libro.
func TestApplySale_PoliticaEstrictaRechazaNegativo(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: false})
	seedLevel(t, svc, testProductID, testLocMain, 2)

	_, err := svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(2)), "el nivel no debe cambiar")
	txs, err := store.Transactions().ListByProduct(context.Background(), testProductID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "una venta rechazada no deja entrada en el libro")
}

// Vender exactamente el stock disponible bajo política estricta es válido:
// el nivel queda en cero, no negativo.
func TestApplySale_PoliticaEstrictaPermiteQuedarEnCero(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: false})
	seedLevel(t, svc, testProductID, testLocMain, 5)

	_, err := svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.True(t, levelQty(t, store, testProductID, testLocMain).IsZero())
}

func TestApplyPurchaseReceipt_SumaSobreParSinNivel(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})

	// Sin SeedLevel previo: un par desconocido se lee como cantidad cero.
	tx, err := svc.ApplyPurchaseReceipt(context.Background(), ledger.PurchaseInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(40),
		Reference:  "OC-100",
		ActorID:    testActor,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TxTypePurchase, tx.Type)
	assert.True(t, tx.PreviousQuantity.IsZero())
	assert.True(t, tx.NewQuantity.Equal(decimal.NewFromInt(40)))
	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(40)))
}

func TestMutaciones_ProductoOUbicacionInexistente(t *testing.T) {
	svc, _ := newFixture(t, ledger.Policy{AllowNegativeStock: true})

	_, err := svc.ApplySale(context.Background(), ledger.SaleInput{
		ProductID:  "prod-fantasma",
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.ApplyPurchaseReceipt(context.Background(), ledger.PurchaseInput{
		ProductID:  testProductID,
		LocationID: "loc-fantasma",
		Quantity:   decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas, salidas y ajustes
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterEntryYExit_MovimientosManuales(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 10)

	entry, err := svc.RegisterEntry(context.Background(), ledger.EntryInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(3),
		Reason:     "devolución de cliente",
		ActorID:    testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TxTypeEntry, entry.Type)
	assert.True(t, entry.NewQuantity.Equal(decimal.NewFromInt(13)))

	exit, err := svc.RegisterExit(context.Background(), ledger.ExitInput{
		ProductID:  testProductID,
		LocationID: testLocMain,
		Quantity:   decimal.NewFromInt(4),
		Reason:     "merma por vencimiento",
		ActorID:    testActor,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TxTypeExit, exit.Type)
	assert.True(t, exit.Quantity.Equal(decimal.NewFromInt(-4)))
	assert.Equal(t, "merma por vencimiento", exit.Reason)

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(9)))
}

// El ajuste lleva el nivel a la cantidad física observada; el delta lo calcula
// el servicio, nunca el caller.
func TestApplyAdjustment_AjustaAFisico(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 50)

	tx, err := svc.ApplyAdjustment(context.Background(), ledger.AdjustmentInput{
		ProductID:        testProductID,
		LocationID:       testLocMain,
		PhysicalQuantity: decimal.NewFromInt(47),
		Reason:           "conteo de góndola",
		ActorID:          testActor,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TxTypeAdjustment, tx.Type)
	assert.True(t, tx.Quantity.Equal(decimal.NewFromInt(-3)), "delta = físico - sistema")
	assert.True(t, tx.NewQuantity.Equal(decimal.NewFromInt(47)))
	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(47)))
}

// Un ajuste con delta cero es válido y queda en el libro: documenta que el
// nivel fue auditado sin diferencia.
func TestApplyAdjustment_DeltaCeroSePersiste(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 20)

	tx, err := svc.ApplyAdjustment(context.Background(), ledger.AdjustmentInput{
		ProductID:        testProductID,
		LocationID:       testLocMain,
		PhysicalQuantity: decimal.NewFromInt(20),
		Reason:           "auditoría sin diferencia",
		ActorID:          testActor,
	})
	require.NoError(t, err)
	assert.True(t, tx.Quantity.IsZero())
	assert.True(t, tx.PreviousQuantity.Equal(tx.NewQuantity))

	txs, err := store.Transactions().ListByProduct(context.Background(), testProductID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

// Un traslado conserva el total del producto: dos piernas con la misma
// referencia, transfer_out en origen y transfer_in en destino.
func TestApplyTransfer_ConservaElTotal(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 80)
	seedLevel(t, svc, testProductID, testLocAux, 5)

	res, err := svc.ApplyTransfer(context.Background(), ledger.TransferInput{
		ProductID:        testProductID,
		SourceLocationID: testLocMain,
		TargetLocationID: testLocAux,
		Quantity:         decimal.NewFromInt(30),
		Reference:        "TRF-1",
		ActorID:          testActor,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TxTypeTransferOut, res.Out.Type)
	assert.Equal(t, entity.TxTypeTransferIn, res.In.Type)
	assert.Equal(t, "TRF-1", res.Out.Reference)
	assert.Equal(t, "TRF-1", res.In.Reference)
	assert.True(t, res.Out.Quantity.Equal(decimal.NewFromInt(-30)))
	assert.True(t, res.In.Quantity.Equal(decimal.NewFromInt(30)))

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(50)))
	assert.True(t, levelQty(t, store, testProductID, testLocAux).Equal(decimal.NewFromInt(35)))

	total, err := store.Levels().TotalQuantity(context.Background(), testProductID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(85)), "el traslado no crea ni destruye stock")

	legs, err := store.Transactions().ListByReference(context.Background(), "TRF-1")
	require.NoError(t, err)
	assert.Len(t, legs, 2, "ambas piernas comparten la referencia")
}

func TestApplyTransfer_MismaUbicacionEsInvalido(t *testing.T) {
	svc, _ := newFixture(t, ledger.Policy{AllowNegativeStock: true})

	_, err := svc.ApplyTransfer(context.Background(), ledger.TransferInput{
		ProductID:        testProductID,
		SourceLocationID: testLocMain,
		TargetLocationID: testLocMain,
		Quantity:         decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Con política estricta un traslado mayor al disponible se rechaza en la
// pierna de salida, antes de tocar el destino.
func TestApplyTransfer_PoliticaEstrictaRechazaSinStock(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: false})
	seedLevel(t, svc, testProductID, testLocMain, 10)

	_, err := svc.ApplyTransfer(context.Background(), ledger.TransferInput{
		ProductID:        testProductID,
		SourceLocationID: testLocMain,
		TargetLocationID: testLocAux,
		Quantity:         decimal.NewFromInt(11),
		Reference:        "TRF-2",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(10)))
	assert.True(t, levelQty(t, store, testProductID, testLocAux).IsZero())
	legs, err := store.Transactions().ListByReference(context.Background(), "TRF-2")
	require.NoError(t, err)
	assert.Empty(t, legs)
}

// ──────────────────────────────────────────────────────────────────────────────
// SeedLevel
// ──────────────────────────────────────────────────────────────────────────────

// Sembrar un nivel escribe la cantidad absoluta sin generar entrada en el
// libro, y repetir la misma siembra es idempotente.
func TestSeedLevel_SinEntradaEnLibroEIdempotente(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})

	seedLevel(t, svc, testProductID, testLocMain, 100)
	seedLevel(t, svc, testProductID, testLocMain, 100)

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(100)))
	txs, err := store.Transactions().ListByProduct(context.Background(), testProductID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

// Ventas concurrentes sobre el mismo par se serializan: el nivel final es
// exacto y la cadena pre/post del libro no tiene huecos ni solapes.
func TestApplySale_ConcurrenciaSerializada(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 500)

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.ApplySale(context.Background(), ledger.SaleInput{
				ProductID:  testProductID,
				LocationID: testLocMain,
				Quantity:   decimal.NewFromInt(2),
				Reference:  "FAC-CONC",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, levelQty(t, store, testProductID, testLocMain).Equal(decimal.NewFromInt(450)))

	// La cadena del libro debe ser contigua: cada NewQuantity es el
	// PreviousQuantity de la entrada siguiente.
	txs, err := store.Transactions().ListByProduct(context.Background(), testProductID, nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, workers)
	for i := 1; i < len(txs); i++ {
		assert.True(t, txs[i].PreviousQuantity.Equal(txs[i-1].NewQuantity),
			"entrada %d: la cadena pre/post no debe tener huecos", i)
	}
}

// Traslados en direcciones opuestas sobre el mismo producto no se
// interbloquean: los locks se toman en orden lexicográfico.
func TestApplyTransfer_DireccionesOpuestasSinDeadlock(t *testing.T) {
	svc, store := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	seedLevel(t, svc, testProductID, testLocMain, 100)
	seedLevel(t, svc, testProductID, testLocAux, 100)

	const rounds = 10
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := svc.ApplyTransfer(context.Background(), ledger.TransferInput{
				ProductID:        testProductID,
				SourceLocationID: testLocMain,
				TargetLocationID: testLocAux,
				Quantity:         decimal.NewFromInt(1),
				Reference:        "TRF-IDA",
			})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := svc.ApplyTransfer(context.Background(), ledger.TransferInput{
				ProductID:        testProductID,
				SourceLocationID: testLocAux,
				TargetLocationID: testLocMain,
				Quantity:         decimal.NewFromInt(1),
				Reference:        "TRF-VUELTA",
			})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	total, err := store.Levels().TotalQuantity(context.Background(), testProductID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(200)))
}

package count_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Kardex-api/internal/application/count"
	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	domledger "github.com/jhoicas/Kardex-api/internal/domain/ledger"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	prodArroz = "prod-arroz"
	prodCafe  = "prod-cafe"
	locTienda = "loc-tienda"
)

// newFixture arma motor de conteos + servicio de mutaciones sobre memoria, con
// dos productos sembrados: arroz a 100 unidades y café a 40.
func newFixture(t *testing.T, policy domledger.VariancePolicy) (*count.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedProduct(&entity.Product{ID: prodArroz, SKU: "ARZ", Name: "Arroz 500g", UnitCost: decimal.NewFromInt(2500)})
	store.SeedProduct(&entity.Product{ID: prodCafe, SKU: "CAF", Name: "Café molido", UnitCost: decimal.NewFromInt(12000)})
	store.SeedLocation(&entity.Location{ID: locTienda, Code: "TDA", Name: "Tienda"})

	mutations := ledger.NewMutationService(
		memory.NewTxRunner(store),
		store.Products(),
		store.Locations(),
		ledger.NewKeyLock(0),
		ledger.Policy{AllowNegativeStock: true},
		logger.Nop(),
	)
	require.NoError(t, mutations.SeedLevel(context.Background(), prodArroz, locTienda, decimal.NewFromInt(100), decimal.Zero))
	require.NoError(t, mutations.SeedLevel(context.Background(), prodCafe, locTienda, decimal.NewFromInt(40), decimal.Zero))

	engine := count.NewEngine(
		store.Counts(), store.Levels(), store.Products(), store.Locations(),
		mutations, policy, logger.Nop(),
	)
	return engine, store
}

// newInProgress crea un conteo full y lo arranca.
func newInProgress(t *testing.T, engine *count.Engine) *entity.InventoryCount {
	t.Helper()
	cnt, err := engine.CreateCount(context.Background(), count.CreateInput{
		Name:       "conteo mensual",
		Type:       entity.CountTypeFull,
		LocationID: locTienda,
		CreatedBy:  "supervisora",
	})
	require.NoError(t, err)
	require.NoError(t, engine.StartCounting(context.Background(), cnt.ID))
	return cnt
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación y foto del sistema
// ──────────────────────────────────────────────────────────────────────────────

// Un conteo full congela la foto del sistema de todos los productos con nivel
// en la ubicación, en estado draft.
func TestCreateCount_FullCongelaFoto(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})

	cnt, err := engine.CreateCount(context.Background(), count.CreateInput{
		Name:       "conteo mensual",
		Type:       entity.CountTypeFull,
		LocationID: locTienda,
		CreatedBy:  "supervisora",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusDraft, cnt.Status)
	assert.Equal(t, 2, cnt.TotalProducts)

	_, items, err := engine.GetCount(context.Background(), cnt.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	byID := map[string]*entity.InventoryCountItem{}
	for _, it := range items {
		byID[it.ProductID] = it
		assert.Equal(t, entity.CountItemPending, it.Status)
	}
	assert.True(t, byID[prodArroz].SystemQuantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, byID[prodArroz].UnitCost.Equal(decimal.NewFromInt(2500)))
	assert.True(t, byID[prodCafe].SystemQuantity.Equal(decimal.NewFromInt(40)))
}

// Un conteo partial sobre un producto sin nivel registrado entra con foto
// cero, no con error.
func TestCreateCount_PartialProductoSinNivel(t *testing.T) {
	engine, store := newFixture(t, domledger.VariancePolicy{})
	store.SeedProduct(&entity.Product{ID: "prod-nuevo", SKU: "NVO", Name: "Producto nuevo", UnitCost: decimal.NewFromInt(900)})

	cnt, err := engine.CreateCount(context.Background(), count.CreateInput{
		Name:       "conteo parcial",
		Type:       entity.CountTypePartial,
		LocationID: locTienda,
		ProductIDs: []string{"prod-nuevo"},
	})
	require.NoError(t, err)

	_, items, err := engine.GetCount(context.Background(), cnt.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].SystemQuantity.IsZero())
}

func TestCreateCount_EntradasInvalidas(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})
	ctx := context.Background()

	_, err := engine.CreateCount(ctx, count.CreateInput{Type: entity.CountTypeFull, LocationID: locTienda})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin nombre")

	_, err = engine.CreateCount(ctx, count.CreateInput{Name: "x", Type: entity.CountTypePartial, LocationID: locTienda})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "partial sin productos")

	_, err = engine.CreateCount(ctx, count.CreateInput{Name: "x", Type: "semanal", LocationID: locTienda})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "tipo desconocido")

	_, err = engine.CreateCount(ctx, count.CreateInput{Name: "x", Type: entity.CountTypeFull, LocationID: "loc-fantasma"})
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida
// ──────────────────────────────────────────────────────────────────────────────

// Registrar una cantidad física exige que el conteo esté in_progress.
func TestRecordPhysicalCount_ExigeInProgress(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})

	cnt, err := engine.CreateCount(context.Background(), count.CreateInput{
		Name:       "conteo",
		Type:       entity.CountTypeFull,
		LocationID: locTienda,
	})
	require.NoError(t, err)

	_, err = engine.RecordPhysicalCount(context.Background(), cnt.ID, prodArroz, decimal.NewFromInt(95))
	assert.ErrorIs(t, err, domain.ErrCountState, "en draft no se cuenta")
}

// La varianza es físico - sistema y su valor usa el costo congelado al crear
// la sesión. Re-contar sobreescribe (last write wins).
func TestRecordPhysicalCount_VarianzaYReconteo(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})
	cnt := newInProgress(t, engine)

	item, err := engine.RecordPhysicalCount(context.Background(), cnt.ID, prodArroz, decimal.NewFromInt(95))
	require.NoError(t, err)
	assert.Equal(t, entity.CountItemCounted, item.Status)
	assert.True(t, item.Variance.Equal(decimal.NewFromInt(-5)), "faltante")
	assert.True(t, item.VarianceValue.Equal(decimal.NewFromInt(-12500)), "varianza * costo unitario")

	item, err = engine.RecordPhysicalCount(context.Background(), cnt.ID, prodArroz, decimal.NewFromInt(102))
	require.NoError(t, err)
	assert.True(t, item.Variance.Equal(decimal.NewFromInt(2)), "sobrante tras re-conteo")
}

func TestRecordPhysicalCount_CantidadNegativaEsInvalida(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})
	cnt := newInProgress(t, engine)

	_, err := engine.RecordPhysicalCount(context.Background(), cnt.ID, prodArroz, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerifyItem_SoloLineasContadas(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})
	cnt := newInProgress(t, engine)

	err := engine.VerifyItem(context.Background(), cnt.ID, prodArroz)
	assert.ErrorIs(t, err, domain.ErrCountState, "una línea pending no se verifica")

	_, err = engine.RecordPhysicalCount(context.Background(), cnt.ID, prodArroz, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, engine.VerifyItem(context.Background(), cnt.ID, prodArroz))
}

// ──────────────────────────────────────────────────────────────────────────────
// Finalización
// ──────────────────────────────────────────────────────────────────────────────

// Finalize emite exactamente un ajuste por línea contada con varianza, con
// Reference = id del conteo, y deja los niveles en la cantidad física.
func TestFinalize_EmiteAjustesYActualizaStock(t *testing.T) {
	engine, store := newFixture(t, domledger.VariancePolicy{})
	cnt := newInProgress(t, engine)
	ctx := context.Background()

	_, err := engine.RecordPhysicalCount(ctx, cnt.ID, prodArroz, decimal.NewFromInt(95)) // faltante de 5
	require.NoError(t, err)
	_, err = engine.RecordPhysicalCount(ctx, cnt.ID, prodCafe, decimal.NewFromInt(40)) // sin diferencia
	require.NoError(t, err)

	sum, err := engine.Finalize(ctx, cnt.ID, "supervisora")
	require.NoError(t, err)

	assert.Equal(t, entity.CountStatusCompleted, sum.Count.Status)
	assert.Equal(t, 2, sum.Count.CountedProducts)
	assert.Equal(t, 1, sum.Count.TotalVariances)
	assert.NotNil(t, sum.Count.CompletedAt)
	require.Len(t, sum.Adjustments, 1, "solo la línea con varianza genera ajuste")

	adj := sum.Adjustments[0]
	assert.Equal(t, entity.TxTypeAdjustment, adj.Type)
	assert.Equal(t, cnt.ID, adj.Reference, "el ajuste referencia la sesión de conteo")
	assert.Equal(t, prodArroz, adj.ProductID)
	assert.True(t, adj.Quantity.Equal(decimal.NewFromInt(-5)))

	lv, err := store.Levels().Get(ctx, prodArroz, locTienda)
	require.NoError(t, err)
	assert.True(t, lv.Quantity.Equal(decimal.NewFromInt(95)))

	// TotalVariance suma valores absolutos: |-5| * 2500.
	assert.True(t, sum.TotalVariance.Equal(decimal.NewFromInt(12500)))
	assert.False(t, sum.Critical, "sin umbral configurado nada es crítico")
}

// Con umbral configurado, una varianza de valor superior marca el conteo como
// crítico.
func TestFinalize_VarianzaCritica(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{CriticalValueThreshold: decimal.NewFromInt(10000)})
	cnt := newInProgress(t, engine)
	ctx := context.Background()

	_, err := engine.RecordPhysicalCount(ctx, cnt.ID, prodArroz, decimal.NewFromInt(95))
	require.NoError(t, err)

	sum, err := engine.Finalize(ctx, cnt.ID, "supervisora")
	require.NoError(t, err)
	assert.True(t, sum.Critical, "12500 supera el umbral de 10000")
}

// Las líneas pending no generan ajuste: un conteo finalizado a medias solo
// ajusta lo contado.
func TestFinalize_IgnoraLineasPendientes(t *testing.T) {
	engine, store := newFixture(t, domledger.VariancePolicy{})
	cnt := newInProgress(t, engine)
	ctx := context.Background()

	_, err := engine.RecordPhysicalCount(ctx, cnt.ID, prodCafe, decimal.NewFromInt(38))
	require.NoError(t, err)

	sum, err := engine.Finalize(ctx, cnt.ID, "supervisora")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count.CountedProducts)
	require.Len(t, sum.Adjustments, 1)

	// El arroz (pending) no se toca.
	lv, err := store.Levels().Get(ctx, prodArroz, locTienda)
	require.NoError(t, err)
	assert.True(t, lv.Quantity.Equal(decimal.NewFromInt(100)))
}

func TestFinalize_ExigeInProgress(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})
	ctx := context.Background()

	cnt, err := engine.CreateCount(ctx, count.CreateInput{
		Name: "conteo", Type: entity.CountTypeFull, LocationID: locTienda,
	})
	require.NoError(t, err)

	_, err = engine.Finalize(ctx, cnt.ID, "supervisora")
	assert.ErrorIs(t, err, domain.ErrCountState, "un draft no se finaliza")

	require.NoError(t, engine.StartCounting(ctx, cnt.ID))
	_, err = engine.Finalize(ctx, cnt.ID, "supervisora")
	require.NoError(t, err)

	_, err = engine.Finalize(ctx, cnt.ID, "supervisora")
	assert.ErrorIs(t, err, domain.ErrCountState, "completed es terminal")
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación
// ──────────────────────────────────────────────────────────────────────────────

// Cancelar descarta las cantidades físicas registradas sin tocar stock.
func TestCancel_NoMutaStock(t *testing.T) {
	engine, store := newFixture(t, domledger.VariancePolicy{})
	cnt := newInProgress(t, engine)
	ctx := context.Background()

	_, err := engine.RecordPhysicalCount(ctx, cnt.ID, prodArroz, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, engine.Cancel(ctx, cnt.ID))

	got, _, err := engine.GetCount(ctx, cnt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusCancelled, got.Status)

	lv, err := store.Levels().Get(ctx, prodArroz, locTienda)
	require.NoError(t, err)
	assert.True(t, lv.Quantity.Equal(decimal.NewFromInt(100)), "cancelar no ajusta niveles")

	txs, err := store.Transactions().ListByReference(ctx, cnt.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	err = engine.Cancel(ctx, cnt.ID)
	assert.ErrorIs(t, err, domain.ErrCountState, "cancelled es terminal")
}

func TestGetCount_Inexistente(t *testing.T) {
	engine, _ := newFixture(t, domledger.VariancePolicy{})

	_, _, err := engine.GetCount(context.Background(), "conteo-fantasma")
	assert.ErrorIs(t, err, domain.ErrCountNotFound)
}

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

func newTxn(id string, prev, delta int64) *entity.StockTransaction {
	return &entity.StockTransaction{
		ID:               id,
		ProductID:        "prod-1",
		LocationID:       "loc-1",
		Type:             entity.TxTypeEntry,
		Quantity:         decimal.NewFromInt(delta),
		PreviousQuantity: decimal.NewFromInt(prev),
		NewQuantity:      decimal.NewFromInt(prev + delta),
		CreatedAt:        time.Now(),
	}
}

// Un par sin nivel registrado se lee como cantidad cero, nunca como error.
func TestLevels_ParDesconocidoEsCero(t *testing.T) {
	store := memory.NewStore()

	lv, err := store.Levels().Get(context.Background(), "prod-x", "loc-x")
	require.NoError(t, err)
	assert.True(t, lv.Quantity.IsZero())
	assert.Equal(t, "prod-x", lv.ProductID)
	assert.Equal(t, "loc-x", lv.LocationID)
}

func TestTransactions_AppendValidaInvariante(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	bad := newTxn("tx-1", 10, 5)
	bad.NewQuantity = decimal.NewFromInt(99)
	err := store.Transactions().Append(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	require.NoError(t, store.Transactions().Append(ctx, newTxn("tx-1", 10, 5)))
	err = store.Transactions().Append(ctx, newTxn("tx-1", 15, 1))
	assert.ErrorIs(t, err, domain.ErrDuplicate, "el libro rechaza ids repetidos")
}

func TestTransactions_ListConFiltroYPaginacion(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	prev := int64(0)
	for i := 0; i < 5; i++ {
		tx := newTxn("", prev, 1)
		tx.ID = string(rune('a' + i))
		require.NoError(t, store.Transactions().Append(ctx, tx))
		prev++
	}

	page, err := store.Transactions().ListByProduct(ctx, "prod-1", nil, nil, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID, "orden de creación con offset 1")
	assert.Equal(t, "c", page[1].ID)

	none, err := store.Transactions().ListByProduct(ctx, "prod-otro", nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// Si fn falla dentro de la unidad atómica, nivel y libro vuelven al estado
// previo: la escritura del nivel y el append ocurren ambos o ninguno.
func TestTxRunner_RollbackRestauraNivelYLibro(t *testing.T) {
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)
	ctx := context.Background()

	require.NoError(t, store.Levels().Upsert(ctx, &entity.StockLevel{
		ProductID: "prod-1", LocationID: "loc-1", Quantity: decimal.NewFromInt(10),
	}))

	boom := errors.New("fallo simulado")
	err := runner.Run(ctx, func(levels repository.StockLevelRepository, txns repository.StockTransactionRepository) error {
		if err := txns.Append(ctx, newTxn("tx-rollback", 10, 5)); err != nil {
			return err
		}
		if err := levels.Upsert(ctx, &entity.StockLevel{
			ProductID: "prod-1", LocationID: "loc-1", Quantity: decimal.NewFromInt(15),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	lv, err := store.Levels().Get(ctx, "prod-1", "loc-1")
	require.NoError(t, err)
	assert.True(t, lv.Quantity.Equal(decimal.NewFromInt(10)), "el nivel vuelve al valor previo")

	_, err = store.Transactions().GetByID(ctx, "tx-rollback")
	assert.ErrorIs(t, err, domain.ErrNotFound, "el append se revierte junto con el nivel")
}

func TestTxRunner_CommitPersiste(t *testing.T) {
	store := memory.NewStore()
	runner := memory.NewTxRunner(store)
	ctx := context.Background()

	err := runner.Run(ctx, func(levels repository.StockLevelRepository, txns repository.StockTransactionRepository) error {
		if err := txns.Append(ctx, newTxn("tx-ok", 0, 7)); err != nil {
			return err
		}
		return levels.Upsert(ctx, &entity.StockLevel{
			ProductID: "prod-1", LocationID: "loc-1", Quantity: decimal.NewFromInt(7),
		})
	})
	require.NoError(t, err)

	lv, err := store.Levels().Get(ctx, "prod-1", "loc-1")
	require.NoError(t, err)
	assert.True(t, lv.Quantity.Equal(decimal.NewFromInt(7)))

	tx, err := store.Transactions().GetByID(ctx, "tx-ok")
	require.NoError(t, err)
	assert.True(t, tx.NewQuantity.Equal(decimal.NewFromInt(7)))
}

func TestCounts_CicloCRUD(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	repo := store.Counts()

	cnt := &entity.InventoryCount{
		ID: "cnt-1", Name: "conteo", Type: entity.CountTypeFull,
		LocationID: "loc-1", Status: entity.CountStatusDraft, CreatedAt: time.Now(),
	}
	items := []*entity.InventoryCountItem{
		{CountID: "cnt-1", ProductID: "prod-1", LocationID: "loc-1", SystemQuantity: decimal.NewFromInt(3), Status: entity.CountItemPending},
	}
	require.NoError(t, repo.CreateCount(ctx, cnt, items))
	assert.ErrorIs(t, repo.CreateCount(ctx, cnt, nil), domain.ErrDuplicate)

	got, err := repo.GetCount(ctx, "cnt-1")
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusDraft, got.Status)

	got.Status = entity.CountStatusInProgress
	require.NoError(t, repo.UpdateCount(ctx, got))

	item, err := repo.GetItem(ctx, "cnt-1", "prod-1")
	require.NoError(t, err)
	item.PhysicalQuantity = decimal.NewFromInt(2)
	item.Status = entity.CountItemCounted
	require.NoError(t, repo.UpsertItem(ctx, item))

	list, err := repo.ListItems(ctx, "cnt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.CountItemCounted, list[0].Status)

	_, err = repo.GetCount(ctx, "cnt-otro")
	assert.ErrorIs(t, err, domain.ErrCountNotFound)
}

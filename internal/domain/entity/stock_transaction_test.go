package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

func validTxn() *entity.StockTransaction {
	return &entity.StockTransaction{
		ID:               "tx-1",
		ProductID:        "prod-1",
		LocationID:       "loc-1",
		Type:             entity.TxTypeSale,
		Quantity:         decimal.NewFromInt(-5),
		PreviousQuantity: decimal.NewFromInt(100),
		NewQuantity:      decimal.NewFromInt(95),
	}
}

func TestStockTransaction_Validate(t *testing.T) {
	assert.NoError(t, validTxn().Validate())

	tx := validTxn()
	tx.ProductID = ""
	assert.ErrorIs(t, tx.Validate(), domain.ErrInvalidInput)

	tx = validTxn()
	tx.Type = "prestamo"
	assert.ErrorIs(t, tx.Validate(), domain.ErrInvalidInput)

	tx = validTxn()
	tx.NewQuantity = decimal.NewFromInt(90)
	assert.ErrorIs(t, tx.Validate(), domain.ErrInvariantViolation)
}

// El invariante acepta escalas distintas mientras los valores sean iguales:
// 95 y 95.00 son la misma cantidad.
func TestStockTransaction_Validate_EscalaDecimal(t *testing.T) {
	tx := validTxn()
	tx.NewQuantity = decimal.RequireFromString("95.00")
	assert.NoError(t, tx.Validate())
}

// Un delta cero con pre == post es una entrada válida (ajuste de auditoría).
func TestStockTransaction_Validate_DeltaCero(t *testing.T) {
	tx := validTxn()
	tx.Type = entity.TxTypeAdjustment
	tx.Quantity = decimal.Zero
	tx.NewQuantity = tx.PreviousQuantity
	assert.NoError(t, tx.Validate())
}

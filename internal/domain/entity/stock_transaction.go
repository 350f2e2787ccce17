package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
)

// Tipos de transacción del kardex.
const (
	TxTypeEntry       = "entry"        // entrada manual
	TxTypeExit        = "exit"         // salida manual
	TxTypeSale        = "sale"         // venta (delta negativo)
	TxTypePurchase    = "purchase"     // recepción de orden de compra
	TxTypeAdjustment  = "adjustment"   // ajuste de inventario (conteo, merma, anotación)
	TxTypeTransferIn  = "transfer_in"  // pierna de entrada de un traslado
	TxTypeTransferOut = "transfer_out" // pierna de salida de un traslado
)

// StockTransaction es una entrada inmutable del libro de movimientos: registra
// un cambio de cantidad con foto previa y posterior del nivel. Nunca se
// actualiza ni se borra; las correcciones se hacen con entradas compensatorias.
type StockTransaction struct {
	ID               string
	ProductID        string
	LocationID       string
	Type             string
	Quantity         decimal.Decimal // delta con signo
	PreviousQuantity decimal.Decimal // nivel antes de aplicar el delta
	NewQuantity      decimal.Decimal // nivel después de aplicar el delta
	Reason           string
	Reference        string // id de correlación con el documento de negocio (factura, OC, traslado, conteo)
	RelatedID        string // id del documento relacionado (venta, compra)
	CreatedBy        string
	CreatedAt        time.Time
}

// Validate verifica el invariante contable de la entrada:
// NewQuantity == PreviousQuantity + Quantity.
func (t *StockTransaction) Validate() error {
	if t.ProductID == "" || t.LocationID == "" {
		return domain.ErrInvalidInput
	}
	switch t.Type {
	case TxTypeEntry, TxTypeExit, TxTypeSale, TxTypePurchase,
		TxTypeAdjustment, TxTypeTransferIn, TxTypeTransferOut:
	default:
		return domain.ErrInvalidInput
	}
	if !t.NewQuantity.Equal(t.PreviousQuantity.Add(t.Quantity)) {
		return domain.ErrInvariantViolation
	}
	return nil
}

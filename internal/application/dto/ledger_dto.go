package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// SaleRequest body para POST /api/ledger/sales (una llamada por línea de factura).
type SaleRequest struct {
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"`  // número de factura
	RelatedID  string          `json:"related_id"` // id de la venta
}

// PurchaseRequest body para POST /api/ledger/purchases.
type PurchaseRequest struct {
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"` // número de orden de compra
	RelatedID  string          `json:"related_id,omitempty"`
}

// AdjustmentRequest body para POST /api/ledger/adjustments.
type AdjustmentRequest struct {
	ProductID        string          `json:"product_id"`
	LocationID       string          `json:"location_id"`
	PhysicalQuantity decimal.Decimal `json:"physical_quantity"`
	Reason           string          `json:"reason"`
	Reference        string          `json:"reference,omitempty"`
}

// TransferRequest body para POST /api/ledger/transfers.
type TransferRequest struct {
	ProductID        string          `json:"product_id"`
	SourceLocationID string          `json:"source_location_id"`
	TargetLocationID string          `json:"target_location_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Reference        string          `json:"reference"`
}

// MovementRequest body para POST /api/ledger/entries y /api/ledger/exits.
type MovementRequest struct {
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason,omitempty"`
	Reference  string          `json:"reference,omitempty"`
}

// SeedLevelRequest body para POST /api/stock/seed (siembra inicial).
type SeedLevelRequest struct {
	ProductID     string          `json:"product_id"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level,omitempty"`
}

// TransactionResponse una entrada del libro de movimientos.
type TransactionResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	LocationID       string          `json:"location_id"`
	Type             string          `json:"type"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	Reason           string          `json:"reason,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	RelatedID        string          `json:"related_id,omitempty"`
	CreatedBy        string          `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewTransactionResponse mapea la entidad al DTO de respuesta.
func NewTransactionResponse(tx *entity.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:               tx.ID,
		ProductID:        tx.ProductID,
		LocationID:       tx.LocationID,
		Type:             tx.Type,
		Quantity:         tx.Quantity,
		PreviousQuantity: tx.PreviousQuantity,
		NewQuantity:      tx.NewQuantity,
		Reason:           tx.Reason,
		Reference:        tx.Reference,
		RelatedID:        tx.RelatedID,
		CreatedBy:        tx.CreatedBy,
		CreatedAt:        tx.CreatedAt,
	}
}

// StockLevelResponse nivel actual de un par (producto, ubicación).
type StockLevelResponse struct {
	ProductID     string          `json:"product_id"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	BelowMinimum  bool            `json:"below_minimum"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewStockLevelResponse mapea la entidad al DTO de respuesta.
func NewStockLevelResponse(lv *entity.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ProductID:     lv.ProductID,
		LocationID:    lv.LocationID,
		Quantity:      lv.Quantity,
		MinStockLevel: lv.MinStockLevel,
		BelowMinimum:  lv.BelowMinimum(),
		UpdatedAt:     lv.UpdatedAt,
	}
}

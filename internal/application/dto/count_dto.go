package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/ledger"
)

// CreateCountRequest body para POST /api/counts.
type CreateCountRequest struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"` // full | partial
	LocationID string   `json:"location_id"`
	ProductIDs []string `json:"product_ids,omitempty"` // solo para partial
}

// RecordCountRequest body para POST /api/counts/:id/items.
type RecordCountRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CountResponse una sesión de conteo.
type CountResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	LocationID      string     `json:"location_id"`
	Status          string     `json:"status"`
	CreatedBy       string     `json:"created_by,omitempty"`
	TotalProducts   int        `json:"total_products"`
	CountedProducts int        `json:"counted_products"`
	TotalVariances  int        `json:"total_variances"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewCountResponse mapea la entidad al DTO de respuesta.
func NewCountResponse(c *entity.InventoryCount) CountResponse {
	return CountResponse{
		ID:              c.ID,
		Name:            c.Name,
		Type:            c.Type,
		LocationID:      c.LocationID,
		Status:          c.Status,
		CreatedBy:       c.CreatedBy,
		TotalProducts:   c.TotalProducts,
		CountedProducts: c.CountedProducts,
		TotalVariances:  c.TotalVariances,
		CreatedAt:       c.CreatedAt,
		CompletedAt:     c.CompletedAt,
	}
}

// CountItemResponse una línea de conteo con su clasificación de varianza.
type CountItemResponse struct {
	ProductID        string          `json:"product_id"`
	LocationID       string          `json:"location_id"`
	SystemQuantity   decimal.Decimal `json:"system_quantity"`
	PhysicalQuantity decimal.Decimal `json:"physical_quantity"`
	Variance         decimal.Decimal `json:"variance"`
	VarianceValue    decimal.Decimal `json:"variance_value"`
	Classification   string          `json:"classification"` // match | shortage | overage
	Status           string          `json:"status"`
}

// NewCountItemResponse mapea la línea al DTO de respuesta.
func NewCountItemResponse(it *entity.InventoryCountItem) CountItemResponse {
	return CountItemResponse{
		ProductID:        it.ProductID,
		LocationID:       it.LocationID,
		SystemQuantity:   it.SystemQuantity,
		PhysicalQuantity: it.PhysicalQuantity,
		Variance:         it.Variance,
		VarianceValue:    it.VarianceValue,
		Classification:   ledger.ClassifyVariance(it.Variance),
		Status:           it.Status,
	}
}

// FinalizeResponse resultado de POST /api/counts/:id/finalize.
type FinalizeResponse struct {
	Count         CountResponse         `json:"count"`
	Adjustments   []TransactionResponse `json:"adjustments"`
	TotalVariance decimal.Decimal       `json:"total_variance_value"`
	Critical      bool                  `json:"critical"`
}

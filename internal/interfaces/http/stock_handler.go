package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Kardex-api/internal/application/dto"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// StockHandler consultas de solo lectura para reportes y analítica: niveles
// actuales y libro de movimientos. No expone escritura alguna.
type StockHandler struct {
	levels repository.StockLevelRepository
	txns   repository.StockTransactionRepository
}

// NewStockHandler construye el handler con los repositorios de lectura
// (atados al pool, no a una tx).
func NewStockHandler(levels repository.StockLevelRepository, txns repository.StockTransactionRepository) *StockHandler {
	return &StockHandler{levels: levels, txns: txns}
}

// GetByProduct godoc
// @Summary      Niveles de un producto en todas las ubicaciones
// @Tags         stock
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  map[string]any
// @Router       /api/stock/{productId} [get]
func (h *StockHandler) GetByProduct(c *fiber.Ctx) error {
	productID := c.Params("productId")
	levels, err := h.levels.ListByProduct(c.Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	total, err := h.levels.TotalQuantity(c.Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.StockLevelResponse, 0, len(levels))
	for _, lv := range levels {
		out = append(out, dto.NewStockLevelResponse(lv))
	}
	return c.JSON(fiber.Map{
		"product_id":     productID,
		"total_quantity": total,
		"levels":         out,
	})
}

// GetLevel godoc
// @Summary      Nivel de un par (producto, ubicación)
// @Description  Un par sin nivel registrado responde cantidad cero.
// @Tags         stock
// @Produce      json
// @Param        productId   path  string  true  "ID del producto"
// @Param        locationId  path  string  true  "ID de la ubicación"
// @Success      200  {object}  dto.StockLevelResponse
// @Router       /api/stock/{productId}/{locationId} [get]
func (h *StockHandler) GetLevel(c *fiber.Ctx) error {
	lv, err := h.levels.Get(c.Context(), c.Params("productId"), c.Params("locationId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStockLevelResponse(lv))
}

// ListTransactions godoc
// @Summary      Listar entradas del libro de movimientos
// @Description  Filtra por product_id, location_id o reference (uno requerido).
// @Tags         stock
// @Produce      json
// @Param        product_id   query  string  false  "Filtrar por producto"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Param        reference    query  string  false  "Filtrar por referencia de documento"
// @Param        from         query  string  false  "Desde (RFC3339)"
// @Param        to           query  string  false  "Hasta (RFC3339)"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transactions [get]
func (h *StockHandler) ListTransactions(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	from := parseTimeQuery(c, "from")
	to := parseTimeQuery(c, "to")

	var (
		txs []*entity.StockTransaction
		err error
	)
	switch {
	case c.Query("reference") != "":
		txs, err = h.txns.ListByReference(c.Context(), c.Query("reference"))
	case c.Query("product_id") != "":
		txs, err = h.txns.ListByProduct(c.Context(), c.Query("product_id"), from, to, page.Limit, page.Offset)
	case c.Query("location_id") != "":
		txs, err = h.txns.ListByLocation(c.Context(), c.Query("location_id"), from, to, page.Limit, page.Offset)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: "indique product_id, location_id o reference",
		})
	}
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.NewTransactionResponse(tx))
	}
	return c.JSON(fiber.Map{"total": len(out), "transactions": out})
}

package http

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Kardex-api/internal/application/count"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/excel"
)

// CountHandler expone las sesiones de conteo físico, incluida la planilla
// XLSX para contar en piso.
type CountHandler struct {
	engine      *count.Engine
	productRepo repository.ProductRepository
}

// NewCountHandler construye el handler.
func NewCountHandler(engine *count.Engine, productRepo repository.ProductRepository) *CountHandler {
	return &CountHandler{engine: engine, productRepo: productRepo}
}

// Create godoc
// @Summary      Crear sesión de conteo (draft) con foto del sistema
// @Tags         counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCountRequest  true  "name, type (full|partial), location_id, product_ids (partial)"
// @Success      201   {object}  dto.CountResponse
// @Router       /api/counts [post]
func (h *CountHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCountRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	cnt, err := h.engine.CreateCount(c.Context(), count.CreateInput{
		Name:       in.Name,
		Type:       in.Type,
		LocationID: in.LocationID,
		ProductIDs: in.ProductIDs,
		CreatedBy:  GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCountResponse(cnt))
}

// Start godoc
// @Summary      Iniciar el conteo (draft → in_progress)
// @Tags         counts
// @Security     Bearer
// @Success      204
// @Router       /api/counts/{id}/start [post]
func (h *CountHandler) Start(c *fiber.Ctx) error {
	if err := h.engine.StartCounting(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RecordItem godoc
// @Summary      Registrar cantidad física de una línea (last write wins)
// @Tags         counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordCountRequest  true  "product_id, quantity"
// @Success      200   {object}  dto.CountItemResponse
// @Router       /api/counts/{id}/items [post]
func (h *CountHandler) RecordItem(c *fiber.Ctx) error {
	var in dto.RecordCountRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	item, err := h.engine.RecordPhysicalCount(c.Context(), c.Params("id"), in.ProductID, in.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewCountItemResponse(item))
}

// Finalize godoc
// @Summary      Finalizar: un ajuste por línea con varianza, referencia = id del conteo
// @Tags         counts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.FinalizeResponse
// @Router       /api/counts/{id}/finalize [post]
func (h *CountHandler) Finalize(c *fiber.Ctx) error {
	sum, err := h.engine.Finalize(c.Context(), c.Params("id"), GetOperatorID(c))
	if err != nil {
		return respondError(c, err)
	}
	adjustments := make([]dto.TransactionResponse, 0, len(sum.Adjustments))
	for _, adj := range sum.Adjustments {
		adjustments = append(adjustments, dto.NewTransactionResponse(adj))
	}
	return c.JSON(dto.FinalizeResponse{
		Count:         dto.NewCountResponse(sum.Count),
		Adjustments:   adjustments,
		TotalVariance: sum.TotalVariance,
		Critical:      sum.Critical,
	})
}

// VerifyItem godoc
// @Summary      Marcar una línea contada como verificada por supervisor
// @Tags         counts
// @Security     Bearer
// @Success      204
// @Router       /api/counts/{id}/items/{productId}/verify [post]
func (h *CountHandler) VerifyItem(c *fiber.Ctx) error {
	if err := h.engine.VerifyItem(c.Context(), c.Params("id"), c.Params("productId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List godoc
// @Summary      Listar sesiones de conteo (filtro opcional por ubicación)
// @Tags         counts
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Success      200  {object}  map[string]any
// @Router       /api/counts [get]
func (h *CountHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	counts, err := h.engine.ListCounts(c.Context(), c.Query("location_id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.CountResponse, 0, len(counts))
	for _, cnt := range counts {
		out = append(out, dto.NewCountResponse(cnt))
	}
	return c.JSON(fiber.Map{"total": len(out), "counts": out})
}

// Cancel godoc
// @Summary      Cancelar el conteo (sin mutación de stock)
// @Tags         counts
// @Security     Bearer
// @Success      204
// @Router       /api/counts/{id}/cancel [post]
func (h *CountHandler) Cancel(c *fiber.Ctx) error {
	if err := h.engine.Cancel(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Get godoc
// @Summary      Consultar sesión con sus líneas
// @Tags         counts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/counts/{id} [get]
func (h *CountHandler) Get(c *fiber.Ctx) error {
	cnt, items, err := h.engine.GetCount(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.CountItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.NewCountItemResponse(it))
	}
	return c.JSON(fiber.Map{
		"count": dto.NewCountResponse(cnt),
		"items": out,
	})
}

// ExportSheet godoc
// @Summary      Descargar planilla XLSX para contar en piso
// @Tags         counts
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /api/counts/{id}/sheet [get]
func (h *CountHandler) ExportSheet(c *fiber.Ctx) error {
	cnt, items, err := h.engine.GetCount(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := h.productRepo.ListByIDs(c.Context(), ids)
	if err != nil {
		return respondError(c, err)
	}
	byID := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var buf bytes.Buffer
	if err := excel.WriteCountSheet(&buf, cnt, items, byID); err != nil {
		return respondError(c, err)
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=conteo-%s.xlsx", cnt.ID))
	return c.Send(buf.Bytes())
}

// ImportSheet godoc
// @Summary      Importar planilla diligenciada (multipart, campo sheet)
// @Description  Cada fila con cantidad física se registra como RecordPhysicalCount.
// @Tags         counts
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Success      200  {object}  map[string]int
// @Router       /api/counts/{id}/sheet [post]
func (h *CountHandler) ImportSheet(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("sheet")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "falta el archivo sheet"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "no se pudo abrir el archivo"})
	}
	defer file.Close()

	rows, err := excel.ParseCountSheet(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_SHEET", Message: err.Error()})
	}
	recorded := 0
	for _, row := range rows {
		if _, err := h.engine.RecordPhysicalCount(c.Context(), c.Params("id"), row.ProductID, row.PhysicalQuantity); err != nil {
			return respondError(c, err)
		}
		recorded++
	}
	return c.JSON(fiber.Map{"recorded": recorded})
}

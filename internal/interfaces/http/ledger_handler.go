package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Kardex-api/internal/application/dto"
	"github.com/jhoicas/Kardex-api/internal/application/ledger"
)

// LedgerHandler expone las mutaciones del kardex. Los handlers son callers
// puros del servicio de mutaciones: nunca calculan deltas ni tocan los
// repositorios de niveles o del libro directamente.
type LedgerHandler struct {
	mutations *ledger.MutationService
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(mutations *ledger.MutationService) *LedgerHandler {
	return &LedgerHandler{mutations: mutations}
}

// ApplySale godoc
// @Summary      Registrar venta (una llamada por línea de factura)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleRequest  true  "product_id, location_id, quantity, reference (factura), related_id (venta)"
// @Success      201   {object}  dto.TransactionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/sales [post]
func (h *LedgerHandler) ApplySale(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tx, err := h.mutations.ApplySale(c.Context(), ledger.SaleInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		Reference:  in.Reference,
		RelatedID:  in.RelatedID,
		ActorID:    GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

// ApplyPurchase godoc
// @Summary      Registrar recepción de orden de compra
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PurchaseRequest  true  "product_id, location_id, quantity, reference (orden de compra)"
// @Success      201   {object}  dto.TransactionResponse
// @Router       /api/ledger/purchases [post]
func (h *LedgerHandler) ApplyPurchase(c *fiber.Ctx) error {
	var in dto.PurchaseRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tx, err := h.mutations.ApplyPurchaseReceipt(c.Context(), ledger.PurchaseInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		Reference:  in.Reference,
		RelatedID:  in.RelatedID,
		ActorID:    GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

// ApplyAdjustment godoc
// @Summary      Ajustar a cantidad física observada (delta cero permitido)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "product_id, location_id, physical_quantity, reason"
// @Success      201   {object}  dto.TransactionResponse
// @Router       /api/ledger/adjustments [post]
func (h *LedgerHandler) ApplyAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tx, err := h.mutations.ApplyAdjustment(c.Context(), ledger.AdjustmentInput{
		ProductID:        in.ProductID,
		LocationID:       in.LocationID,
		PhysicalQuantity: in.PhysicalQuantity,
		Reason:           in.Reason,
		Reference:        in.Reference,
		ActorID:          GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

// ApplyTransfer godoc
// @Summary      Trasladar entre ubicaciones (dos piernas, misma referencia)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, source_location_id, target_location_id, quantity, reference"
// @Success      201   {object}  map[string]dto.TransactionResponse
// @Router       /api/ledger/transfers [post]
func (h *LedgerHandler) ApplyTransfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.mutations.ApplyTransfer(c.Context(), ledger.TransferInput{
		ProductID:        in.ProductID,
		SourceLocationID: in.SourceLocationID,
		TargetLocationID: in.TargetLocationID,
		Quantity:         in.Quantity,
		Reference:        in.Reference,
		ActorID:          GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"out": dto.NewTransactionResponse(res.Out),
		"in":  dto.NewTransactionResponse(res.In),
	})
}

// RegisterEntry godoc
// @Summary      Entrada manual de mercancía
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "product_id, location_id, quantity, reason"
// @Success      201   {object}  dto.TransactionResponse
// @Router       /api/ledger/entries [post]
func (h *LedgerHandler) RegisterEntry(c *fiber.Ctx) error {
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tx, err := h.mutations.RegisterEntry(c.Context(), ledger.EntryInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		Reason:     in.Reason,
		Reference:  in.Reference,
		ActorID:    GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

// RegisterExit godoc
// @Summary      Salida manual de mercancía (merma, consumo interno)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "product_id, location_id, quantity, reason"
// @Success      201   {object}  dto.TransactionResponse
// @Router       /api/ledger/exits [post]
func (h *LedgerHandler) RegisterExit(c *fiber.Ctx) error {
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tx, err := h.mutations.RegisterExit(c.Context(), ledger.ExitInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		Reason:     in.Reason,
		Reference:  in.Reference,
		ActorID:    GetOperatorID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

// SeedLevel godoc
// @Summary      Sembrar nivel inicial de un par (producto, ubicación)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SeedLevelRequest  true  "product_id, location_id, quantity, min_stock_level"
// @Success      204
// @Router       /api/stock/seed [post]
func (h *LedgerHandler) SeedLevel(c *fiber.Ctx) error {
	var in dto.SeedLevelRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.mutations.SeedLevel(c.Context(), in.ProductID, in.LocationID, in.Quantity, in.MinStockLevel); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseTimeQuery interpreta un query param RFC3339 opcional.
func parseTimeQuery(c *fiber.Ctx, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Kardex-api/internal/application/count"
	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/pkg/config"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Mutations   *ledger.MutationService
	CountEngine *count.Engine
	LevelRepo   repository.StockLevelRepository
	TxnRepo     repository.StockTransactionRepository
	ProductRepo repository.ProductRepository
	JWTConfig   config.JWTConfig
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.JWTConfig)
	authGroup.Post("/login", authHandler.Login)

	// Consultas de solo lectura (público: reportes y pantallas de stock)
	stockHandler := NewStockHandler(deps.LevelRepo, deps.TxnRepo)
	api.Get("/stock/:productId", stockHandler.GetByProduct)
	api.Get("/stock/:productId/:locationId", stockHandler.GetLevel)
	api.Get("/transactions", stockHandler.ListTransactions)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTConfig.Secret))

	// Mutaciones del kardex (protegido)
	ledgerGroup := protected.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.Mutations)
	ledgerGroup.Post("/sales", ledgerHandler.ApplySale)
	ledgerGroup.Post("/purchases", ledgerHandler.ApplyPurchase)
	ledgerGroup.Post("/adjustments", ledgerHandler.ApplyAdjustment)
	ledgerGroup.Post("/transfers", ledgerHandler.ApplyTransfer)
	ledgerGroup.Post("/entries", ledgerHandler.RegisterEntry)
	ledgerGroup.Post("/exits", ledgerHandler.RegisterExit)
	protected.Post("/stock/seed", ledgerHandler.SeedLevel)

	// Conteos físicos (protegido)
	counts := protected.Group("/counts")
	countHandler := NewCountHandler(deps.CountEngine, deps.ProductRepo)
	counts.Post("/", countHandler.Create)
	counts.Get("/", countHandler.List)
	counts.Get("/:id", countHandler.Get)
	counts.Post("/:id/start", countHandler.Start)
	counts.Post("/:id/items", countHandler.RecordItem)
	counts.Post("/:id/items/:productId/verify", countHandler.VerifyItem)
	counts.Post("/:id/finalize", countHandler.Finalize)
	counts.Post("/:id/cancel", countHandler.Cancel)
	counts.Get("/:id/sheet", countHandler.ExportSheet)
	counts.Post("/:id/sheet", countHandler.ImportSheet)
}

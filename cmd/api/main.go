package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Kardex-api/internal/application/count"
	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	domledger "github.com/jhoicas/Kardex-api/internal/domain/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Kardex-api/internal/interfaces/http"
	"github.com/jhoicas/Kardex-api/pkg/config"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

// storage agrupa los puertos de persistencia que arma cada backend.
type storage struct {
	txRunner     ledger.TxRunner
	levelRepo    repository.StockLevelRepository
	txnRepo      repository.StockTransactionRepository
	countRepo    repository.InventoryCountRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Bool("allow_negative_stock", cfg.Ledger.AllowNegativeStock).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := buildStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	locks := ledger.NewKeyLock(cfg.Ledger.LockTimeout)
	mutations := ledger.NewMutationService(
		store.txRunner, store.productRepo, store.locationRepo,
		locks,
		ledger.Policy{AllowNegativeStock: cfg.Ledger.AllowNegativeStock},
		log,
	)
	countEngine := count.NewEngine(
		store.countRepo, store.levelRepo, store.productRepo, store.locationRepo,
		mutations,
		domledger.VariancePolicy{CriticalValueThreshold: cfg.Ledger.CriticalVarianceValue},
		log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Mutations:   mutations,
		CountEngine: countEngine,
		LevelRepo:   store.levelRepo,
		TxnRepo:     store.txnRepo,
		ProductRepo: store.productRepo,
		JWTConfig:   cfg.JWT,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// buildStorage arma los puertos de persistencia según STORAGE_BACKEND. El
// backend en memoria sirve para demos y pruebas de integración; PostgreSQL es
// el backend de producción.
func buildStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.App.Storage == config.StorageMemory {
		st := memory.NewStore()
		return &storage{
			txRunner:     memory.NewTxRunner(st),
			levelRepo:    st.Levels(),
			txnRepo:      st.Transactions(),
			countRepo:    st.Counts(),
			productRepo:  st.Products(),
			locationRepo: st.Locations(),
			close:        func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		txRunner:     postgres.NewTxRunner(pool),
		levelRepo:    postgres.NewStockLevelRepository(pool),
		txnRepo:      postgres.NewStockTransactionRepository(pool),
		countRepo:    postgres.NewInventoryCountRepository(pool),
		productRepo:  postgres.NewProductRepository(pool),
		locationRepo: postgres.NewLocationRepository(pool),
		close:        pool.Close,
	}, nil
}

// @title        Inventario FIFO API
// @version      1.0
// @description  Libro de capas de costo FIFO: compras, salidas, devoluciones, reconciliación y valorización.
// @BasePath     /
// @securityDefinitions.apikey Bearer
// @in           header
// @name         Authorization
// @description  Bearer <token>
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jhoicas/inventario-fifo/docs"
	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	inframetrics "github.com/jhoicas/inventario-fifo/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/inventario-fifo/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/queue"
	httpRouter "github.com/jhoicas/inventario-fifo/internal/interfaces/http"
	"github.com/jhoicas/inventario-fifo/pkg/config"
	"github.com/jhoicas/inventario-fifo/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("allow_shortfall", cfg.Ledger.AllowShortfall).
		Str("return_mode", cfg.Ledger.ReturnMode).
		Msg("iniciando aplicación")

	if cfg.DB.AutoMigrate {
		migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log.Component("migrate"))
		if err != nil {
			log.Fatal().Err(err).Msg("migrador")
		}
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		if err := migrator.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migrador")
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	prometheus.MustRegister(inframetrics.NewPoolStatsCollector(pool, cfg.App.Name))
	ledgerMetrics := inframetrics.NewLedger(prometheus.DefaultRegisterer)

	productRepo := postgres.NewProductRepository(pool)
	batchRepo := postgres.NewBatchRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	ledgerLog := log.Component("ledger")
	engine := inventory.NewEngine(inventory.EngineConfig{AllowShortfall: cfg.Ledger.AllowShortfall}, ledgerMetrics, ledgerLog)

	// Cola de trabajos: la reconciliación asíncrona la atiende cmd/worker.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	defer asynqClient.Close()

	deps := httpRouter.RouterDeps{
		ProductUC:   inventory.NewProductUseCase(productRepo),
		ValuationUC: inventory.NewValuationUseCase(productRepo, batchRepo, infrapdf.NewMarotoPDFGenerator()),
		PurchaseUC:  inventory.NewPurchaseUseCase(txRunner, engine, ledgerLog),
		OutboundUC:  inventory.NewOutboundUseCase(txRunner, engine, ledgerLog),
		ReturnUC:    inventory.NewReturnUseCase(txRunner, engine, inventory.ReturnMode(cfg.Ledger.ReturnMode), ledgerLog),
		MovementUC:  inventory.NewMovementUseCase(movementRepo),
		ReconcileUC: inventory.NewReconcileUseCase(txRunner, productRepo, ledgerMetrics, ledgerLog),
		Queue:       queue.NewClient(asynqClient, cfg.Queue.Queue, log.Zerolog()),
		JWTSecret:   cfg.JWT.Secret,
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(inframetrics.HTTPMiddleware(prometheus.DefaultRegisterer, cfg.App.Name))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario FIFO API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, deps)

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

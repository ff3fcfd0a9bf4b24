package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	inframetrics "github.com/jhoicas/inventario-fifo/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/queue"
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
		Str("redis_addr", cfg.Queue.RedisAddr).
		Msg("iniciando worker")

	ctx := context.Background()
	dbCfg := cfg.DB
	dbCfg.MaxConns = 5 // el worker solo reconcilia
	dbCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	txRunner := postgres.NewTxRunner(pool)
	productRepo := postgres.NewProductRepository(pool)
	ledgerLog := log.Component("ledger")
	reconcileUC := inventory.NewReconcileUseCase(txRunner, productRepo, inframetrics.NewLedger(prometheus.DefaultRegisterer), ledgerLog)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		},
		asynq.Config{
			Concurrency:     cfg.Queue.Concurrency,
			Queues:          map[string]int{cfg.Queue.Queue: 1},
			ErrorHandler:    asynq.ErrorHandlerFunc(handleError(log.Zerolog())),
			RetryDelayFunc:  exponentialBackoff,
			ShutdownTimeout: cfg.Queue.ShutdownTimeout,
			Logger:          newAsynqLogger(log.Component("asynq")),
		},
	)

	mux := asynq.NewServeMux()
	queue.NewReconcileProcessor(reconcileUC, log.Component("worker")).Register(mux)

	// Start no instala manejo de señales: el apagado ocurre una sola vez, abajo.
	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("iniciar servidor de trabajos")
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	log.Info().
		Int("concurrency", cfg.Queue.Concurrency).
		Str("queue", cfg.Queue.Queue).
		Msg("worker iniciado")

	sig := <-shutdown
	log.Info().Str("signal", sig.String()).Msg("señal de apagado recibida")

	srv.Shutdown()
	log.Info().Msg("worker detenido")
}

func handleError(log zerolog.Logger) func(ctx context.Context, task *asynq.Task, err error) {
	return func(_ context.Context, task *asynq.Task, err error) {
		log.Error().
			Err(err).
			Str("type", task.Type()).
			Bytes("payload", task.Payload()).
			Msg("tarea fallida")
	}
}

func exponentialBackoff(n int, _ error, _ *asynq.Task) time.Duration {
	delay := time.Second * time.Duration(1<<uint(n))
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}

// asynqLogger adapta zerolog a asynq.Logger.
type asynqLogger struct {
	log zerolog.Logger
}

func newAsynqLogger(log zerolog.Logger) *asynqLogger {
	return &asynqLogger{log: log}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }

// import_products carga productos exportados de un sistema anterior. Cada producto entra
// con su stock como contador agregado, sin lotes; con -reconcile se crean a continuación
// las capas de ajuste (costo actual, fecha 1970) para que el FIFO las consuma primero.
//
// Uso: go run ./cmd/import_products [-charset iso-8859-1] [-reconcile] productos.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/legacy"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-fifo/pkg/config"
	"github.com/jhoicas/inventario-fifo/pkg/logger"
)

func main() {
	charset := flag.String("charset", legacy.CharsetLatin1, "codificación del archivo (utf-8 | iso-8859-1)")
	reconcile := flag.Bool("reconcile", false, "reconciliar al terminar la importación")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_products [-charset iso-8859-1] [-reconcile] productos.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir archivo")
	}
	defer f.Close()

	rows, rowErrs, err := legacy.ParseProducts(f, *charset)
	if err != nil {
		log.Fatal().Err(err).Msg("leer productos")
	}
	for _, e := range rowErrs {
		log.Warn().Err(e).Msg("fila descartada")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	productUC := inventory.NewProductUseCase(productRepo)

	var created, skipped int
	for _, in := range rows {
		if _, err := productUC.Create(ctx, in); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				skipped++
				log.Warn().Str("sku", in.SKU).Msg("SKU ya existe, se omite")
				continue
			}
			log.Fatal().Err(err).Str("sku", in.SKU).Msg("crear producto")
		}
		created++
	}
	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("rejected", len(rowErrs)).
		Msg("importación terminada")

	if !*reconcile {
		return
	}
	reconcileUC := inventory.NewReconcileUseCase(postgres.NewTxRunner(pool), productRepo, inventory.NopMetrics{}, log.Component("ledger"))
	res, err := reconcileUC.Reconcile(ctx, dto.ReconcileRequest{})
	if err != nil {
		log.Fatal().Err(err).Msg("reconciliación")
	}
	log.Info().
		Int("adjusted", len(res.AdjustedProducts)).
		Int("anomalies", len(res.Anomalies)).
		Msg("reconciliación aplicada")
}

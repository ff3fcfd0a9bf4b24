package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-fifo/internal/domain/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// ReconcileUseCase repara el historial de lotes para que cubra total_stock.
// Es idempotente. Cada producto se procesa en su propia transacción, por lo que no hay
// bloqueo global: movimientos concurrentes sobre otros productos siguen operando.
type ReconcileUseCase struct {
	txRunner TxRunner
	products repository.ProductRepository
	metrics  Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewReconcileUseCase construye el caso de uso. products se usa fuera de transacción
// para enumerar los productos a revisar.
func NewReconcileUseCase(txRunner TxRunner, products repository.ProductRepository, metrics Metrics, log zerolog.Logger) *ReconcileUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &ReconcileUseCase{txRunner: txRunner, products: products, metrics: metrics, log: log, now: utcNow}
}

// WithClock reemplaza el reloj (tests).
func (uc *ReconcileUseCase) WithClock(now func() time.Time) *ReconcileUseCase {
	uc.now = now
	return uc
}

// Reconcile ejecuta la reconciliación para un producto o para todos (ProductID nil).
//  1. Inicializa remaining = original en lotes recibidos sin inicializar.
//  2. Por producto compara total_stock con la suma de remaining.
//  3. total_stock > rastreado: crea una adquisición de ajuste fechada en 1970 con un lote
//     por la diferencia al costo actual del producto. total_stock no cambia.
//  4. total_stock < rastreado: anomalía; se reporta y no se corrige.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, in dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	res, err := uc.run(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	out := dto.ToReconcileResponse(res)
	return &out, nil
}

func (uc *ReconcileUseCase) run(ctx context.Context, productID *string) (*entity.ReconcileResult, error) {
	if productID != nil {
		id := strings.TrimSpace(*productID)
		if id == "" {
			return nil, domain.ErrInvalidInput
		}
		productID = &id
		p, err := uc.products.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("obtener producto %s: %w", id, err)
		}
		if p == nil {
			return nil, domain.ErrNotFound
		}
	}

	res := &entity.ReconcileResult{Scoped: productID != nil}
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		n, err := repos.Batches.InitializeNullRemaining(ctx, productID)
		if err != nil {
			return fmt.Errorf("inicializar lotes: %w", err)
		}
		res.InitializedBatches = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	if productID != nil {
		ids = []string{*productID}
	} else {
		ids, err = uc.products.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listar productos: %w", err)
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := uc.reconcileProduct(ctx, id, res); err != nil {
			return nil, fmt.Errorf("reconciliar %s: %w", id, err)
		}
		res.ProductsChecked++
	}

	uc.metrics.ReconcileCompleted(res)
	uc.log.Info().
		Int("products", res.ProductsChecked).
		Int64("initialized_batches", res.InitializedBatches).
		Int("adjustments", len(res.Adjustments)).
		Int("anomalies", len(res.Anomalies)).
		Msg("reconciliación terminada")
	return res, nil
}

func (uc *ReconcileUseCase) reconcileProduct(ctx context.Context, productID string, res *entity.ReconcileResult) error {
	var (
		adj     *entity.ReconcileAdjustment
		anomaly *entity.ReconcileAnomaly
	)
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		adj, anomaly = nil, nil
		p, err := repos.Products.GetByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			// Borrado entre el listado y esta transacción.
			return nil
		}
		batches, err := repos.Batches.ListReceivedForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		tracked := domaininv.TrackedStock(batches)

		switch {
		case p.TotalStock > tracked:
			diff := p.TotalStock - tracked
			now := uc.now()
			acq := &entity.Acquisition{
				ID:         uuid.NewString(),
				Reference:  "AJUSTE RECONCILIACION",
				Origin:     entity.BatchOriginAdjustment,
				Status:     entity.AcquisitionStatusReceived,
				AcquiredAt: entity.AdjustmentAcquiredAt,
				CreatedBy:  "system",
				CreatedAt:  now,
			}
			if err := repos.Acquisitions.Create(ctx, acq); err != nil {
				return err
			}
			b := &entity.Batch{
				ID:               uuid.NewString(),
				AcquisitionID:    acq.ID,
				ProductID:        productID,
				Origin:           entity.BatchOriginAdjustment,
				Status:           entity.AcquisitionStatusReceived,
				AcquiredAt:       acq.AcquiredAt,
				OriginalQuantity: diff,
				UnitCost:         p.Cost,
				CreatedAt:        now,
			}
			b.SetRemaining(diff)
			if err := repos.Batches.Create(ctx, b); err != nil {
				return err
			}
			mov := &entity.Movement{
				ID:            uuid.NewString(),
				Reference:     acq.Reference,
				Direction:     entity.MovementAdjustment,
				Status:        entity.MovementCompleted,
				AcquisitionID: &acq.ID,
				Lines: []entity.MovementLine{{
					ProductID: productID,
					Quantity:  diff,
					UnitCost:  p.Cost,
					TotalCost: p.Cost.Mul(intDecimal(diff)),
				}},
				CreatedBy: "system",
				CreatedAt: now,
			}
			if err := repos.Movements.Create(ctx, mov); err != nil {
				return err
			}
			adj = &entity.ReconcileAdjustment{
				ProductID:     productID,
				AcquisitionID: acq.ID,
				BatchID:       b.ID,
				Quantity:      diff,
				UnitCost:      p.Cost,
			}
		case p.TotalStock < tracked:
			anomaly = &entity.ReconcileAnomaly{ProductID: productID, TotalStock: p.TotalStock, Tracked: tracked}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if adj != nil {
		res.Adjustments = append(res.Adjustments, *adj)
		uc.log.Info().
			Str("product_id", productID).
			Int("quantity", adj.Quantity).
			Msg("lote de ajuste creado")
	}
	if anomaly != nil {
		res.Anomalies = append(res.Anomalies, *anomaly)
		uc.log.Warn().
			Str("product_id", productID).
			Int("total_stock", anomaly.TotalStock).
			Int("tracked", anomaly.Tracked).
			Msg("stock sobre-rastreado: lotes superan total_stock, requiere revisión manual")
	}
	return nil
}

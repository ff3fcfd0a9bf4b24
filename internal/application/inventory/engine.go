package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-fifo/internal/domain/inventory"
)

// EngineConfig políticas del motor.
type EngineConfig struct {
	// AllowShortfall: si los lotes no cubren la deducción, se consume lo disponible y
	// total_stock se descuenta completo igualmente. Desactivado = rechazo estricto.
	AllowShortfall bool
}

// Engine motor FIFO del libro de capas de costo. No guarda estado ni reintenta: opera con los
// repositorios de la transacción que recibe y escribe lotes y total_stock juntos.
type Engine struct {
	cfg     EngineConfig
	metrics Metrics
	log     zerolog.Logger
}

// NewEngine construye el motor.
func NewEngine(cfg EngineConfig, metrics Metrics, log zerolog.Logger) *Engine {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Engine{cfg: cfg, metrics: metrics, log: log}
}

// Deduct descuenta qty del producto consumiendo lotes del más antiguo al más nuevo.
// Bloquea la fila del producto y luego sus lotes recibidos. Con la política estricta un
// faltante devuelve *domain.InsufficientStockError sin escribir nada. Las métricas de
// unidades las publica el caso de uso con ReportDeductions tras el commit.
func (e *Engine) Deduct(ctx context.Context, tx TxRepos, productID string, qty int) (entity.ConsumptionPlan, error) {
	if productID == "" || qty <= 0 {
		return entity.ConsumptionPlan{}, domain.ErrInvalidInput
	}
	if err := e.lockProduct(ctx, tx, productID); err != nil {
		return entity.ConsumptionPlan{}, err
	}
	batches, err := tx.Batches.ListReceivedForUpdate(ctx, productID)
	if err != nil {
		return entity.ConsumptionPlan{}, fmt.Errorf("listar lotes de %s: %w", productID, err)
	}

	plan, touched := domaininv.PlanDeduction(productID, batches, qty)
	if plan.Shortfall > 0 {
		if !e.cfg.AllowShortfall {
			e.metrics.DeductionRejected()
			return plan, &domain.InsufficientStockError{
				ProductID: productID,
				Requested: qty,
				Available: plan.Consumed(),
			}
		}
		e.log.Warn().
			Str("product_id", productID).
			Int("requested", qty).
			Int("shortfall", plan.Shortfall).
			Msg("deducción con faltante: total_stock se descuenta completo sin capa de costo")
	}

	for _, b := range touched {
		if err := tx.Batches.UpdateRemaining(ctx, b.ID, b.Remaining()); err != nil {
			return plan, fmt.Errorf("actualizar lote %s: %w", b.ID, err)
		}
	}
	if err := adjustTotalStock(ctx, tx.Products, productID, -qty); err != nil {
		return plan, err
	}

	e.log.Debug().
		Str("product_id", productID).
		Int("quantity", qty).
		Int("batches", len(plan.Lines)).
		Msg("deducción FIFO aplicada")
	return plan, nil
}

// Restore devuelve qty a los lotes recibidos del producto, del más nuevo al más antiguo,
// sin superar la cantidad original de cada lote. Lo que no cabe queda en plan.Unrestored.
// total_stock aumenta en qty completo.
func (e *Engine) Restore(ctx context.Context, tx TxRepos, productID string, qty int) (entity.RestorationPlan, error) {
	if productID == "" || qty <= 0 {
		return entity.RestorationPlan{}, domain.ErrInvalidInput
	}
	if err := e.lockProduct(ctx, tx, productID); err != nil {
		return entity.RestorationPlan{}, err
	}
	batches, err := tx.Batches.ListReceivedForUpdate(ctx, productID)
	if err != nil {
		return entity.RestorationPlan{}, fmt.Errorf("listar lotes de %s: %w", productID, err)
	}

	plan, touched := domaininv.PlanRestoration(productID, batches, qty)
	for _, b := range touched {
		if err := tx.Batches.UpdateRemaining(ctx, b.ID, b.Remaining()); err != nil {
			return plan, fmt.Errorf("actualizar lote %s: %w", b.ID, err)
		}
	}
	if err := adjustTotalStock(ctx, tx.Products, productID, qty); err != nil {
		return plan, err
	}

	if plan.Unrestored > 0 {
		e.log.Info().
			Str("product_id", productID).
			Int("unrestored", plan.Unrestored).
			Msg("restauración parcial: sin capacidad en lotes existentes")
	}
	return plan, nil
}

// ReportDeductions publica las métricas de deducciones ya confirmadas. Se llama después del
// commit: una transacción revertida no debe contar unidades.
func (e *Engine) ReportDeductions(plans ...entity.ConsumptionPlan) {
	for _, p := range plans {
		e.metrics.DeductionApplied(p.Consumed(), p.Shortfall)
	}
}

// ReportRestorations igual que ReportDeductions para devoluciones a lotes existentes.
func (e *Engine) ReportRestorations(plans ...entity.RestorationPlan) {
	for _, p := range plans {
		e.metrics.RestorationApplied(p.Restored(), p.Unrestored)
	}
}

// AddLayer crea un lote nuevo ya disponible (remaining = original) y suma su cantidad a total_stock.
func (e *Engine) AddLayer(ctx context.Context, tx TxRepos, b *entity.Batch) error {
	if b == nil || b.ProductID == "" || b.OriginalQuantity <= 0 {
		return domain.ErrInvalidInput
	}
	if err := e.lockProduct(ctx, tx, b.ProductID); err != nil {
		return err
	}
	b.SetRemaining(b.OriginalQuantity)
	if err := tx.Batches.Create(ctx, b); err != nil {
		return fmt.Errorf("crear lote: %w", err)
	}
	return adjustTotalStock(ctx, tx.Products, b.ProductID, b.OriginalQuantity)
}

// ActivateLayer habilita un lote existente de una adquisición recién recibida.
func (e *Engine) ActivateLayer(ctx context.Context, tx TxRepos, b *entity.Batch) error {
	if b == nil || b.OriginalQuantity <= 0 {
		return domain.ErrInvalidInput
	}
	if err := e.lockProduct(ctx, tx, b.ProductID); err != nil {
		return err
	}
	b.SetRemaining(b.OriginalQuantity)
	if err := tx.Batches.UpdateRemaining(ctx, b.ID, b.OriginalQuantity); err != nil {
		return fmt.Errorf("activar lote %s: %w", b.ID, err)
	}
	return adjustTotalStock(ctx, tx.Products, b.ProductID, b.OriginalQuantity)
}

func (e *Engine) lockProduct(ctx context.Context, tx TxRepos, productID string) error {
	p, err := tx.Products.GetByIDForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("bloquear producto %s: %w", productID, err)
	}
	if p == nil {
		return fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}

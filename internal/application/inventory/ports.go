package inventory

import (
	"context"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Products     repository.ProductRepository
	Batches      repository.BatchRepository
	Acquisitions repository.AcquisitionRepository
	Movements    repository.MovementRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y ninguna escritura de lotes ni de total_stock persiste.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// Metrics contadores operativos del libro. Las implementaciones no deben bloquear.
type Metrics interface {
	DeductionApplied(units, shortfall int)
	DeductionRejected()
	RestorationApplied(units, unrestored int)
	ReconcileCompleted(result *entity.ReconcileResult)
}

// ReconcileEnqueuer encola una reconciliación para el worker; devuelve el id de la tarea.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, productID *string, requestedBy string) (string, error)
}

// ValuationPDFGenerator genera el reporte PDF de capas de costo.
type ValuationPDFGenerator interface {
	GenerateValuationPDF(ctx context.Context, v *entity.Valuation) ([]byte, error)
}

// NopMetrics descarta todas las métricas.
type NopMetrics struct{}

func (NopMetrics) DeductionApplied(int, int)                  {}
func (NopMetrics) DeductionRejected()                         {}
func (NopMetrics) RestorationApplied(int, int)                {}
func (NopMetrics) ReconcileCompleted(*entity.ReconcileResult) {}

// Package metrics expone contadores Prometheus del libro de capas de costo, del pool de
// PostgreSQL y de la API HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

var _ inventory.Metrics = (*Ledger)(nil)

// Ledger contadores del motor FIFO y de la reconciliación.
type Ledger struct {
	unitsDeducted      prometheus.Counter
	unitsShortfall     prometheus.Counter
	deductionsRejected prometheus.Counter
	unitsRestored      prometheus.Counter
	unitsUnrestored    prometheus.Counter
	reconcileRuns      prometheus.Counter
	reconcileAdjusted  prometheus.Counter
	reconcileAnomalies prometheus.Counter
	overTracked        prometheus.Gauge
}

// NewLedger registra los contadores en reg (prometheus.DefaultRegisterer en la API).
func NewLedger(reg prometheus.Registerer) *Ledger {
	f := promauto.With(reg)
	return &Ledger{
		unitsDeducted: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_units_deducted_total",
			Help: "Unidades descontadas de lotes por salidas FIFO",
		}),
		unitsShortfall: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_units_shortfall_total",
			Help: "Unidades descontadas de total_stock sin lote que las cubra (modo permisivo)",
		}),
		deductionsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_deductions_rejected_total",
			Help: "Deducciones rechazadas por stock insuficiente en lotes",
		}),
		unitsRestored: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_units_restored_total",
			Help: "Unidades devueltas a lotes existentes",
		}),
		unitsUnrestored: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_units_unrestored_total",
			Help: "Unidades devueltas sin capacidad en lotes existentes",
		}),
		reconcileRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconcile_runs_total",
			Help: "Ejecuciones de reconciliación completadas",
		}),
		reconcileAdjusted: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconcile_adjustments_total",
			Help: "Lotes de ajuste creados por la reconciliación",
		}),
		reconcileAnomalies: f.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconcile_anomalies_total",
			Help: "Productos con más stock en lotes que en total_stock",
		}),
		overTracked: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_over_tracked_products",
			Help: "Productos sobre-rastreados en la última reconciliación",
		}),
	}
}

func (l *Ledger) DeductionApplied(units, shortfall int) {
	l.unitsDeducted.Add(float64(units))
	if shortfall > 0 {
		l.unitsShortfall.Add(float64(shortfall))
	}
}

func (l *Ledger) DeductionRejected() { l.deductionsRejected.Inc() }

func (l *Ledger) RestorationApplied(units, unrestored int) {
	l.unitsRestored.Add(float64(units))
	if unrestored > 0 {
		l.unitsUnrestored.Add(float64(unrestored))
	}
}

func (l *Ledger) ReconcileCompleted(r *entity.ReconcileResult) {
	if r == nil {
		return
	}
	l.reconcileRuns.Inc()
	l.reconcileAdjusted.Add(float64(len(r.Adjustments)))
	l.reconcileAnomalies.Add(float64(len(r.Anomalies)))
	// El gauge describe todo el catálogo; una corrida de un producto no lo reemplaza.
	if !r.Scoped {
		l.overTracked.Set(float64(len(r.Anomalies)))
	}
}

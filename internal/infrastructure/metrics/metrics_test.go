package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/metrics"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]float64, len(families))
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[fam.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[fam.GetName()] += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[fam.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestLedger_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := metrics.NewLedger(reg)

	l.DeductionApplied(7, 0)
	l.DeductionApplied(5, 3)
	l.DeductionRejected()
	l.RestorationApplied(4, 1)
	l.ReconcileCompleted(&entity.ReconcileResult{
		Adjustments: []entity.ReconcileAdjustment{{ProductID: "p-1"}, {ProductID: "p-2"}},
		Anomalies:   []entity.ReconcileAnomaly{{ProductID: "p-3"}},
	})
	l.ReconcileCompleted(nil)

	got := gather(t, reg)
	assert.Equal(t, 12.0, got["ledger_units_deducted_total"])
	assert.Equal(t, 3.0, got["ledger_units_shortfall_total"])
	assert.Equal(t, 1.0, got["ledger_deductions_rejected_total"])
	assert.Equal(t, 4.0, got["ledger_units_restored_total"])
	assert.Equal(t, 1.0, got["ledger_units_unrestored_total"])
	assert.Equal(t, 1.0, got["ledger_reconcile_runs_total"])
	assert.Equal(t, 2.0, got["ledger_reconcile_adjustments_total"])
	assert.Equal(t, 1.0, got["ledger_reconcile_anomalies_total"])
	assert.Equal(t, 1.0, got["ledger_over_tracked_products"])

	// Una corrida de un solo producto suma contadores pero no pisa el gauge del catálogo.
	l.ReconcileCompleted(&entity.ReconcileResult{Scoped: true})
	got = gather(t, reg)
	assert.Equal(t, 2.0, got["ledger_reconcile_runs_total"])
	assert.Equal(t, 1.0, got["ledger_over_tracked_products"])
}

func TestHTTPMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware(reg, "ledger"))
	app.Get("/products/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusConflict, "x") })

	for _, path := range []string{"/products/a", "/products/b", "/boom"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	var byPath = map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			byPath[labels["path"]+" "+labels["status"]] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, byPath["/products/:id 204"])
	assert.Equal(t, 1.0, byPath["/boom 409"])
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "http_request_duration_seconds"))
}

package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

func TestReturn_RestoreModeFillsNewestFirst(t *testing.T) {
	f := newFixture(t, fixtureOpts{returnMode: inventory.ReturnModeRestore})
	p := f.product(t, "SKU-1", "1", 0)
	b1 := f.receive(t, p, 1, 5, "2")
	b2 := f.receive(t, p, 2, 5, "3")
	mov := f.sell(t, p, 7)
	f.clock.day(10)

	res, err := f.returns.Restore(f.ctx, mov.ID, "u-bodega")

	require.NoError(t, err)
	require.Len(t, res.Plans, 1)
	plan := res.Plans[0]
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, dto.RestorationLineResponse{BatchID: b2, Quantity: 2}, plan.Lines[0])
	assert.Equal(t, dto.RestorationLineResponse{BatchID: b1, Quantity: 5}, plan.Lines[1])
	assert.Zero(t, plan.Unrestored)
	require.NotEmpty(t, plan.CompensatingBatchID)

	assert.Equal(t, 10, f.totalStock(t, p), "total_stock vuelve al valor previo a la salida")
	rem := f.remaining(t, p)
	assert.Equal(t, 5, rem[b1])
	assert.Equal(t, 5, rem[b2])
	assert.Equal(t, 7, rem[plan.CompensatingBatchID])
	assert.Equal(t, 7, f.metrics.restored)

	comp := f.batchesByOrigin(t, p, entity.BatchOriginReturn)
	require.Len(t, comp, 1)
	assert.Equal(t, 7, comp[0].OriginalQuantity)
	assert.True(t, comp[0].AcquiredAt.Equal(f.clock.Now()))
	assert.True(t, comp[0].UnitCost.Equal(decimal.RequireFromString("2.285714")),
		"el lote compensatorio toma el costo promedio consumido, got %s", comp[0].UnitCost)
}

func TestReturn_LayerModeOnlyAddsCompensatingBatch(t *testing.T) {
	f := newFixture(t, fixtureOpts{returnMode: inventory.ReturnModeLayer})
	p := f.product(t, "SKU-1", "1", 0)
	b1 := f.receive(t, p, 1, 5, "2")
	b2 := f.receive(t, p, 2, 5, "3")
	mov := f.sell(t, p, 7)

	res, err := f.returns.Restore(f.ctx, mov.ID, "u-bodega")

	require.NoError(t, err)
	plan := res.Plans[0]
	rem := f.remaining(t, p)
	assert.Equal(t, 0, rem[b1])
	assert.Equal(t, 3, rem[b2])
	assert.Equal(t, 7, rem[plan.CompensatingBatchID])
	assert.Equal(t, 10, f.totalStock(t, p))
	assert.Equal(t, f.totalStock(t, p), f.tracked(t, p))
}

func TestReturn_LinksAndMarksOriginal(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	f.receive(t, p, 1, 5, "2")
	mov := f.sell(t, p, 2)

	res, err := f.returns.Restore(f.ctx, mov.ID, "u-bodega")

	require.NoError(t, err)
	assert.Equal(t, "reversed", res.Original.Status)
	assert.NotNil(t, res.Original.ReversedAt)
	assert.Equal(t, "return", res.Return.Direction)
	require.NotNil(t, res.Return.LinkedMovementID)
	assert.Equal(t, mov.ID, *res.Return.LinkedMovementID)
	assert.Equal(t, "DEV PED", res.Return.Reference)
	require.Len(t, res.Return.Lines, 1)
	assert.Equal(t, 2, res.Return.Lines[0].Quantity)

	stored, err := f.movements.GetByID(f.ctx, mov.ID)
	require.NoError(t, err)
	assert.Equal(t, "reversed", stored.Status)
}

func TestReturn_SecondReversalFailsWithoutWrites(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	f.receive(t, p, 1, 5, "2")
	mov := f.sell(t, p, 2)
	_, err := f.returns.Restore(f.ctx, mov.ID, "u-bodega")
	require.NoError(t, err)
	stock := f.totalStock(t, p)
	batches := len(f.batches(t, p))

	_, err = f.returns.Restore(f.ctx, mov.ID, "u-bodega")

	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
	assert.Equal(t, stock, f.totalStock(t, p))
	assert.Len(t, f.batches(t, p), batches)
	list, err := f.movements.List(f.ctx, "", "return", dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestReturn_Errors(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	f.receive(t, p, 1, 5, "2")
	inbound, err := f.movements.List(f.ctx, p, "inbound", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, inbound.Items, 1)

	_, err = f.returns.Restore(f.ctx, "no-existe", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.returns.Restore(f.ctx, "", "u")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.returns.Restore(f.ctx, inbound.Items[0].ID, "u")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "solo se revierten salidas")
}

// Un lote de 10 a 2.00 el 1 de enero, salida de 10, reconciliación y devolución.
func TestReturn_SingleBatchScenario(t *testing.T) {
	for _, mode := range []inventory.ReturnMode{inventory.ReturnModeRestore, inventory.ReturnModeLayer} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, fixtureOpts{returnMode: mode})
			p := f.product(t, "SKU-P", "2.00", 0)
			b1 := f.receive(t, p, 1, 10, "2.00")

			mov := f.sell(t, p, 10)
			assert.Equal(t, 0, f.totalStock(t, p))
			assert.Equal(t, 0, f.remaining(t, p)[b1])

			rec, err := f.reconcile.Reconcile(f.ctx, dto.ReconcileRequest{})
			require.NoError(t, err)
			assert.Empty(t, rec.AdjustedProducts, "rastreado == total_stock")

			f.clock.day(5)
			res, err := f.returns.Restore(f.ctx, mov.ID, "u")
			require.NoError(t, err)

			assert.Equal(t, 10, f.totalStock(t, p))
			comp := f.batchesByOrigin(t, p, entity.BatchOriginReturn)
			require.Len(t, comp, 1)
			assert.Equal(t, 10, comp[0].OriginalQuantity)
			assert.Equal(t, 10, comp[0].Remaining())
			assert.True(t, comp[0].UnitCost.Equal(decimal.RequireFromString("2.00")))
			assert.Equal(t, comp[0].ID, res.Plans[0].CompensatingBatchID)

			switch mode {
			case inventory.ReturnModeLayer:
				assert.Equal(t, 0, f.remaining(t, p)[b1], "la devolución cae entera en el lote nuevo")
				assert.Equal(t, 10, f.tracked(t, p))
			case inventory.ReturnModeRestore:
				// B1 tenía capacidad 10 y la recupera; el lote compensatorio se suma aparte.
				assert.Equal(t, 10, f.remaining(t, p)[b1])
				assert.Equal(t, 20, f.tracked(t, p))
			}
		})
	}
}

func TestReturn_RollsBackWhenMarkFails(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	b1 := f.receive(t, p, 1, 5, "2")
	mov := f.sell(t, p, 4)

	f.store.FailOn("movements.mark_reversed", domain.ErrTransactionConflict)
	_, err := f.returns.Restore(f.ctx, mov.ID, "u")

	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, 1, f.totalStock(t, p))
	assert.Equal(t, map[string]int{b1: 1}, f.remaining(t, p))
	assert.Zero(t, f.metrics.restored)

	// El reintento completo funciona.
	_, err = f.returns.Restore(f.ctx, mov.ID, "u")
	require.NoError(t, err)
	assert.Equal(t, 5, f.totalStock(t, p))
	assert.Equal(t, 4, f.metrics.restored)
}

package inventory_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/memory"
)

func TestOutbound_ConsumesOldestBatchFirst(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "2.50", 0)
	b2 := f.receive(t, p, 2, 5, "3.00")
	b1 := f.receive(t, p, 1, 5, "2.00")

	mov := f.sell(t, p, 7)

	require.Len(t, mov.Lines, 1)
	line := mov.Lines[0]
	require.Len(t, line.Consumption, 2)
	assert.Equal(t, dto.ConsumptionLineResponse{BatchID: b1, Quantity: 5, UnitCost: decimal.RequireFromString("2.00")}, line.Consumption[0])
	assert.Equal(t, b2, line.Consumption[1].BatchID)
	assert.Equal(t, 2, line.Consumption[1].Quantity)
	assert.True(t, line.TotalCost.Equal(decimal.NewFromInt(16)), "costo de venta 5*2 + 2*3, got %s", line.TotalCost)
	assert.Equal(t, "outbound", mov.Direction)
	assert.Equal(t, "completed", mov.Status)

	assert.Equal(t, map[string]int{b1: 0, b2: 3}, f.remaining(t, p))
	assert.Equal(t, 3, f.totalStock(t, p))
	assert.Equal(t, 7, f.metrics.applied)

	stored, err := f.movements.GetByID(f.ctx, mov.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines[0].Consumption, 2)
}

func TestOutbound_StrictShortfallRejectsWholeOrder(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p1 := f.product(t, "SKU-1", "1", 0)
	p2 := f.product(t, "SKU-2", "1", 0)
	f.receive(t, p1, 1, 10, "1")
	f.receive(t, p2, 1, 2, "1")

	_, err := f.outbound.Create(f.ctx, "u-venta", dto.CreateOutboundRequest{
		Lines: []dto.OutboundLineRequest{
			{ProductID: p1, Quantity: 4},
			{ProductID: p2, Quantity: 3},
		},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, p2, ise.ProductID)
	assert.Equal(t, 1, ise.Shortfall())

	// Si la línea de p1 se aplicó antes que la de p2, la transacción la revierte.
	assert.Equal(t, 10, f.totalStock(t, p1))
	assert.Equal(t, 10, f.tracked(t, p1))
	assert.Equal(t, 2, f.totalStock(t, p2))
	assert.Equal(t, 1, f.metrics.rejected)

	list, err := f.movements.List(f.ctx, "", "outbound", dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items, "no debe quedar movimiento de salida")
}

func TestOutbound_LenientShortfallDeductsFullTotal(t *testing.T) {
	f := newFixture(t, fixtureOpts{allowShortfall: true})
	// 3 unidades importadas sin lote + 5 recibidas.
	p := f.product(t, "SKU-1", "1", 3)
	b1 := f.receive(t, p, 1, 5, "2")

	mov := f.sell(t, p, 8)

	assert.Equal(t, 0, f.totalStock(t, p))
	assert.Equal(t, map[string]int{b1: 0}, f.remaining(t, p))
	require.Len(t, mov.Lines[0].Consumption, 1)
	assert.Equal(t, 5, mov.Lines[0].Consumption[0].Quantity)
	assert.Equal(t, 3, f.metrics.shortfall)
}

func TestOutbound_MergesRepeatedProductLines(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	f.receive(t, p, 1, 10, "1")

	mov, err := f.outbound.Create(f.ctx, "u-venta", dto.CreateOutboundRequest{
		Lines: []dto.OutboundLineRequest{
			{ProductID: p, Quantity: 2},
			{ProductID: " " + p + " ", Quantity: 3},
		},
	})

	require.NoError(t, err)
	require.Len(t, mov.Lines, 1)
	assert.Equal(t, 5, mov.Lines[0].Quantity)
	assert.Equal(t, 5, f.totalStock(t, p))
}

func TestOutbound_InvalidInput(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)

	cases := map[string]dto.CreateOutboundRequest{
		"sin líneas":        {},
		"cantidad cero":     {Lines: []dto.OutboundLineRequest{{ProductID: p, Quantity: 0}}},
		"cantidad negativa": {Lines: []dto.OutboundLineRequest{{ProductID: p, Quantity: -1}}},
		"sin producto":      {Lines: []dto.OutboundLineRequest{{Quantity: 1}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.outbound.Create(f.ctx, "u", req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestOutbound_UnknownProduct(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.outbound.Create(f.ctx, "u", dto.CreateOutboundRequest{
		Lines: []dto.OutboundLineRequest{{ProductID: "no-existe", Quantity: 1}},
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Los lotes y total_stock se escriben juntos: si cualquiera de las escrituras falla
// ninguna de las dos persiste.
func TestOutbound_DualWriteIsAtomic(t *testing.T) {
	boom := errors.New("boom")
	for _, op := range []string{memory.OpAdjustTotalStock, memory.OpBatchUpdate, memory.OpMovementCreate} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{})
			p := f.product(t, "SKU-1", "1", 0)
			b1 := f.receive(t, p, 1, 5, "1")

			f.store.FailOn(op, boom)
			_, err := f.outbound.Create(f.ctx, "u", dto.CreateOutboundRequest{
				Lines: []dto.OutboundLineRequest{{ProductID: p, Quantity: 3}},
			})

			assert.ErrorIs(t, err, boom)
			assert.Equal(t, 5, f.totalStock(t, p))
			assert.Equal(t, map[string]int{b1: 5}, f.remaining(t, p))
			assert.Zero(t, f.metrics.applied, "una salida revertida no cuenta unidades")
		})
	}
}

func TestOutbound_MetricsOnlyAfterCommit(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p1 := f.product(t, "SKU-1", "1", 0)
	p2 := f.product(t, "SKU-2", "1", 0)
	f.receive(t, p1, 1, 10, "1")
	f.receive(t, p2, 1, 2, "1")

	// SKU-2 no alcanza: la orden completa se revierte aunque SKU-1 tenga stock.
	_, err := f.outbound.Create(f.ctx, "u", dto.CreateOutboundRequest{
		Lines: []dto.OutboundLineRequest{
			{ProductID: p1, Quantity: 4},
			{ProductID: p2, Quantity: 3},
		},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 10, f.totalStock(t, p1))
	assert.Zero(t, f.metrics.applied)
	assert.Equal(t, 1, f.metrics.rejected)

	f.store.FailOn(memory.OpMovementCreate, domain.ErrTransactionConflict)
	_, err = f.outbound.Create(f.ctx, "u", dto.CreateOutboundRequest{
		Lines: []dto.OutboundLineRequest{{ProductID: p1, Quantity: 4}},
	})
	require.ErrorIs(t, err, domain.ErrTransactionConflict)
	assert.Equal(t, 10, f.totalStock(t, p1))
	assert.Zero(t, f.metrics.applied)

	f.sell(t, p1, 4)
	assert.Equal(t, 4, f.metrics.applied)
}

func TestOutbound_KeepsTrackedEqualToTotal(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	f.receive(t, p, 1, 4, "1")
	f.receive(t, p, 2, 4, "2")
	f.receive(t, p, 3, 4, "3")

	for _, q := range []int{1, 3, 2, 5} {
		f.sell(t, p, q)
		assert.Equal(t, f.totalStock(t, p), f.tracked(t, p))
	}
	assert.Equal(t, 1, f.totalStock(t, p))
}

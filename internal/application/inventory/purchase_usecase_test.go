package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
)

func TestPurchase_DraftBatchesAreNotConsumable(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)

	po, err := f.purchases.Create(f.ctx, "u", dto.CreatePurchaseRequest{
		Reference: "OC-1",
		Lines:     []dto.PurchaseLineRequest{{ProductID: p, Quantity: 6, UnitCost: decimal.NewFromInt(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", po.Status)
	require.Len(t, po.Batches, 1)
	assert.Nil(t, po.Batches[0].RemainingQuantity)
	assert.Equal(t, 0, f.totalStock(t, p))

	_, err = f.outbound.Create(f.ctx, "u", dto.CreateOutboundRequest{
		Lines: []dto.OutboundLineRequest{{ProductID: p, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestPurchase_ReceiveActivatesBatches(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p1 := f.product(t, "SKU-1", "1", 0)
	p2 := f.product(t, "SKU-2", "1", 0)
	po, err := f.purchases.Create(f.ctx, "u", dto.CreatePurchaseRequest{
		Reference: "OC-2",
		Lines: []dto.PurchaseLineRequest{
			{ProductID: p1, Quantity: 4, UnitCost: decimal.RequireFromString("1.50")},
			{ProductID: p2, Quantity: 2, UnitCost: decimal.RequireFromString("9.00")},
		},
	})
	require.NoError(t, err)
	f.clock.day(3)

	mov, err := f.purchases.Receive(f.ctx, po.ID, "u-bodega")

	require.NoError(t, err)
	assert.Equal(t, "inbound", mov.Direction)
	assert.Len(t, mov.Lines, 2)
	assert.True(t, mov.TotalCost.Equal(decimal.NewFromInt(24)), "4*1.5 + 2*9, got %s", mov.TotalCost)
	assert.Equal(t, 4, f.totalStock(t, p1))
	assert.Equal(t, 2, f.totalStock(t, p2))
	assert.Equal(t, f.totalStock(t, p1), f.tracked(t, p1))

	b := f.batches(t, p1)
	require.Len(t, b, 1)
	assert.True(t, b[0].AcquiredAt.Equal(f.clock.Now()), "acquired_at se fija al recibir")
}

func TestPurchase_ReceiveTwiceConflicts(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)
	po, err := f.purchases.Create(f.ctx, "u", dto.CreatePurchaseRequest{
		Lines: []dto.PurchaseLineRequest{{ProductID: p, Quantity: 3, UnitCost: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	_, err = f.purchases.Receive(f.ctx, po.ID, "u")
	require.NoError(t, err)

	_, err = f.purchases.Receive(f.ctx, po.ID, "u")

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, f.totalStock(t, p))
}

func TestPurchase_Errors(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	p := f.product(t, "SKU-1", "1", 0)

	_, err := f.purchases.Create(f.ctx, "u", dto.CreatePurchaseRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.purchases.Create(f.ctx, "u", dto.CreatePurchaseRequest{
		Lines: []dto.PurchaseLineRequest{{ProductID: p, Quantity: 1, UnitCost: decimal.NewFromInt(-1)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.purchases.Create(f.ctx, "u", dto.CreatePurchaseRequest{
		Lines: []dto.PurchaseLineRequest{{ProductID: "no-existe", Quantity: 1, UnitCost: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.purchases.Receive(f.ctx, "no-existe", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

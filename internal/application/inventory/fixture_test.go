package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
	"github.com/jhoicas/inventario-fifo/internal/infrastructure/memory"
)

var jan1 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// clock reloj manual compartido por todos los casos de uso del fixture.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }
func (c *clock) day(n int)      { c.t = jan1.AddDate(0, 0, n-1) }

// recordingMetrics guarda lo que el motor reporta.
type recordingMetrics struct {
	mu         sync.Mutex
	applied    int
	shortfall  int
	rejected   int
	restored   int
	unrestored int
	reconciles []*entity.ReconcileResult
}

func (m *recordingMetrics) DeductionApplied(units, shortfall int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied += units
	m.shortfall += shortfall
}

func (m *recordingMetrics) DeductionRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *recordingMetrics) RestorationApplied(units, unrestored int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored += units
	m.unrestored += unrestored
}

func (m *recordingMetrics) ReconcileCompleted(r *entity.ReconcileResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciles = append(m.reconciles, r)
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	clock     *clock
	metrics   *recordingMetrics
	products  *inventory.ProductUseCase
	purchases *inventory.PurchaseUseCase
	outbound  *inventory.OutboundUseCase
	returns   *inventory.ReturnUseCase
	reconcile *inventory.ReconcileUseCase
	valuation *inventory.ValuationUseCase
	movements *inventory.MovementUseCase
}

type fixtureOpts struct {
	allowShortfall bool
	returnMode     inventory.ReturnMode
	pdf            inventory.ValuationPDFGenerator
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	store := memory.New()
	clk := &clock{t: jan1}
	metrics := &recordingMetrics{}
	log := zerolog.Nop()
	engine := inventory.NewEngine(inventory.EngineConfig{AllowShortfall: opts.allowShortfall}, metrics, log)

	return &fixture{
		ctx:       context.Background(),
		store:     store,
		clock:     clk,
		metrics:   metrics,
		products:  inventory.NewProductUseCase(store.Products()),
		purchases: inventory.NewPurchaseUseCase(store, engine, log).WithClock(clk.Now),
		outbound:  inventory.NewOutboundUseCase(store, engine, log).WithClock(clk.Now),
		returns:   inventory.NewReturnUseCase(store, engine, opts.returnMode, log).WithClock(clk.Now),
		reconcile: inventory.NewReconcileUseCase(store, store.Products(), metrics, log).WithClock(clk.Now),
		valuation: inventory.NewValuationUseCase(store.Products(), store.Batches(), opts.pdf),
		movements: inventory.NewMovementUseCase(store.Movements()),
	}
}

func (f *fixture) product(t *testing.T, sku, cost string, initialStock int) string {
	t.Helper()
	p, err := f.products.Create(f.ctx, dto.CreateProductRequest{
		SKU:          sku,
		Name:         "Producto " + sku,
		Cost:         decimal.RequireFromString(cost),
		InitialStock: initialStock,
	})
	require.NoError(t, err)
	return p.ID
}

// receive crea y recibe una orden de compra de una línea en el día indicado; devuelve el id del lote.
func (f *fixture) receive(t *testing.T, productID string, day, qty int, cost string) string {
	t.Helper()
	f.clock.day(day)
	po, err := f.purchases.Create(f.ctx, "u-bodega", dto.CreatePurchaseRequest{
		Reference: "OC",
		Lines:     []dto.PurchaseLineRequest{{ProductID: productID, Quantity: qty, UnitCost: decimal.RequireFromString(cost)}},
	})
	require.NoError(t, err)
	_, err = f.purchases.Receive(f.ctx, po.ID, "u-bodega")
	require.NoError(t, err)
	require.Len(t, po.Batches, 1)
	return po.Batches[0].ID
}

func (f *fixture) sell(t *testing.T, productID string, qty int) *dto.MovementResponse {
	t.Helper()
	mov, err := f.outbound.Create(f.ctx, "u-venta", dto.CreateOutboundRequest{
		Reference: "PED",
		Lines:     []dto.OutboundLineRequest{{ProductID: productID, Quantity: qty}},
	})
	require.NoError(t, err)
	return mov
}

func (f *fixture) totalStock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(f.ctx, productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.TotalStock
}

func (f *fixture) batches(t *testing.T, productID string) []*entity.Batch {
	t.Helper()
	list, err := f.store.Batches().ListByProduct(f.ctx, productID, repository.BatchFilter{IncludePending: true})
	require.NoError(t, err)
	return list
}

func (f *fixture) remaining(t *testing.T, productID string) map[string]int {
	t.Helper()
	out := make(map[string]int)
	for _, b := range f.batches(t, productID) {
		out[b.ID] = b.Remaining()
	}
	return out
}

func (f *fixture) tracked(t *testing.T, productID string) int {
	t.Helper()
	n := 0
	for _, b := range f.batches(t, productID) {
		if b.IsReceived() {
			n += b.Remaining()
		}
	}
	return n
}

func (f *fixture) batchesByOrigin(t *testing.T, productID string, origin entity.BatchOrigin) []*entity.Batch {
	t.Helper()
	var out []*entity.Batch
	for _, b := range f.batches(t, productID) {
		if b.Origin == origin {
			out = append(out, b)
		}
	}
	return out
}

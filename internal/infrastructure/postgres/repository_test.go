package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// ─── helpers ──────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var (
	ts             = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	productCols    = []string{"id", "sku", "name", "cost", "total_stock", "created_at", "updated_at"}
	batchCols      = []string{"id", "acquisition_id", "product_id", "origin", "status", "acquired_at", "original_quantity", "remaining_quantity", "unit_cost", "created_at"}
	movementCols   = []string{"id", "reference", "direction", "status", "linked_movement_id", "acquisition_id", "created_by", "created_at", "reversed_at"}
	lineCols       = []string{"movement_id", "product_id", "quantity", "unit_cost", "total_cost"}
	consumeCols    = []string{"movement_id", "line_no", "batch_id", "quantity", "unit_cost"}
	errUnique      = &pgconn.PgError{Code: "23505"}
	errCheck       = &pgconn.PgError{Code: "23514"}
	errSerializing = &pgconn.PgError{Code: "40001"}
	errBadUUID     = &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
)

func intPtr(n int) *int { return &n }

// ─── Productos ────────────────────────────────────────────────────────────────

func TestProductRepo_GetByIDForUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .+ FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("p-1", "SKU-1", "Uno", "2.50", 10, ts, ts))

	p, err := repo.GetByIDForUpdate(context.Background(), "p-1")

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 10, p.TotalStock)
	assert.True(t, p.Cost.Equal(decimal.RequireFromString("2.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("p-x").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "p-x")

	assert.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := &entity.Product{ID: "p-1", SKU: "SKU-1", Name: "Uno", Cost: decimal.NewFromInt(1), CreatedAt: ts, UpdatedAt: ts}

	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, p.SKU, p.Name, p.Cost, p.TotalStock, p.CreatedAt, p.UpdatedAt).
		WillReturnError(errUnique)

	err := repo.Create(context.Background(), p)

	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_AdjustTotalStock(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(`UPDATE products SET total_stock = total_stock \+ \$2`).
		WithArgs("p-1", -7).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products SET total_stock`).
		WithArgs("p-x", 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.AdjustTotalStock(context.Background(), "p-1", -7))
	assert.ErrorIs(t, repo.AdjustTotalStock(context.Background(), "p-x", 3), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Lotes ────────────────────────────────────────────────────────────────────

func TestBatchRepo_ListReceivedForUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewBatchRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .+ FROM batches b JOIN acquisitions a .+ ORDER BY a.acquired_at ASC, b.id ASC\s+FOR UPDATE OF b`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows(batchCols).
			AddRow("b-1", "a-1", "p-1", "purchase", "received", ts, 5, intPtr(3), "2.00", ts).
			AddRow("b-2", "a-2", "p-1", "adjustment", "received", ts, 4, (*int)(nil), "1.00", ts))

	list, err := repo.ListReceivedForUpdate(context.Background(), "p-1")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entity.BatchOriginPurchase, list[0].Origin)
	assert.Equal(t, entity.AcquisitionStatusReceived, list[0].Status)
	assert.Equal(t, 3, list[0].Remaining())
	assert.Nil(t, list[1].RemainingQuantity)
	assert.Equal(t, entity.BatchOriginAdjustment, list[1].Origin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_ListByProduct_Filters(t *testing.T) {
	mock := newMock(t)
	repo := NewBatchRepository(mock)
	origin := entity.BatchOriginReturn

	mock.ExpectQuery(`(?s)SELECT .+ WHERE b.product_id = \$1 AND a.status = \$2 AND b.remaining_quantity > \$3 AND a.origin = \$4 ORDER BY`).
		WithArgs("p-1", "received", 0, "return").
		WillReturnRows(pgxmock.NewRows(batchCols))

	list, err := repo.ListByProduct(context.Background(), "p-1", repository.BatchFilter{OnlyOpen: true, Origin: &origin})

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_UpdateRemaining(t *testing.T) {
	mock := newMock(t)
	repo := NewBatchRepository(mock)

	mock.ExpectExec("UPDATE batches SET remaining_quantity").
		WithArgs("b-1", 9).
		WillReturnError(errCheck)
	mock.ExpectExec("UPDATE batches SET remaining_quantity").
		WithArgs("b-x", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.UpdateRemaining(context.Background(), "b-1", 9), domain.ErrInvalidInput)
	assert.ErrorIs(t, repo.UpdateRemaining(context.Background(), "b-x", 1), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_InitializeNullRemaining(t *testing.T) {
	mock := newMock(t)
	repo := NewBatchRepository(mock)
	productID := "p-1"

	mock.ExpectExec(`UPDATE batches b SET remaining_quantity = b.original_quantity FROM acquisitions a WHERE a.id = b.acquisition_id AND a.status = \$1 AND b.remaining_quantity IS NULL AND b.product_id = \$2`).
		WithArgs("received", "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec(`(?s)UPDATE batches b SET remaining_quantity .+ IS NULL$`).
		WithArgs("received").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	n, err := repo.InitializeNullRemaining(context.Background(), &productID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.InitializeNullRemaining(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Adquisiciones ────────────────────────────────────────────────────────────

func TestAcquisitionRepo_MarkReceived(t *testing.T) {
	mock := newMock(t)
	repo := NewAcquisitionRepository(mock)

	mock.ExpectExec(`UPDATE acquisitions SET status = 'received'`).
		WithArgs("a-1", ts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE acquisitions SET status = 'received'`).
		WithArgs("a-1", ts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM acquisitions`).
		WithArgs("a-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	assert.NoError(t, repo.MarkReceived(context.Background(), "a-1", ts))
	assert.ErrorIs(t, repo.MarkReceived(context.Background(), "a-1", ts), domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Movimientos ──────────────────────────────────────────────────────────────

func TestMovementRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewMovementRepository(mock)
	m := &entity.Movement{
		ID: "m-1", Reference: "PED", Direction: entity.MovementOutbound, Status: entity.MovementCompleted,
		CreatedBy: "u", CreatedAt: ts,
		Lines: []entity.MovementLine{{
			ProductID: "p-1", Quantity: 7, UnitCost: decimal.NewFromInt(2), TotalCost: decimal.NewFromInt(14),
			Consumption: []entity.ConsumptionLine{
				{BatchID: "b-1", Quantity: 5, UnitCost: decimal.NewFromInt(2)},
				{BatchID: "b-2", Quantity: 2, UnitCost: decimal.NewFromInt(2)},
			},
		}},
	}

	mock.ExpectExec("INSERT INTO movements").
		WithArgs("m-1", "PED", "outbound", "completed", (*string)(nil), (*string)(nil), "u", ts, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO movement_lines").
		WithArgs("m-1", 1, "p-1", 7, decimal.NewFromInt(2), decimal.NewFromInt(14)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO movement_consumptions").
		WithArgs("m-1", 1, 1, "b-1", 5, decimal.NewFromInt(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO movement_consumptions").
		WithArgs("m-1", 1, 2, "b-2", 2, decimal.NewFromInt(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_GetByIDLoadsLinesAndConsumption(t *testing.T) {
	mock := newMock(t)
	repo := NewMovementRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .+ FROM movements m WHERE m.id = \$1 FOR UPDATE`).
		WithArgs("m-1").
		WillReturnRows(pgxmock.NewRows(movementCols).
			AddRow("m-1", "PED", "outbound", "completed", (*string)(nil), (*string)(nil), "u", ts, (*time.Time)(nil)))
	mock.ExpectQuery(`SELECT movement_id, product_id, quantity, unit_cost, total_cost FROM movement_lines WHERE movement_id IN \(\$1\)`).
		WithArgs("m-1").
		WillReturnRows(pgxmock.NewRows(lineCols).
			AddRow("m-1", "p-1", 7, "2.2857", "16").
			AddRow("m-1", "p-2", 1, "1", "1"))
	mock.ExpectQuery(`SELECT movement_id, line_no, batch_id, quantity, unit_cost FROM movement_consumptions`).
		WithArgs("m-1").
		WillReturnRows(pgxmock.NewRows(consumeCols).
			AddRow("m-1", 1, "b-1", 5, "2").
			AddRow("m-1", 1, "b-2", 2, "3").
			AddRow("m-1", 2, "b-9", 1, "1"))

	m, err := repo.GetByIDForUpdate(context.Background(), "m-1")

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, entity.MovementOutbound, m.Direction)
	require.Len(t, m.Lines, 2)
	require.Len(t, m.Lines[0].Consumption, 2)
	assert.Equal(t, "b-2", m.Lines[0].Consumption[1].BatchID)
	assert.Len(t, m.Lines[1].Consumption, 1)
	assert.True(t, m.TotalCost().Equal(decimal.NewFromInt(17)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_MarkReversed(t *testing.T) {
	mock := newMock(t)
	repo := NewMovementRepository(mock)

	mock.ExpectExec(`UPDATE movements SET status = 'reversed'`).
		WithArgs("m-1", ts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM movements`).
		WithArgs("m-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE movements SET status = 'reversed'`).
		WithArgs("m-x", ts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM movements`).
		WithArgs("m-x").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	assert.ErrorIs(t, repo.MarkReversed(context.Background(), "m-1", ts), domain.ErrAlreadyReversed)
	assert.ErrorIs(t, repo.MarkReversed(context.Background(), "m-x", ts), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepos_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	movements := NewMovementRepository(mock)
	products := NewProductRepository(mock)
	acquisitions := NewAcquisitionRepository(mock)

	mock.ExpectQuery(`(?s)FROM movements m WHERE m.id = \$1 FOR UPDATE`).
		WithArgs("abc").
		WillReturnError(errBadUUID)
	mock.ExpectExec(`UPDATE movements SET status = 'reversed'`).
		WithArgs("abc", ts).
		WillReturnError(errBadUUID)
	mock.ExpectQuery(`(?s)SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("abc").
		WillReturnError(errBadUUID)
	mock.ExpectExec(`UPDATE products SET total_stock`).
		WithArgs("abc", -1).
		WillReturnError(errBadUUID)
	mock.ExpectQuery(`(?s)FROM acquisitions WHERE id = \$1 FOR UPDATE`).
		WithArgs("abc").
		WillReturnError(errBadUUID)

	m, err := movements.GetByIDForUpdate(ctx, "abc")
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, movements.MarkReversed(ctx, "abc", ts), domain.ErrNotFound)

	p, err := products.GetByID(ctx, "abc")
	assert.NoError(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, products.AdjustTotalStock(ctx, "abc", -1), domain.ErrNotFound)

	a, err := acquisitions.GetByIDForUpdate(ctx, "abc")
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_ListFilters(t *testing.T) {
	mock := newMock(t)
	repo := NewMovementRepository(mock)

	mock.ExpectQuery(`(?s)SELECT .+ FROM movements m WHERE m.direction = \$1 AND EXISTS \(SELECT 1 FROM movement_lines l .+ l.product_id = \$2\) ORDER BY m.created_at DESC, m.id DESC LIMIT 20 OFFSET 40`).
		WithArgs("return", "p-1").
		WillReturnRows(pgxmock.NewRows(movementCols))

	list, err := repo.List(context.Background(), repository.MovementFilter{
		ProductID: "p-1", Direction: entity.MovementReturn, Limit: 20, Offset: 40,
	})

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── TxRunner ─────────────────────────────────────────────────────────────────

func TestTxRunner_CommitsOnSuccess(t *testing.T) {
	mock := newMock(t)
	runner := NewTxRunner(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec("UPDATE batches SET remaining_quantity").
		WithArgs("b-1", 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE products SET total_stock").
		WithArgs("p-1", -5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := runner.Run(context.Background(), func(tx inventory.TxRepos) error {
		if err := tx.Batches.UpdateRemaining(context.Background(), "b-1", 0); err != nil {
			return err
		}
		return tx.Products.AdjustTotalStock(context.Background(), "p-1", -5)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	runner := NewTxRunner(mock)
	boom := errors.New("boom")

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectRollback()

	err := runner.Run(context.Background(), func(inventory.TxRepos) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_SerializationFailureIsRetryable(t *testing.T) {
	mock := newMock(t)
	runner := NewTxRunner(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec("UPDATE products SET total_stock").
		WithArgs("p-1", 1).
		WillReturnError(errSerializing)
	mock.ExpectRollback()

	err := runner.Run(context.Background(), func(tx inventory.TxRepos) error {
		return tx.Products.AdjustTotalStock(context.Background(), "p-1", 1)
	})

	assert.ErrorIs(t, err, domain.ErrTransactionConflict)
	assert.True(t, domain.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_BeginError(t *testing.T) {
	mock := newMock(t)
	runner := NewTxRunner(mock)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}).WillReturnError(errors.New("begin failed"))

	err := runner.Run(context.Background(), func(inventory.TxRepos) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

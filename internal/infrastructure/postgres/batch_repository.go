package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// psql builder de squirrel con placeholders $n.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Origen, estado y fecha FIFO del lote viven en su adquisición.
const (
	batchColumns = `b.id, b.acquisition_id, b.product_id, a.origin, a.status, a.acquired_at,
		b.original_quantity, b.remaining_quantity, b.unit_cost, b.created_at`
	batchFrom    = `batches b JOIN acquisitions a ON a.id = b.acquisition_id`
	batchFIFO    = `a.acquired_at ASC, b.id ASC`
)

// BatchRepo lotes (capas de costo) sobre PostgreSQL.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

// Create inserta el lote; la adquisición debe existir.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (id, acquisition_id, product_id, original_quantity, remaining_quantity, unit_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.AcquisitionID, b.ProductID, b.OriginalQuantity, b.RemainingQuantity, b.UnitCost, b.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert batch", err)
	}
	return nil
}

// ListReceivedForUpdate bloquea (solo las filas de batches) los lotes recibidos del producto en orden FIFO.
func (r *BatchRepo) ListReceivedForUpdate(ctx context.Context, productID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM ` + batchFrom + `
		WHERE b.product_id = $1 AND a.status = 'received'
		ORDER BY ` + batchFIFO + `
		FOR UPDATE OF b`
	return r.list(ctx, query, productID)
}

// ListByProduct consulta de lotes con filtros opcionales (sin bloqueo).
func (r *BatchRepo) ListByProduct(ctx context.Context, productID string, f repository.BatchFilter) ([]*entity.Batch, error) {
	qb := psql.Select(batchColumns).
		From(batchFrom).
		Where(sq.Eq{"b.product_id": productID}).
		OrderBy(batchFIFO)
	if !f.IncludePending {
		qb = qb.Where(sq.Eq{"a.status": string(entity.AcquisitionStatusReceived)})
	}
	if f.OnlyOpen {
		qb = qb.Where(sq.Gt{"b.remaining_quantity": 0})
	}
	if f.Origin != nil {
		qb = qb.Where(sq.Eq{"a.origin": string(*f.Origin)})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build batch query: %w", err)
	}
	return r.list(ctx, query, args...)
}

// ListByAcquisition lotes de una adquisición.
func (r *BatchRepo) ListByAcquisition(ctx context.Context, acquisitionID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM ` + batchFrom + `
		WHERE b.acquisition_id = $1
		ORDER BY ` + batchFIFO
	return r.list(ctx, query, acquisitionID)
}

// UpdateRemaining fija remaining_quantity; la BD rechaza valores fuera de [0, original].
func (r *BatchRepo) UpdateRemaining(ctx context.Context, batchID string, remaining int) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE batches SET remaining_quantity = $2 WHERE id = $1`,
		batchID, remaining,
	)
	if err != nil {
		return mapWriteError("update batch remaining", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InitializeNullRemaining fija remaining = original en lotes recibidos sin inicializar.
func (r *BatchRepo) InitializeNullRemaining(ctx context.Context, productID *string) (int64, error) {
	qb := psql.Update("batches b").
		Set("remaining_quantity", sq.Expr("b.original_quantity")).
		From("acquisitions a").
		Where("a.id = b.acquisition_id").
		Where(sq.Eq{"a.status": string(entity.AcquisitionStatusReceived)}).
		Where(sq.Eq{"b.remaining_quantity": nil})
	if productID != nil {
		qb = qb.Where(sq.Eq{"b.product_id": *productID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build initialize query: %w", err)
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("initialize remaining: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var (
		b              entity.Batch
		origin, status string
	)
	err := row.Scan(
		&b.ID, &b.AcquisitionID, &b.ProductID, &origin, &status, &b.AcquiredAt,
		&b.OriginalQuantity, &b.RemainingQuantity, &b.UnitCost, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	b.Origin = entity.BatchOrigin(origin)
	b.Status = entity.AcquisitionStatus(status)
	return &b, nil
}

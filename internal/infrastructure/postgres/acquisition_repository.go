package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

var _ repository.AcquisitionRepository = (*AcquisitionRepo)(nil)

// AcquisitionRepo adquisiciones (compras, devoluciones y ajustes) sobre PostgreSQL.
type AcquisitionRepo struct {
	q Querier
}

// NewAcquisitionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAcquisitionRepository(q Querier) *AcquisitionRepo {
	return &AcquisitionRepo{q: q}
}

// Create inserta la cabecera; los lotes se insertan aparte con BatchRepo.
func (r *AcquisitionRepo) Create(ctx context.Context, a *entity.Acquisition) error {
	query := `
		INSERT INTO acquisitions (id, reference, origin, status, acquired_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.Reference, string(a.Origin), string(a.Status), a.AcquiredAt, a.CreatedBy, a.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert acquisition", err)
	}
	return nil
}

// GetByIDForUpdate bloquea la adquisición.
func (r *AcquisitionRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Acquisition, error) {
	query := `
		SELECT id, reference, origin, status, acquired_at, created_by, created_at
		FROM acquisitions WHERE id = $1 FOR UPDATE`
	var (
		a              entity.Acquisition
		origin, status string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Reference, &origin, &status, &a.AcquiredAt, &a.CreatedBy, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get acquisition: %w", err)
	}
	a.Origin = entity.BatchOrigin(origin)
	a.Status = entity.AcquisitionStatus(status)
	return &a, nil
}

// MarkReceived transición draft -> received con la fecha de recepción.
func (r *AcquisitionRepo) MarkReceived(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE acquisitions SET status = 'received', acquired_at = $2 WHERE id = $1 AND status = 'draft'`,
		id, at,
	)
	if err != nil {
		return mapWriteError("mark acquisition received", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	exists, err := rowExists(ctx, r.q, `SELECT EXISTS(SELECT 1 FROM acquisitions WHERE id = $1)`, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func rowExists(ctx context.Context, q Querier, query string, args ...any) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return exists, nil
}

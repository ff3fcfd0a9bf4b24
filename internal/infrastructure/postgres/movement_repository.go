package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `m.id, m.reference, m.direction, m.status, m.linked_movement_id, m.acquisition_id,
	m.created_by, m.created_at, m.reversed_at`

// MovementRepo movimientos con sus líneas y consumos por lote.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create inserta cabecera, líneas y consumos. Debe llamarse dentro de una transacción.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO movements (id, reference, direction, status, linked_movement_id, acquisition_id, created_by, created_at, reversed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.Reference, string(m.Direction), string(m.Status), m.LinkedMovementID, m.AcquisitionID,
		m.CreatedBy, m.CreatedAt, m.ReversedAt,
	)
	if err != nil {
		return mapWriteError("insert movement", err)
	}

	for i, l := range m.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO movement_lines (movement_id, line_no, product_id, quantity, unit_cost, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, i+1, l.ProductID, l.Quantity, l.UnitCost, l.TotalCost,
		)
		if err != nil {
			return mapWriteError("insert movement line", err)
		}
		for j, c := range l.Consumption {
			_, err := r.q.Exec(ctx, `
				INSERT INTO movement_consumptions (movement_id, line_no, seq, batch_id, quantity, unit_cost)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				m.ID, i+1, j+1, c.BatchID, c.Quantity, c.UnitCost,
			)
			if err != nil {
				return mapWriteError("insert movement consumption", err)
			}
		}
	}
	return nil
}

// GetByID devuelve el movimiento completo o nil, nil.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.get(ctx, `SELECT `+movementColumns+` FROM movements m WHERE m.id = $1`, id)
}

// GetByIDForUpdate igual que GetByID pero bloqueando la cabecera: dos devoluciones
// concurrentes de la misma salida se serializan aquí.
func (r *MovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.get(ctx, `SELECT `+movementColumns+` FROM movements m WHERE m.id = $1 FOR UPDATE`, id)
}

func (r *MovementRepo) get(ctx context.Context, query, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	if err := r.loadLines(ctx, []*entity.Movement{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// MarkReversed transición única completed -> reversed.
func (r *MovementRepo) MarkReversed(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE movements SET status = 'reversed', reversed_at = $2 WHERE id = $1 AND status = 'completed'`,
		id, at,
	)
	if err != nil {
		return mapWriteError("mark movement reversed", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	exists, err := rowExists(ctx, r.q, `SELECT EXISTS(SELECT 1 FROM movements WHERE id = $1)`, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyReversed
}

// List movimientos más recientes primero, con filtros opcionales de producto y dirección.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	qb := psql.Select(movementColumns).
		From("movements m").
		OrderBy("m.created_at DESC", "m.id DESC")
	if f.Direction != "" {
		qb = qb.Where(sq.Eq{"m.direction": string(f.Direction)})
	}
	if f.ProductID != "" {
		qb = qb.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM movement_lines l WHERE l.movement_id = m.id AND l.product_id = ?)", f.ProductID))
	}
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		qb = qb.Offset(uint64(f.Offset))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movement query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list movements: %w", err)
	}
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		if isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list movements: %w", err)
	}
	if err := r.loadLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadLines carga líneas y consumos de varios movimientos con dos consultas.
func (r *MovementRepo) loadLines(ctx context.Context, movements []*entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Movement, len(movements))
	ids := make([]string, 0, len(movements))
	for _, m := range movements {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	query, args, err := psql.Select("movement_id", "product_id", "quantity", "unit_cost", "total_cost").
		From("movement_lines").
		Where(sq.Eq{"movement_id": ids}).
		OrderBy("movement_id", "line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list movement lines: %w", err)
	}
	for rows.Next() {
		var (
			movementID string
			l          entity.MovementLine
		)
		if err := rows.Scan(&movementID, &l.ProductID, &l.Quantity, &l.UnitCost, &l.TotalCost); err != nil {
			rows.Close()
			return fmt.Errorf("scan movement line: %w", err)
		}
		if m, ok := byID[movementID]; ok {
			m.Lines = append(m.Lines, l)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list movement lines: %w", err)
	}

	query, args, err = psql.Select("movement_id", "line_no", "batch_id", "quantity", "unit_cost").
		From("movement_consumptions").
		Where(sq.Eq{"movement_id": ids}).
		OrderBy("movement_id", "line_no", "seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consumptions query: %w", err)
	}
	rows, err = r.q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list movement consumptions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			movementID string
			lineNo     int
			c          entity.ConsumptionLine
		)
		if err := rows.Scan(&movementID, &lineNo, &c.BatchID, &c.Quantity, &c.UnitCost); err != nil {
			return fmt.Errorf("scan movement consumption: %w", err)
		}
		m, ok := byID[movementID]
		if !ok || lineNo < 1 || lineNo > len(m.Lines) {
			continue
		}
		m.Lines[lineNo-1].Consumption = append(m.Lines[lineNo-1].Consumption, c)
	}
	return rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m                 entity.Movement
		direction, status string
	)
	if err := row.Scan(
		&m.ID, &m.Reference, &direction, &status, &m.LinkedMovementID, &m.AcquisitionID,
		&m.CreatedBy, &m.CreatedAt, &m.ReversedAt,
	); err != nil {
		return nil, err
	}
	m.Direction = entity.MovementDirection(direction)
	m.Status = entity.MovementStatus(status)
	return &m, nil
}

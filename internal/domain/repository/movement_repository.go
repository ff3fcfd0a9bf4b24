package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// MovementFilter filtros para listar movimientos.
type MovementFilter struct {
	ProductID string
	Direction entity.MovementDirection
	Limit     int
	Offset    int
}

// MovementRepository define el puerto para movimientos con sus líneas y consumos.
type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error)
	// MarkReversed transición única completed -> reversed; domain.ErrAlreadyReversed si ya estaba.
	MarkReversed(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
}

package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// AcquisitionRepository define el puerto para las adquisiciones (cabecera de lotes).
type AcquisitionRepository interface {
	Create(ctx context.Context, a *entity.Acquisition) error
	// GetByIDForUpdate bloquea la adquisición; nil, nil si no existe.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Acquisition, error)
	// MarkReceived pasa de draft a received y fija acquired_at; domain.ErrConflict si no estaba en draft.
	MarkReceived(ctx context.Context, id string, at time.Time) error
}

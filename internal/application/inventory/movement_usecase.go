package inventory

import (
	"context"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// MovementUseCase consultas de movimientos (solo lectura).
type MovementUseCase struct {
	repo repository.MovementRepository
}

// NewMovementUseCase construye el caso de uso.
func NewMovementUseCase(repo repository.MovementRepository) *MovementUseCase {
	return &MovementUseCase{repo: repo}
}

// GetByID devuelve el movimiento con sus líneas y consumos.
func (uc *MovementUseCase) GetByID(ctx context.Context, id string) (*dto.MovementResponse, error) {
	m, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	out := dto.ToMovementResponse(m)
	return &out, nil
}

// List lista movimientos filtrando opcionalmente por producto y dirección.
func (uc *MovementUseCase) List(ctx context.Context, productID, direction string, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	dir := entity.MovementDirection(direction)
	if direction != "" && !dir.Valid() {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.List(ctx, repository.MovementFilter{
		ProductID: productID,
		Direction: dir,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.ToMovementResponse(m))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

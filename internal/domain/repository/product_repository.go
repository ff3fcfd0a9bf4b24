package repository

import (
	"context"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product.
// AdjustTotalStock es la única escritura de total_stock y solo se llama dentro de la
// transacción del movimiento que la justifica.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDForUpdate bloquea la fila del producto (SELECT FOR UPDATE); nil, nil si no existe.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	ListIDs(ctx context.Context) ([]string, error)
	// AdjustTotalStock suma delta (con signo) a total_stock; domain.ErrNotFound si no existe.
	AdjustTotalStock(ctx context.Context, id string, delta int) error
}

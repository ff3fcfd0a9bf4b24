package repository

import (
	"context"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// BatchFilter filtros de consulta de lotes.
type BatchFilter struct {
	OnlyOpen       bool                // remaining > 0
	IncludePending bool                // incluye lotes de adquisiciones no recibidas
	Origin         *entity.BatchOrigin // nil = todos
}

// BatchRepository define el puerto del almacén de lotes (capas de costo).
type BatchRepository interface {
	Create(ctx context.Context, b *entity.Batch) error
	// ListReceivedForUpdate devuelve los lotes recibidos del producto en orden FIFO
	// (acquired_at, id) y los bloquea hasta el fin de la transacción.
	ListReceivedForUpdate(ctx context.Context, productID string) ([]*entity.Batch, error)
	ListByProduct(ctx context.Context, productID string, filter BatchFilter) ([]*entity.Batch, error)
	ListByAcquisition(ctx context.Context, acquisitionID string) ([]*entity.Batch, error)
	UpdateRemaining(ctx context.Context, batchID string, remaining int) error
	// InitializeNullRemaining fija remaining = original en lotes recibidos sin inicializar.
	// productID nil aplica a todos los productos.
	InitializeNullRemaining(ctx context.Context, productID *string) (int64, error)
}

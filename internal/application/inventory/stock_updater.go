package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// adjustTotalStock es la única vía de escritura de total_stock. Se invoca siempre con los
// repositorios de la transacción que también escribe los lotes; si falla, el movimiento
// completo se revierte.
func adjustTotalStock(ctx context.Context, products repository.ProductRepository, productID string, delta int) error {
	if delta == 0 {
		return nil
	}
	if err := products.AdjustTotalStock(ctx, productID, delta); err != nil {
		return fmt.Errorf("ajustar total_stock de %s en %d: %w", productID, delta, err)
	}
	return nil
}

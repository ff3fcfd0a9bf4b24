package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-fifo/internal/domain/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// ValuationUseCase valoriza el inventario de un producto a partir de sus capas abiertas.
type ValuationUseCase struct {
	products repository.ProductRepository
	batches  repository.BatchRepository
	pdf      ValuationPDFGenerator
	now      func() time.Time
}

// NewValuationUseCase construye el caso de uso. pdf puede ser nil si no se exponen reportes.
func NewValuationUseCase(products repository.ProductRepository, batches repository.BatchRepository, pdf ValuationPDFGenerator) *ValuationUseCase {
	return &ValuationUseCase{products: products, batches: batches, pdf: pdf, now: utcNow}
}

// Get devuelve las capas abiertas (orden FIFO), el stock rastreado, la deriva contra
// total_stock y el valor del inventario.
func (uc *ValuationUseCase) Get(ctx context.Context, productID string) (*dto.ValuationResponse, error) {
	v, err := uc.build(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &dto.ValuationResponse{
		Product:        dto.ToProductResponse(v.Product),
		Layers:         dto.ToBatchResponses(v.Layers),
		TrackedStock:   v.Tracked,
		Drift:          v.Drift(),
		InventoryValue: v.Value,
		AverageCost:    domaininv.AverageLayerCost(v.Layers),
	}, nil
}

// PDF genera el reporte de valorización.
func (uc *ValuationUseCase) PDF(ctx context.Context, productID string) ([]byte, error) {
	if uc.pdf == nil {
		return nil, fmt.Errorf("generador PDF no configurado")
	}
	v, err := uc.build(ctx, productID)
	if err != nil {
		return nil, err
	}
	return uc.pdf.GenerateValuationPDF(ctx, v)
}

func (uc *ValuationUseCase) build(ctx context.Context, productID string) (*entity.Valuation, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	layers, err := uc.batches.ListByProduct(ctx, productID, repository.BatchFilter{OnlyOpen: true})
	if err != nil {
		return nil, fmt.Errorf("listar capas: %w", err)
	}
	v := &entity.Valuation{
		Product:     p,
		Layers:      layers,
		Tracked:     domaininv.TrackedStock(layers),
		Value:       decimal.Zero,
		GeneratedAt: uc.now(),
	}
	for _, b := range layers {
		v.Value = v.Value.Add(b.Value())
	}
	return v, nil
}

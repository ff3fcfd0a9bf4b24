package dto

import (
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// ToProductResponse mapea la entidad a su salida.
func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		Cost:       p.Cost,
		TotalStock: p.TotalStock,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ToBatchResponse mapea un lote.
func ToBatchResponse(b *entity.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		AcquisitionID:     b.AcquisitionID,
		ProductID:         b.ProductID,
		Origin:            b.Origin.String(),
		Status:            string(b.Status),
		AcquiredAt:        b.AcquiredAt,
		OriginalQuantity:  b.OriginalQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
	}
}

// ToBatchResponses mapea una lista de lotes.
func ToBatchResponses(batches []*entity.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, ToBatchResponse(b))
	}
	return out
}

// ToPurchaseResponse mapea una adquisición de compra.
func ToPurchaseResponse(a *entity.Acquisition) PurchaseResponse {
	return PurchaseResponse{
		ID:         a.ID,
		Reference:  a.Reference,
		Status:     string(a.Status),
		AcquiredAt: a.AcquiredAt,
		Batches:    ToBatchResponses(a.Batches),
	}
}

// ToMovementResponse mapea un movimiento con sus líneas.
func ToMovementResponse(m *entity.Movement) MovementResponse {
	lines := make([]MovementLineResponse, 0, len(m.Lines))
	for _, l := range m.Lines {
		var cons []ConsumptionLineResponse
		for _, c := range l.Consumption {
			cons = append(cons, ConsumptionLineResponse{BatchID: c.BatchID, Quantity: c.Quantity, UnitCost: c.UnitCost})
		}
		lines = append(lines, MovementLineResponse{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			TotalCost:   l.TotalCost,
			Consumption: cons,
		})
	}
	return MovementResponse{
		ID:               m.ID,
		Reference:        m.Reference,
		Direction:        string(m.Direction),
		Status:           string(m.Status),
		LinkedMovementID: m.LinkedMovementID,
		AcquisitionID:    m.AcquisitionID,
		Lines:            lines,
		TotalCost:        m.TotalCost(),
		CreatedBy:        m.CreatedBy,
		CreatedAt:        m.CreatedAt,
		ReversedAt:       m.ReversedAt,
	}
}

// ToRestorationPlanResponse mapea un plan de restauración.
func ToRestorationPlanResponse(p entity.RestorationPlan) RestorationPlanResponse {
	lines := make([]RestorationLineResponse, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, RestorationLineResponse{BatchID: l.BatchID, Quantity: l.Quantity})
	}
	return RestorationPlanResponse{
		ProductID:           p.ProductID,
		Requested:           p.Requested,
		Lines:               lines,
		Unrestored:          p.Unrestored,
		CompensatingBatchID: p.CompensatingBatchID,
	}
}

// ToReconcileResponse mapea el resumen de reconciliación.
func ToReconcileResponse(r *entity.ReconcileResult) ReconcileResponse {
	out := ReconcileResponse{
		ProductsChecked:    r.ProductsChecked,
		InitializedBatches: r.InitializedBatches,
		AdjustedProducts:   make([]ReconcileAdjustmentResponse, 0, len(r.Adjustments)),
		Anomalies:          make([]ReconcileAnomalyResponse, 0, len(r.Anomalies)),
	}
	for _, a := range r.Adjustments {
		out.AdjustedProducts = append(out.AdjustedProducts, ReconcileAdjustmentResponse{
			ProductID:     a.ProductID,
			AcquisitionID: a.AcquisitionID,
			BatchID:       a.BatchID,
			Quantity:      a.Quantity,
			UnitCost:      a.UnitCost,
		})
	}
	for _, a := range r.Anomalies {
		out.Anomalies = append(out.Anomalies, ReconcileAnomalyResponse{
			ProductID:  a.ProductID,
			TotalStock: a.TotalStock,
			Tracked:    a.Tracked,
		})
	}
	return out
}

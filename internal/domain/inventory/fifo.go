package inventory

import (
	"sort"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// PlanDeduction recorre los lotes recibidos del más antiguo al más nuevo (AcquiredAt, ID)
// y toma min(remaining, pendiente) de cada uno. Devuelve el plan de consumo y las copias
// de los lotes modificados, listas para persistir; el slice de entrada no se toca.
// Si los lotes no alcanzan, plan.Shortfall queda con lo que faltó.
func PlanDeduction(productID string, batches []*entity.Batch, qty int) (entity.ConsumptionPlan, []*entity.Batch) {
	plan := entity.ConsumptionPlan{ProductID: productID, Requested: qty}
	if qty <= 0 {
		return plan, nil
	}

	ordered := eligible(productID, batches)
	sort.SliceStable(ordered, func(i, j int) bool { return fifoLess(ordered[i], ordered[j]) })

	need := qty
	var touched []*entity.Batch
	for _, b := range ordered {
		if need == 0 {
			break
		}
		avail := b.Remaining()
		if avail <= 0 {
			continue
		}
		take := min(avail, need)
		b.SetRemaining(avail - take)
		need -= take
		plan.Lines = append(plan.Lines, entity.ConsumptionLine{BatchID: b.ID, Quantity: take, UnitCost: b.UnitCost})
		touched = append(touched, b)
	}
	plan.Shortfall = need
	return plan, touched
}

// PlanRestoration recorre los lotes recibidos del más nuevo al más antiguo y devuelve
// min(original - remaining, pendiente) a cada uno. Lo que no cabe queda en plan.Unrestored.
func PlanRestoration(productID string, batches []*entity.Batch, qty int) (entity.RestorationPlan, []*entity.Batch) {
	plan := entity.RestorationPlan{ProductID: productID, Requested: qty}
	if qty <= 0 {
		return plan, nil
	}

	ordered := eligible(productID, batches)
	sort.SliceStable(ordered, func(i, j int) bool { return fifoLess(ordered[j], ordered[i]) })

	left := qty
	var touched []*entity.Batch
	for _, b := range ordered {
		if left == 0 {
			break
		}
		space := b.Capacity()
		if space <= 0 {
			continue
		}
		give := min(space, left)
		b.SetRemaining(b.Remaining() + give)
		left -= give
		plan.Lines = append(plan.Lines, entity.RestorationLine{BatchID: b.ID, Quantity: give})
		touched = append(touched, b)
	}
	plan.Unrestored = left
	return plan, touched
}

// TrackedStock suma de remaining de los lotes recibidos (nil cuenta como 0).
func TrackedStock(batches []*entity.Batch) int {
	n := 0
	for _, b := range batches {
		if b.IsReceived() {
			n += b.Remaining()
		}
	}
	return n
}

func eligible(productID string, batches []*entity.Batch) []*entity.Batch {
	out := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b == nil || !b.IsReceived() || b.ProductID != productID {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

func fifoLess(a, b *entity.Batch) bool {
	if !a.AcquiredAt.Equal(b.AcquiredAt) {
		return a.AcquiredAt.Before(b.AcquiredAt)
	}
	return a.ID < b.ID
}

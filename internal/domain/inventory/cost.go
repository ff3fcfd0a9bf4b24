package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// BlendCost costo promedio ponderado de dos cantidades, redondeado a entity.CostPlaces.
// Costo = ((qtyA * costA) + (qtyB * costB)) / (qtyA + qtyB)
func BlendCost(qtyA int, costA decimal.Decimal, qtyB int, costB decimal.Decimal) decimal.Decimal {
	sum := qtyA + qtyB
	if sum <= 0 {
		return decimal.Zero
	}
	num := costA.Mul(decimal.NewFromInt(int64(qtyA))).Add(costB.Mul(decimal.NewFromInt(int64(qtyB))))
	return entity.RoundCost(num.Div(decimal.NewFromInt(int64(sum))))
}

// AverageLayerCost costo promedio de las capas abiertas, ponderado por la cantidad restante.
func AverageLayerCost(layers []*entity.Batch) decimal.Decimal {
	total, qty := decimal.Zero, 0
	for _, b := range layers {
		q := b.Remaining()
		if q <= 0 {
			continue
		}
		total = total.Add(b.UnitCost.Mul(decimal.NewFromInt(int64(q))))
		qty += q
	}
	return weightedAverage(total, qty)
}

// ConsumedUnitCost costo unitario promedio de un consumo, usado como base de costo
// del lote compensatorio de una devolución.
func ConsumedUnitCost(lines []entity.ConsumptionLine) decimal.Decimal {
	total, qty := decimal.Zero, 0
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
		qty += l.Quantity
	}
	return weightedAverage(total, qty)
}

// weightedAverage divide una sola vez y redondea al final.
func weightedAverage(total decimal.Decimal, qty int) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return entity.RoundCost(total.Div(decimal.NewFromInt(int64(qty))))
}

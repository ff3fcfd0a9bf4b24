package entity

import "github.com/shopspring/decimal"

// CostPlaces decimales con que se guardan los costos unitarios (NUMERIC(18,6) en la BD).
const CostPlaces = 6

// RoundCost redondea un costo unitario calculado a CostPlaces.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostPlaces)
}

// ConsumptionLine cantidad tomada de un lote y su costo unitario.
type ConsumptionLine struct {
	BatchID  string
	Quantity int
	UnitCost decimal.Decimal
}

// ConsumptionPlan resultado de una deducción FIFO para un producto.
// Shortfall > 0 solo puede persistirse con la política permisiva.
type ConsumptionPlan struct {
	ProductID string
	Requested int
	Lines     []ConsumptionLine
	Shortfall int
}

// Consumed cantidad efectivamente cubierta por lotes.
func (p ConsumptionPlan) Consumed() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// CostOfGoods costo de lo consumido (suma de cantidad * costo por lote).
func (p ConsumptionPlan) CostOfGoods() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// AverageUnitCost costo promedio ponderado de lo consumido (cero si nada se consumió).
func (p ConsumptionPlan) AverageUnitCost() decimal.Decimal {
	n := p.Consumed()
	if n == 0 {
		return decimal.Zero
	}
	return RoundCost(p.CostOfGoods().Div(decimal.NewFromInt(int64(n))))
}

// RestorationLine cantidad devuelta a un lote.
type RestorationLine struct {
	BatchID  string
	Quantity int
}

// RestorationPlan resultado de una restauración para un producto.
// Unrestored es lo que no cupo en lotes existentes.
type RestorationPlan struct {
	ProductID           string
	Requested           int
	Lines               []RestorationLine
	Unrestored          int
	CompensatingBatchID string
}

// Restored cantidad devuelta a lotes.
func (p RestorationPlan) Restored() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

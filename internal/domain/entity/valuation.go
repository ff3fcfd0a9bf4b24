package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valuation foto de las capas de costo abiertas de un producto.
type Valuation struct {
	Product     *Product
	Layers      []*Batch
	Tracked     int
	Value       decimal.Decimal
	GeneratedAt time.Time
}

// Drift diferencia entre el contador agregado y lo rastreado en lotes.
func (v *Valuation) Drift() int {
	if v.Product == nil {
		return 0
	}
	return v.Product.TotalStock - v.Tracked
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchOrigin indica cómo nació una capa de costo.
type BatchOrigin string

const (
	BatchOriginPurchase   BatchOrigin = "purchase"   // recepción de orden de compra
	BatchOriginReturn     BatchOrigin = "return"     // lote compensatorio de una devolución
	BatchOriginAdjustment BatchOrigin = "adjustment" // lote sintético creado por la reconciliación
)

// Valid reporta si el origen es uno de los conocidos.
func (o BatchOrigin) Valid() bool {
	switch o {
	case BatchOriginPurchase, BatchOriginReturn, BatchOriginAdjustment:
		return true
	}
	return false
}

func (o BatchOrigin) String() string { return string(o) }

// Batch es una capa de costo: cantidad de un producto adquirida en un momento y costo dados.
// AcquiredAt y Status provienen de la adquisición padre; solo los lotes de adquisiciones
// recibidas participan en el FIFO. RemainingQuantity nil significa "sin inicializar"
// (datos heredados); la reconciliación lo fija en OriginalQuantity.
type Batch struct {
	ID                string
	AcquisitionID     string
	ProductID         string
	Origin            BatchOrigin
	Status            AcquisitionStatus
	AcquiredAt        time.Time
	OriginalQuantity  int
	RemainingQuantity *int
	UnitCost          decimal.Decimal
	CreatedAt         time.Time
}

// Remaining cantidad disponible para deducción (0 si no está inicializada).
func (b *Batch) Remaining() int {
	if b.RemainingQuantity == nil {
		return 0
	}
	return *b.RemainingQuantity
}

// Capacity espacio disponible para restaurar (original - remaining).
// Un lote sin inicializar se considera lleno.
func (b *Batch) Capacity() int {
	if b.RemainingQuantity == nil {
		return 0
	}
	return b.OriginalQuantity - *b.RemainingQuantity
}

// IsReceived indica si el lote es visible para el libro.
func (b *Batch) IsReceived() bool {
	return b.Status == AcquisitionStatusReceived
}

// SetRemaining asigna la cantidad restante.
func (b *Batch) SetRemaining(q int) {
	b.RemainingQuantity = &q
}

// Value valor del inventario remanente en la capa (remaining * unitCost).
func (b *Batch) Value() decimal.Decimal {
	return b.UnitCost.Mul(decimal.NewFromInt(int64(b.Remaining())))
}

// Clone copia el lote sin compartir el puntero de RemainingQuantity.
func (b *Batch) Clone() *Batch {
	c := *b
	if b.RemainingQuantity != nil {
		r := *b.RemainingQuantity
		c.RemainingQuantity = &r
	}
	return &c
}

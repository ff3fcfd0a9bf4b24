package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementDirection sentido del movimiento.
type MovementDirection string

const (
	MovementOutbound   MovementDirection = "outbound"   // salida (venta/consumo)
	MovementInbound    MovementDirection = "inbound"    // recepción de compra
	MovementReturn     MovementDirection = "return"     // devolución de una salida
	MovementAdjustment MovementDirection = "adjustment" // ajuste de reconciliación
)

// Valid reporta si la dirección es conocida.
func (d MovementDirection) Valid() bool {
	switch d {
	case MovementOutbound, MovementInbound, MovementReturn, MovementAdjustment:
		return true
	}
	return false
}

// MovementStatus estado terminal del movimiento.
type MovementStatus string

const (
	MovementCompleted MovementStatus = "completed"
	MovementReversed  MovementStatus = "reversed"
)

// Movement registro inmutable de un movimiento; solo Status pasa una vez de completed a reversed.
type Movement struct {
	ID               string
	Reference        string
	Direction        MovementDirection
	Status           MovementStatus
	LinkedMovementID *string // en devoluciones apunta a la salida revertida
	AcquisitionID    *string // adquisición creada por el movimiento (entradas, devoluciones, ajustes)
	Lines            []MovementLine
	CreatedBy        string
	CreatedAt        time.Time
	ReversedAt       *time.Time
}

// MovementLine cantidad por producto; en salidas guarda el plan de consumo por lote.
type MovementLine struct {
	ProductID   string
	Quantity    int
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	Consumption []ConsumptionLine
}

// IsReversed indica si el movimiento ya fue revertido.
func (m *Movement) IsReversed() bool {
	return m.Status == MovementReversed
}

// TotalCost suma el costo de todas las líneas.
func (m *Movement) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range m.Lines {
		total = total.Add(l.TotalCost)
	}
	return total
}

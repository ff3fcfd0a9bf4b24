package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del inventario.
// TotalStock es el contador agregado de lectura rápida; Cost es el costo unitario vigente
// y se usa como base de costo en los lotes de ajuste de la reconciliación.
type Product struct {
	ID         string
	SKU        string
	Name       string
	Cost       decimal.Decimal
	TotalStock int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

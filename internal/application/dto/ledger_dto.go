package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutboundLineRequest línea de una salida.
type OutboundLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOutboundRequest entrada para registrar una salida (una o varias líneas).
type CreateOutboundRequest struct {
	Reference string                `json:"reference"`
	Lines     []OutboundLineRequest `json:"lines"`
}

// PurchaseLineRequest línea de una orden de compra.
type PurchaseLineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseRequest entrada para crear una orden de compra en borrador.
type CreatePurchaseRequest struct {
	Reference string                `json:"reference"`
	Lines     []PurchaseLineRequest `json:"lines"`
}

// BatchResponse capa de costo.
type BatchResponse struct {
	ID                string          `json:"id"`
	AcquisitionID     string          `json:"acquisition_id"`
	ProductID         string          `json:"product_id"`
	Origin            string          `json:"origin"`
	Status            string          `json:"status"`
	AcquiredAt        time.Time       `json:"acquired_at"`
	OriginalQuantity  int             `json:"original_quantity"`
	RemainingQuantity *int            `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// PurchaseResponse salida de una orden de compra.
type PurchaseResponse struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	Status     string          `json:"status"`
	AcquiredAt time.Time       `json:"acquired_at"`
	Batches    []BatchResponse `json:"batches"`
}

// ConsumptionLineResponse cantidad tomada de un lote.
type ConsumptionLineResponse struct {
	BatchID  string          `json:"batch_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// MovementLineResponse línea de movimiento.
type MovementLineResponse struct {
	ProductID   string                    `json:"product_id"`
	Quantity    int                       `json:"quantity"`
	UnitCost    decimal.Decimal           `json:"unit_cost"`
	TotalCost   decimal.Decimal           `json:"total_cost"`
	Consumption []ConsumptionLineResponse `json:"consumption,omitempty"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID               string                 `json:"id"`
	Reference        string                 `json:"reference"`
	Direction        string                 `json:"direction"`
	Status           string                 `json:"status"`
	LinkedMovementID *string                `json:"linked_movement_id,omitempty"`
	AcquisitionID    *string                `json:"acquisition_id,omitempty"`
	Lines            []MovementLineResponse `json:"lines"`
	TotalCost        decimal.Decimal        `json:"total_cost"`
	CreatedBy        string                 `json:"created_by"`
	CreatedAt        time.Time              `json:"created_at"`
	ReversedAt       *time.Time             `json:"reversed_at,omitempty"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// RestorationLineResponse cantidad devuelta a un lote.
type RestorationLineResponse struct {
	BatchID  string `json:"batch_id"`
	Quantity int    `json:"quantity"`
}

// RestorationPlanResponse plan de restauración de un producto.
type RestorationPlanResponse struct {
	ProductID           string                    `json:"product_id"`
	Requested           int                       `json:"requested"`
	Lines               []RestorationLineResponse `json:"lines"`
	Unrestored          int                       `json:"unrestored"`
	CompensatingBatchID string                    `json:"compensating_batch_id"`
}

// ReturnResponse resultado de revertir una salida.
type ReturnResponse struct {
	Original MovementResponse          `json:"original"`
	Return   MovementResponse          `json:"return"`
	Plans    []RestorationPlanResponse `json:"plans"`
}

// ReconcileRequest alcance opcional de la reconciliación.
type ReconcileRequest struct {
	ProductID *string `json:"product_id"`
}

// ReconcileAdjustmentResponse ajuste creado por la reconciliación.
type ReconcileAdjustmentResponse struct {
	ProductID     string          `json:"product_id"`
	AcquisitionID string          `json:"acquisition_id"`
	BatchID       string          `json:"batch_id"`
	Quantity      int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
}

// ReconcileAnomalyResponse producto sobre-rastreado (lotes > total_stock).
type ReconcileAnomalyResponse struct {
	ProductID  string `json:"product_id"`
	TotalStock int    `json:"total_stock"`
	Tracked    int    `json:"tracked"`
}

// ReconcileResponse resumen de la reconciliación.
type ReconcileResponse struct {
	ProductsChecked    int                           `json:"products_checked"`
	InitializedBatches int64                         `json:"initialized_batches"`
	AdjustedProducts   []ReconcileAdjustmentResponse `json:"adjusted_products"`
	Anomalies          []ReconcileAnomalyResponse    `json:"anomalies"`
}

// ReconcileQueuedResponse respuesta cuando la reconciliación se encola.
type ReconcileQueuedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ValuationResponse capas abiertas y valor del inventario de un producto.
type ValuationResponse struct {
	Product        ProductResponse `json:"product"`
	Layers         []BatchResponse `json:"layers"`
	TrackedStock   int             `json:"tracked_stock"`
	Drift          int             `json:"drift"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	AverageCost    decimal.Decimal `json:"average_cost"`
}

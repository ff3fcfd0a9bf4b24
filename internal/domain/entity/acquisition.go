package entity

import "time"

// AcquisitionStatus estado de la adquisición padre de los lotes.
type AcquisitionStatus string

const (
	AcquisitionStatusDraft     AcquisitionStatus = "draft"
	AcquisitionStatusReceived  AcquisitionStatus = "received"
	AcquisitionStatusCancelled AcquisitionStatus = "cancelled"
)

// Acquisition agrupa lotes: orden de compra, devolución compensatoria o ajuste de reconciliación.
// AcquiredAt es la clave de orden FIFO de todos sus lotes.
type Acquisition struct {
	ID         string
	Reference  string
	Origin     BatchOrigin
	Status     AcquisitionStatus
	AcquiredAt time.Time
	CreatedBy  string
	CreatedAt  time.Time
	Batches    []*Batch
}

// AdjustmentAcquiredAt fecha de las adquisiciones de ajuste: anterior a cualquier lote real,
// de modo que el FIFO las consume primero.
var AdjustmentAcquiredAt = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

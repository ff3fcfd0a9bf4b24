package entity

import "github.com/shopspring/decimal"

// ReconcileAdjustment lote de ajuste creado para cerrar la brecha entre totalStock y lotes.
type ReconcileAdjustment struct {
	ProductID     string
	AcquisitionID string
	BatchID       string
	Quantity      int
	UnitCost      decimal.Decimal
}

// ReconcileAnomaly producto con más stock en lotes que en el contador (no se corrige).
type ReconcileAnomaly struct {
	ProductID  string
	TotalStock int
	Tracked    int
}

// ReconcileResult resumen de una corrida de reconciliación.
type ReconcileResult struct {
	// Scoped: la corrida cubrió un solo producto, no todo el catálogo.
	Scoped             bool
	ProductsChecked    int
	InitializedBatches int64
	Adjustments        []ReconcileAdjustment
	Anomalies          []ReconcileAnomaly
}

// Changed indica si la corrida escribió algo.
func (r *ReconcileResult) Changed() bool {
	return r.InitializedBatches > 0 || len(r.Adjustments) > 0
}

// Package queue encola y procesa trabajos en segundo plano del libro con asynq (Redis).
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Tipos de tarea.
const (
	TypeReconcile = "ledger:reconcile"
)

// ReconcilePayload alcance de una reconciliación encolada. ProductID nil reconcilia todo.
type ReconcilePayload struct {
	ProductID   *string `json:"product_id,omitempty"`
	RequestedBy string  `json:"requested_by"`
}

// NewReconcileTask serializa el payload en una tarea asynq.
func NewReconcileTask(p ReconcilePayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("serializar payload: %w", err)
	}
	return asynq.NewTask(TypeReconcile, b), nil
}

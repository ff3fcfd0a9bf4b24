package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
)

// Reconciler caso de uso invocado por el worker.
type Reconciler interface {
	Reconcile(ctx context.Context, in dto.ReconcileRequest) (*dto.ReconcileResponse, error)
}

// ReconcileProcessor atiende tareas TypeReconcile.
type ReconcileProcessor struct {
	uc  Reconciler
	log zerolog.Logger
}

// NewReconcileProcessor construye el procesador.
func NewReconcileProcessor(uc Reconciler, log zerolog.Logger) *ReconcileProcessor {
	return &ReconcileProcessor{uc: uc, log: log.With().Str("processor", "reconcile").Logger()}
}

// Register asocia los handlers del procesador al mux del servidor.
func (p *ReconcileProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReconcile, p.ProcessReconcile)
}

// ProcessReconcile ejecuta la reconciliación. Payload inválido, producto inexistente o
// entrada inválida no se reintentan; los conflictos de transacción sí.
func (p *ReconcileProcessor) ProcessReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
	}

	log := p.log.With().Str("requested_by", payload.RequestedBy).Logger()
	if payload.ProductID != nil {
		log = log.With().Str("product_id", *payload.ProductID).Logger()
	}
	log.Info().Msg("reconciliación iniciada")

	res, err := p.uc.Reconcile(ctx, dto.ReconcileRequest{ProductID: payload.ProductID})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			log.Warn().Err(err).Msg("reconciliación descartada")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Error().Err(err).Msg("reconciliación fallida")
		return err
	}

	log.Info().
		Int("products", res.ProductsChecked).
		Int("adjusted", len(res.AdjustedProducts)).
		Int("anomalies", len(res.Anomalies)).
		Msg("reconciliación procesada")
	return nil
}

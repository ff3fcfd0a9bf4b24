package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-fifo/internal/domain/inventory"
)

// ReturnMode define cómo se registra la cantidad devuelta.
type ReturnMode string

const (
	// ReturnModeRestore devuelve cantidad a los lotes con capacidad (más nuevos primero) y
	// registra además un lote compensatorio con la cantidad total devuelta.
	ReturnModeRestore ReturnMode = "restore"
	// ReturnModeLayer registra la devolución solo como lote compensatorio.
	ReturnModeLayer ReturnMode = "layer"
)

// ReturnUseCase revierte una salida una única vez.
type ReturnUseCase struct {
	txRunner TxRunner
	engine   *Engine
	mode     ReturnMode
	log      zerolog.Logger
	now      func() time.Time
}

// NewReturnUseCase construye el caso de uso; un modo desconocido cae en ReturnModeRestore.
func NewReturnUseCase(txRunner TxRunner, engine *Engine, mode ReturnMode, log zerolog.Logger) *ReturnUseCase {
	if mode != ReturnModeLayer {
		mode = ReturnModeRestore
	}
	return &ReturnUseCase{txRunner: txRunner, engine: engine, mode: mode, log: log, now: utcNow}
}

// WithClock reemplaza el reloj (tests).
func (uc *ReturnUseCase) WithClock(now func() time.Time) *ReturnUseCase {
	uc.now = now
	return uc
}

// Restore revierte la salida movementID: devuelve cada línea al pool de lotes, crea la
// adquisición compensatoria (origen return, fechada ahora), registra el movimiento de
// devolución enlazado y marca la salida como revertida. Una segunda llamada devuelve
// domain.ErrAlreadyReversed sin escribir nada.
func (uc *ReturnUseCase) Restore(ctx context.Context, movementID, userID string) (*dto.ReturnResponse, error) {
	if movementID == "" {
		return nil, domain.ErrInvalidInput
	}

	var (
		original *entity.Movement
		ret      *entity.Movement
		plans    []entity.RestorationPlan
	)
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		plans = plans[:0]
		mov, err := repos.Movements.GetByIDForUpdate(ctx, movementID)
		if err != nil {
			return fmt.Errorf("obtener movimiento %s: %w", movementID, err)
		}
		if mov == nil {
			return domain.ErrNotFound
		}
		if mov.Direction != entity.MovementOutbound {
			return domain.ErrInvalidInput
		}
		if mov.IsReversed() {
			return domain.ErrAlreadyReversed
		}

		now := uc.now()
		acq := &entity.Acquisition{
			ID:         uuid.NewString(),
			Reference:  strings.TrimSpace("DEV " + mov.Reference),
			Origin:     entity.BatchOriginReturn,
			Status:     entity.AcquisitionStatusReceived,
			AcquiredAt: now,
			CreatedBy:  userID,
			CreatedAt:  now,
		}
		if err := repos.Acquisitions.Create(ctx, acq); err != nil {
			return fmt.Errorf("crear adquisición de devolución: %w", err)
		}

		ret = &entity.Movement{
			ID:               uuid.NewString(),
			Reference:        acq.Reference,
			Direction:        entity.MovementReturn,
			Status:           entity.MovementCompleted,
			LinkedMovementID: &mov.ID,
			AcquisitionID:    &acq.ID,
			CreatedBy:        userID,
			CreatedAt:        now,
		}

		lines := append([]entity.MovementLine(nil), mov.Lines...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
		for _, line := range lines {
			plan, err := uc.restoreLine(ctx, repos, acq, line)
			if err != nil {
				return err
			}
			plans = append(plans, plan)
			cost := domaininv.ConsumedUnitCost(line.Consumption)
			ret.Lines = append(ret.Lines, entity.MovementLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitCost:  cost,
				TotalCost: cost.Mul(intDecimal(line.Quantity)),
			})
		}

		if err := repos.Movements.Create(ctx, ret); err != nil {
			return err
		}
		if err := repos.Movements.MarkReversed(ctx, mov.ID, now); err != nil {
			return err
		}
		mov.Status = entity.MovementReversed
		mov.ReversedAt = &now
		original = mov
		return nil
	})
	if err != nil {
		return nil, err
	}
	if uc.mode == ReturnModeRestore {
		uc.engine.ReportRestorations(plans...)
	}

	uc.log.Info().
		Str("movement_id", original.ID).
		Str("return_id", ret.ID).
		Str("mode", string(uc.mode)).
		Msg("salida revertida")

	out := &dto.ReturnResponse{
		Original: dto.ToMovementResponse(original),
		Return:   dto.ToMovementResponse(ret),
		Plans:    make([]dto.RestorationPlanResponse, 0, len(plans)),
	}
	for _, p := range plans {
		out.Plans = append(out.Plans, dto.ToRestorationPlanResponse(p))
	}
	return out, nil
}

// restoreLine aplica la devolución de una línea según el modo configurado.
// El lote compensatorio toma como costo el promedio de lo que la salida consumió.
func (uc *ReturnUseCase) restoreLine(ctx context.Context, repos TxRepos, acq *entity.Acquisition, line entity.MovementLine) (entity.RestorationPlan, error) {
	layer := &entity.Batch{
		ID:               uuid.NewString(),
		AcquisitionID:    acq.ID,
		ProductID:        line.ProductID,
		Origin:           entity.BatchOriginReturn,
		Status:           entity.AcquisitionStatusReceived,
		AcquiredAt:       acq.AcquiredAt,
		OriginalQuantity: line.Quantity,
		UnitCost:         domaininv.ConsumedUnitCost(line.Consumption),
		CreatedAt:        acq.CreatedAt,
	}

	if uc.mode == ReturnModeLayer {
		if err := uc.engine.AddLayer(ctx, repos, layer); err != nil {
			return entity.RestorationPlan{}, err
		}
		return entity.RestorationPlan{
			ProductID:           line.ProductID,
			Requested:           line.Quantity,
			Lines:               []entity.RestorationLine{{BatchID: layer.ID, Quantity: line.Quantity}},
			CompensatingBatchID: layer.ID,
		}, nil
	}

	plan, err := uc.engine.Restore(ctx, repos, line.ProductID, line.Quantity)
	if err != nil {
		return plan, err
	}
	// total_stock ya se ajustó en Restore; el lote compensatorio documenta la devolución.
	layer.SetRemaining(line.Quantity)
	if err := repos.Batches.Create(ctx, layer); err != nil {
		return plan, fmt.Errorf("crear lote compensatorio: %w", err)
	}
	plan.CompensatingBatchID = layer.ID
	return plan, nil
}

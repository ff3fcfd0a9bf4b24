package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
)

// OutboundUseCase registra salidas: una deducción FIFO por línea, todas en una misma transacción.
type OutboundUseCase struct {
	txRunner TxRunner
	engine   *Engine
	log      zerolog.Logger
	now      func() time.Time
}

// NewOutboundUseCase construye el caso de uso.
func NewOutboundUseCase(txRunner TxRunner, engine *Engine, log zerolog.Logger) *OutboundUseCase {
	return &OutboundUseCase{txRunner: txRunner, engine: engine, log: log, now: utcNow}
}

// WithClock reemplaza el reloj (tests).
func (uc *OutboundUseCase) WithClock(now func() time.Time) *OutboundUseCase {
	uc.now = now
	return uc
}

// Create valida y registra la salida. Líneas repetidas del mismo producto se suman y las
// líneas se procesan en orden de product_id para que dos salidas concurrentes bloqueen los
// productos en el mismo orden. Si una línea falla no se persiste nada.
func (uc *OutboundUseCase) Create(ctx context.Context, userID string, in dto.CreateOutboundRequest) (*dto.MovementResponse, error) {
	lines, err := mergeOutboundLines(in.Lines)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	mov := &entity.Movement{
		ID:        uuid.NewString(),
		Reference: strings.TrimSpace(in.Reference),
		Direction: entity.MovementOutbound,
		Status:    entity.MovementCompleted,
		CreatedBy: userID,
		CreatedAt: now,
	}

	var plans []entity.ConsumptionPlan
	err = uc.txRunner.Run(ctx, func(repos TxRepos) error {
		mov.Lines = mov.Lines[:0]
		plans = plans[:0]
		for _, l := range lines {
			plan, err := uc.engine.Deduct(ctx, repos, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			plans = append(plans, plan)
			mov.Lines = append(mov.Lines, entity.MovementLine{
				ProductID:   l.ProductID,
				Quantity:    l.Quantity,
				UnitCost:    plan.AverageUnitCost(),
				TotalCost:   plan.CostOfGoods(),
				Consumption: plan.Lines,
			})
		}
		return repos.Movements.Create(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	uc.engine.ReportDeductions(plans...)

	uc.log.Info().
		Str("movement_id", mov.ID).
		Int("lines", len(mov.Lines)).
		Str("cost_of_goods", mov.TotalCost().String()).
		Msg("salida registrada")
	out := dto.ToMovementResponse(mov)
	return &out, nil
}

func mergeOutboundLines(in []dto.OutboundLineRequest) ([]dto.OutboundLineRequest, error) {
	if len(in) == 0 {
		return nil, domain.ErrInvalidInput
	}
	byProduct := make(map[string]int, len(in))
	for _, l := range in {
		id := strings.TrimSpace(l.ProductID)
		if id == "" || l.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		byProduct[id] += l.Quantity
	}
	out := make([]dto.OutboundLineRequest, 0, len(byProduct))
	for id, q := range byProduct {
		out = append(out, dto.OutboundLineRequest{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func utcNow() time.Time { return time.Now().UTC() }

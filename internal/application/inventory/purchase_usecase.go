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
)

// PurchaseUseCase crea órdenes de compra en borrador y las recibe. Los lotes de una orden
// solo entran al FIFO (y a total_stock) cuando la orden se recibe.
type PurchaseUseCase struct {
	txRunner TxRunner
	engine   *Engine
	log      zerolog.Logger
	now      func() time.Time
}

// NewPurchaseUseCase construye el caso de uso.
func NewPurchaseUseCase(txRunner TxRunner, engine *Engine, log zerolog.Logger) *PurchaseUseCase {
	return &PurchaseUseCase{txRunner: txRunner, engine: engine, log: log, now: utcNow}
}

// WithClock reemplaza el reloj (tests).
func (uc *PurchaseUseCase) WithClock(now func() time.Time) *PurchaseUseCase {
	uc.now = now
	return uc
}

// Create registra la orden en borrador con un lote por línea (remaining sin inicializar).
func (uc *PurchaseUseCase) Create(ctx context.Context, userID string, in dto.CreatePurchaseRequest) (*dto.PurchaseResponse, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, l := range in.Lines {
		if strings.TrimSpace(l.ProductID) == "" || l.Quantity <= 0 || l.UnitCost.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
	}

	now := uc.now()
	acq := &entity.Acquisition{
		ID:         uuid.NewString(),
		Reference:  strings.TrimSpace(in.Reference),
		Origin:     entity.BatchOriginPurchase,
		Status:     entity.AcquisitionStatusDraft,
		AcquiredAt: now,
		CreatedBy:  userID,
		CreatedAt:  now,
	}

	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		acq.Batches = acq.Batches[:0]
		if err := repos.Acquisitions.Create(ctx, acq); err != nil {
			return fmt.Errorf("crear orden de compra: %w", err)
		}
		for _, l := range in.Lines {
			productID := strings.TrimSpace(l.ProductID)
			p, err := repos.Products.GetByID(ctx, productID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
			}
			b := &entity.Batch{
				ID:               uuid.NewString(),
				AcquisitionID:    acq.ID,
				ProductID:        productID,
				Origin:           entity.BatchOriginPurchase,
				Status:           entity.AcquisitionStatusDraft,
				AcquiredAt:       acq.AcquiredAt,
				OriginalQuantity: l.Quantity,
				UnitCost:         l.UnitCost,
				CreatedAt:        now,
			}
			if err := repos.Batches.Create(ctx, b); err != nil {
				return fmt.Errorf("crear lote: %w", err)
			}
			acq.Batches = append(acq.Batches, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := dto.ToPurchaseResponse(acq)
	return &out, nil
}

// Receive pasa la orden a recibida: fija acquired_at (clave FIFO), habilita sus lotes,
// suma a total_stock y registra el movimiento de entrada. Recibir dos veces da domain.ErrConflict.
func (uc *PurchaseUseCase) Receive(ctx context.Context, acquisitionID, userID string) (*dto.MovementResponse, error) {
	if strings.TrimSpace(acquisitionID) == "" {
		return nil, domain.ErrInvalidInput
	}

	var mov *entity.Movement
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		acq, err := repos.Acquisitions.GetByIDForUpdate(ctx, acquisitionID)
		if err != nil {
			return err
		}
		if acq == nil || acq.Origin != entity.BatchOriginPurchase {
			return domain.ErrNotFound
		}
		if acq.Status != entity.AcquisitionStatusDraft {
			return domain.ErrConflict
		}

		now := uc.now()
		if err := repos.Acquisitions.MarkReceived(ctx, acq.ID, now); err != nil {
			return err
		}
		batches, err := repos.Batches.ListByAcquisition(ctx, acq.ID)
		if err != nil {
			return err
		}
		sort.Slice(batches, func(i, j int) bool { return batches[i].ProductID < batches[j].ProductID })

		mov = &entity.Movement{
			ID:            uuid.NewString(),
			Reference:     acq.Reference,
			Direction:     entity.MovementInbound,
			Status:        entity.MovementCompleted,
			AcquisitionID: &acq.ID,
			CreatedBy:     userID,
			CreatedAt:     now,
		}
		for _, b := range batches {
			if err := uc.engine.ActivateLayer(ctx, repos, b); err != nil {
				return err
			}
			mov.Lines = append(mov.Lines, entity.MovementLine{
				ProductID: b.ProductID,
				Quantity:  b.OriginalQuantity,
				UnitCost:  b.UnitCost,
				TotalCost: b.UnitCost.Mul(intDecimal(b.OriginalQuantity)),
			})
		}
		return repos.Movements.Create(ctx, mov)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("acquisition_id", acquisitionID).
		Str("movement_id", mov.ID).
		Int("lines", len(mov.Lines)).
		Msg("orden de compra recibida")
	out := dto.ToMovementResponse(mov)
	return &out, nil
}

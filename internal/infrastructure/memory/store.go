// Package memory implementa los repositorios del libro en memoria, con transacciones por
// snapshot: Run serializa las transacciones y, si fn falla, restaura el estado previo.
// Se usa en tests de casos de uso y HTTP, y para levantar la API sin base de datos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/internal/domain"
	"github.com/jhoicas/inventario-fifo/internal/domain/entity"
	"github.com/jhoicas/inventario-fifo/internal/domain/repository"
)

// Operaciones de escritura que admiten inyección de fallas (FailOn).
const (
	OpProductCreate       = "products.create"
	OpAdjustTotalStock    = "products.adjust_total_stock"
	OpBatchCreate         = "batches.create"
	OpBatchUpdate         = "batches.update_remaining"
	OpAcquisitionCreate   = "acquisitions.create"
	OpAcquisitionReceive  = "acquisitions.mark_received"
	OpMovementCreate      = "movements.create"
	OpMovementMarkReverse = "movements.mark_reversed"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	products      map[string]entity.Product
	batches       map[string]*entity.Batch
	acquisitions  map[string]entity.Acquisition
	movements     map[string]*entity.Movement
	movementOrder []string
}

func newState() *state {
	return &state{
		products:     make(map[string]entity.Product),
		batches:      make(map[string]*entity.Batch),
		acquisitions: make(map[string]entity.Acquisition),
		movements:    make(map[string]*entity.Movement),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v.Clone()
	}
	for k, v := range s.acquisitions {
		c.acquisitions[k] = v
	}
	for k, v := range s.movements {
		c.movements[k] = cloneMovement(v)
	}
	c.movementOrder = append([]string(nil), s.movementOrder...)
	return c
}

// Store almacén en memoria. El valor cero no sirve; usar New.
type Store struct {
	mu    sync.Mutex
	st    *state
	fails map[string]error
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{st: newState(), fails: make(map[string]error)}
}

// FailOn hace que la próxima invocación de op devuelva err (una sola vez).
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[op] = err
}

// Run ejecuta fn con repositorios transaccionales. Si fn devuelve error el estado vuelve
// al snapshot tomado al inicio.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Products repositorio fuera de transacción.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Batches repositorio fuera de transacción.
func (s *Store) Batches() repository.BatchRepository { return &batchRepo{s: s} }

// Acquisitions repositorio fuera de transacción.
func (s *Store) Acquisitions() repository.AcquisitionRepository { return &acquisitionRepo{s: s} }

// Movements repositorio fuera de transacción.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

func (s *Store) repos(inTx bool) inventory.TxRepos {
	return inventory.TxRepos{
		Products:     &productRepo{s: s, inTx: inTx},
		Batches:      &batchRepo{s: s, inTx: inTx},
		Acquisitions: &acquisitionRepo{s: s, inTx: inTx},
		Movements:    &movementRepo{s: s, inTx: inTx},
	}
}

// with ejecuta fn sobre el estado; fuera de transacción toma el lock.
func (s *Store) with(inTx bool, op string, fn func(st *state) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if op != "" {
		if err, ok := s.fails[op]; ok {
			delete(s.fails, op)
			return err
		}
	}
	return fn(s.st)
}

// ── Productos ─────────────────────────────────────────────────────────────────

type productRepo struct {
	s    *Store
	inTx bool
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	return r.s.with(r.inTx, OpProductCreate, func(st *state) error {
		for _, existing := range st.products {
			if strings.EqualFold(existing.SKU, p.SKU) {
				return domain.ErrDuplicate
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.s.with(r.inTx, "", func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *productRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.s.with(r.inTx, "", func(st *state) error {
		all := make([]entity.Product, 0, len(st.products))
		for _, p := range st.products {
			all = append(all, p)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
		for i := range page(len(all), limit, offset) {
			p := all[i]
			out = append(out, &p)
		}
		return nil
	})
	return out, err
}

func (r *productRepo) ListIDs(_ context.Context) ([]string, error) {
	var out []string
	err := r.s.with(r.inTx, "", func(st *state) error {
		for id := range st.products {
			out = append(out, id)
		}
		sort.Strings(out)
		return nil
	})
	return out, err
}

func (r *productRepo) AdjustTotalStock(_ context.Context, id string, delta int) error {
	return r.s.with(r.inTx, OpAdjustTotalStock, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		p.TotalStock += delta
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		return nil
	})
}

// ── Lotes ─────────────────────────────────────────────────────────────────────

type batchRepo struct {
	s    *Store
	inTx bool
}

// view devuelve una copia del lote con los datos de su adquisición.
func (st *state) view(b *entity.Batch) *entity.Batch {
	c := b.Clone()
	if a, ok := st.acquisitions[b.AcquisitionID]; ok {
		c.Status = a.Status
		c.AcquiredAt = a.AcquiredAt
		c.Origin = a.Origin
	}
	return c
}

func (r *batchRepo) Create(_ context.Context, b *entity.Batch) error {
	return r.s.with(r.inTx, OpBatchCreate, func(st *state) error {
		if _, ok := st.acquisitions[b.AcquisitionID]; !ok {
			return fmt.Errorf("adquisición %s: %w", b.AcquisitionID, domain.ErrNotFound)
		}
		if _, ok := st.products[b.ProductID]; !ok {
			return fmt.Errorf("producto %s: %w", b.ProductID, domain.ErrNotFound)
		}
		if b.RemainingQuantity != nil && (*b.RemainingQuantity < 0 || *b.RemainingQuantity > b.OriginalQuantity) {
			return domain.ErrInvalidInput
		}
		st.batches[b.ID] = b.Clone()
		return nil
	})
}

func (r *batchRepo) ListReceivedForUpdate(_ context.Context, productID string) ([]*entity.Batch, error) {
	var out []*entity.Batch
	err := r.s.with(r.inTx, "", func(st *state) error {
		for _, b := range st.batches {
			v := st.view(b)
			if v.ProductID == productID && v.IsReceived() {
				out = append(out, v)
			}
		}
		sortFIFO(out)
		return nil
	})
	return out, err
}

func (r *batchRepo) ListByProduct(_ context.Context, productID string, f repository.BatchFilter) ([]*entity.Batch, error) {
	var out []*entity.Batch
	err := r.s.with(r.inTx, "", func(st *state) error {
		for _, b := range st.batches {
			v := st.view(b)
			if v.ProductID != productID {
				continue
			}
			if !f.IncludePending && !v.IsReceived() {
				continue
			}
			if f.OnlyOpen && v.Remaining() <= 0 {
				continue
			}
			if f.Origin != nil && v.Origin != *f.Origin {
				continue
			}
			out = append(out, v)
		}
		sortFIFO(out)
		return nil
	})
	return out, err
}

func (r *batchRepo) ListByAcquisition(_ context.Context, acquisitionID string) ([]*entity.Batch, error) {
	var out []*entity.Batch
	err := r.s.with(r.inTx, "", func(st *state) error {
		for _, b := range st.batches {
			if b.AcquisitionID == acquisitionID {
				out = append(out, st.view(b))
			}
		}
		sortFIFO(out)
		return nil
	})
	return out, err
}

func (r *batchRepo) UpdateRemaining(_ context.Context, batchID string, remaining int) error {
	return r.s.with(r.inTx, OpBatchUpdate, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return domain.ErrNotFound
		}
		if remaining < 0 || remaining > b.OriginalQuantity {
			return fmt.Errorf("lote %s: remaining %d fuera de [0,%d]: %w", batchID, remaining, b.OriginalQuantity, domain.ErrInvalidInput)
		}
		b.SetRemaining(remaining)
		return nil
	})
}

func (r *batchRepo) InitializeNullRemaining(_ context.Context, productID *string) (int64, error) {
	var n int64
	err := r.s.with(r.inTx, OpBatchUpdate, func(st *state) error {
		for _, b := range st.batches {
			if b.RemainingQuantity != nil {
				continue
			}
			if productID != nil && b.ProductID != *productID {
				continue
			}
			if a, ok := st.acquisitions[b.AcquisitionID]; !ok || a.Status != entity.AcquisitionStatusReceived {
				continue
			}
			b.SetRemaining(b.OriginalQuantity)
			n++
		}
		return nil
	})
	return n, err
}

func sortFIFO(batches []*entity.Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].AcquiredAt.Equal(batches[j].AcquiredAt) {
			return batches[i].AcquiredAt.Before(batches[j].AcquiredAt)
		}
		return batches[i].ID < batches[j].ID
	})
}

// ── Adquisiciones ─────────────────────────────────────────────────────────────

type acquisitionRepo struct {
	s    *Store
	inTx bool
}

func (r *acquisitionRepo) Create(_ context.Context, a *entity.Acquisition) error {
	return r.s.with(r.inTx, OpAcquisitionCreate, func(st *state) error {
		if _, ok := st.acquisitions[a.ID]; ok {
			return domain.ErrDuplicate
		}
		c := *a
		c.Batches = nil
		st.acquisitions[a.ID] = c
		return nil
	})
}

func (r *acquisitionRepo) GetByIDForUpdate(_ context.Context, id string) (*entity.Acquisition, error) {
	var out *entity.Acquisition
	err := r.s.with(r.inTx, "", func(st *state) error {
		if a, ok := st.acquisitions[id]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

func (r *acquisitionRepo) MarkReceived(_ context.Context, id string, at time.Time) error {
	return r.s.with(r.inTx, OpAcquisitionReceive, func(st *state) error {
		a, ok := st.acquisitions[id]
		if !ok {
			return domain.ErrNotFound
		}
		if a.Status != entity.AcquisitionStatusDraft {
			return domain.ErrConflict
		}
		a.Status = entity.AcquisitionStatusReceived
		a.AcquiredAt = at
		st.acquisitions[id] = a
		return nil
	})
}

// ── Movimientos ───────────────────────────────────────────────────────────────

type movementRepo struct {
	s    *Store
	inTx bool
}

func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	return r.s.with(r.inTx, OpMovementCreate, func(st *state) error {
		if _, ok := st.movements[m.ID]; ok {
			return domain.ErrDuplicate
		}
		st.movements[m.ID] = cloneMovement(m)
		st.movementOrder = append(st.movementOrder, m.ID)
		return nil
	})
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.s.with(r.inTx, "", func(st *state) error {
		if m, ok := st.movements[id]; ok {
			out = cloneMovement(m)
		}
		return nil
	})
	return out, err
}

func (r *movementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.GetByID(ctx, id)
}

func (r *movementRepo) MarkReversed(_ context.Context, id string, at time.Time) error {
	return r.s.with(r.inTx, OpMovementMarkReverse, func(st *state) error {
		m, ok := st.movements[id]
		if !ok {
			return domain.ErrNotFound
		}
		if m.Status != entity.MovementCompleted {
			return domain.ErrAlreadyReversed
		}
		m.Status = entity.MovementReversed
		m.ReversedAt = &at
		return nil
	})
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var out []*entity.Movement
	err := r.s.with(r.inTx, "", func(st *state) error {
		var matched []*entity.Movement
		for i := len(st.movementOrder) - 1; i >= 0; i-- {
			m := st.movements[st.movementOrder[i]]
			if f.Direction != "" && m.Direction != f.Direction {
				continue
			}
			if f.ProductID != "" && !hasProduct(m, f.ProductID) {
				continue
			}
			matched = append(matched, m)
		}
		for i := range page(len(matched), f.Limit, f.Offset) {
			out = append(out, cloneMovement(matched[i]))
		}
		return nil
	})
	return out, err
}

func hasProduct(m *entity.Movement, productID string) bool {
	for _, l := range m.Lines {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}

func cloneMovement(m *entity.Movement) *entity.Movement {
	c := *m
	c.Lines = make([]entity.MovementLine, len(m.Lines))
	for i, l := range m.Lines {
		l.Consumption = append([]entity.ConsumptionLine(nil), l.Consumption...)
		c.Lines[i] = l
	}
	if m.LinkedMovementID != nil {
		v := *m.LinkedMovementID
		c.LinkedMovementID = &v
	}
	if m.AcquisitionID != nil {
		v := *m.AcquisitionID
		c.AcquisitionID = &v
	}
	if m.ReversedAt != nil {
		v := *m.ReversedAt
		c.ReversedAt = &v
	}
	return &c
}

// page devuelve la secuencia de índices de la página pedida (limit <= 0 = sin límite).
func page(n, limit, offset int) func(yield func(int) bool) {
	return func(yield func(int) bool) {
		if offset < 0 {
			offset = 0
		}
		end := n
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		for i := offset; i < end; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

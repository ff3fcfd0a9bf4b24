package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
)

// ReconcileHandler reconciliación de lotes contra total_stock (solo admin).
type ReconcileHandler struct {
	uc    *inventory.ReconcileUseCase
	queue inventory.ReconcileEnqueuer
}

// NewReconcileHandler construye el handler. queue puede ser nil: ?async=true responde 503.
func NewReconcileHandler(uc *inventory.ReconcileUseCase, queue inventory.ReconcileEnqueuer) *ReconcileHandler {
	return &ReconcileHandler{uc: uc, queue: queue}
}

// Reconcile godoc
// @Summary      Reconciliar lotes
// @Description  Inicializa lotes sin remaining, crea capas de ajuste donde total_stock supera lo rastreado
// @Description  y reporta productos sobre-rastreados. Cuerpo vacío reconcilia todos los productos.
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        async  query  bool                  false  "Encolar en el worker"
// @Param        body   body   dto.ReconcileRequest  false  "product_id opcional"
// @Success      200    {object}  dto.ReconcileResponse
// @Success      202    {object}  dto.ReconcileQueuedResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/admin/reconcile [post]
func (h *ReconcileHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}

	if c.QueryBool("async", false) {
		if h.queue == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "QUEUE_UNAVAILABLE", Message: "cola de trabajos no configurada"})
		}
		id, err := h.queue.EnqueueReconcile(c.UserContext(), in.ProductID, GetUserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(dto.ReconcileQueuedResponse{TaskID: id, Status: "queued"})
	}

	out, err := h.uc.Reconcile(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

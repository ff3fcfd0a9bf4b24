package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
	"github.com/jhoicas/inventario-fifo/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *inventory.ProductUseCase
	ValuationUC *inventory.ValuationUseCase
	PurchaseUC  *inventory.PurchaseUseCase
	OutboundUC  *inventory.OutboundUseCase
	ReturnUC    *inventory.ReturnUseCase
	MovementUC  *inventory.MovementUseCase
	ReconcileUC *inventory.ReconcileUseCase
	Queue       inventory.ReconcileEnqueuer // opcional
	JWTSecret   string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole()
	stock := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor)
	admin := RequireRole(jwt.RoleAdmin)

	// Products
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, deps.ValuationUC)
	products.Post("/", admin, productHandler.Create)
	products.Get("/", anyRole, productHandler.List)
	products.Get("/:id", anyRole, productHandler.GetByID)
	products.Get("/:id/valuation", stock, productHandler.Valuation)
	products.Get("/:id/valuation.pdf", stock, productHandler.ValuationPDF)

	// Purchase orders
	purchases := api.Group("/purchase-orders")
	purchaseHandler := NewPurchaseHandler(deps.PurchaseUC)
	purchases.Post("/", stock, purchaseHandler.Create)
	purchases.Post("/:id/receive", stock, purchaseHandler.Receive)

	// Outbound orders y movimientos
	movementHandler := NewMovementHandler(deps.OutboundUC, deps.ReturnUC, deps.MovementUC)
	api.Post("/outbound-orders", sales, movementHandler.CreateOutbound)
	movements := api.Group("/movements")
	movements.Get("/", anyRole, movementHandler.List)
	movements.Get("/:id", anyRole, movementHandler.GetByID)
	movements.Post("/:id/return", stock, movementHandler.Return)

	// Admin
	reconcileHandler := NewReconcileHandler(deps.ReconcileUC, deps.Queue)
	api.Post("/admin/reconcile", admin, reconcileHandler.Reconcile)
}

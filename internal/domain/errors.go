package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrAlreadyReversed     = errors.New("el movimiento ya fue revertido")
	ErrTransactionConflict = errors.New("conflicto de transacción, reintente la operación")
)

// InsufficientStockError detalla el faltante de una deducción rechazada.
// errors.Is(err, ErrInsufficientStock) sigue funcionando.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: solicitado %d, disponible en lotes %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Shortfall cantidad que no pudo cubrirse con lotes.
func (e *InsufficientStockError) Shortfall() int { return e.Requested - e.Available }

// IsRetryable indica si el llamador puede reintentar el movimiento completo.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}

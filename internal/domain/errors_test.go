package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-fifo/internal/domain"
)

func TestInsufficientStockError_UnwrapsToSentinel(t *testing.T) {
	var err error = &domain.InsufficientStockError{ProductID: "p-1", Requested: 12, Available: 10}
	wrapped := fmt.Errorf("línea 1: %w", err)

	assert.True(t, errors.Is(wrapped, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	assert.True(t, errors.As(wrapped, &ise))
	assert.Equal(t, 2, ise.Shortfall())
	assert.Contains(t, err.Error(), "p-1")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, domain.IsRetryable(fmt.Errorf("commit: %w", domain.ErrTransactionConflict)))
	assert.False(t, domain.IsRetryable(domain.ErrInsufficientStock))
	assert.False(t, domain.IsRetryable(nil))
}

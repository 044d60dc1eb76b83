package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockObserver получает уведомления об изменении доступного остатка (product.stock.changed).
type StockObserver interface {
	StockChanged(ctx context.Context, productID, sellerID uuid.UUID, previous, available int32, reason string)
}

type noopObserver struct{}

func (noopObserver) StockChanged(context.Context, uuid.UUID, uuid.UUID, int32, int32, string) {}

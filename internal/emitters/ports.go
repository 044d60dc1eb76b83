package emitters

import (
	"context"

	"orderhub/internal/eventbus"
	"orderhub/internal/events"

	"github.com/google/uuid"
)

type Publisher interface {
	Emit(p events.Payload, opts ...events.Option) bool
}

type Subscriber interface {
	On(t events.Type, h eventbus.Handler, opts ...eventbus.HandlerOption) eventbus.HandlerID
}

type CacheInvalidator interface {
	InvalidateOrderCache(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error
	InvalidateRelatedCaches(ctx context.Context, kind string, id uuid.UUID, extra ...string) error
}

type RealtimeChannel interface {
	EmitRealtimeEvent(ctx context.Context, channel string, payload any, targetUserID *uuid.UUID) error
}

type SearchIndexer interface {
	IndexProduct(ctx context.Context, productID uuid.UUID) error
	RemoveProduct(ctx context.Context, productID uuid.UUID) error
}

// Mailer ставит письма в очередь; адрес получателя определяется по id пользователя.
type Mailer interface {
	SendOrderStatusEmail(ctx context.Context, customerID, orderID uuid.UUID, status string) error
	SendPaymentFailedEmail(ctx context.Context, customerID, orderID uuid.UUID, amountCents int64, currency string) error
	SendWelcomeEmail(ctx context.Context, userID uuid.UUID, email, name string) error
}

// Каналы realtime.
const (
	ChannelOrdersNew          = "orders:new"
	ChannelOrderStatus        = "orders:status"
	ChannelOrderPayment       = "orders:payment"
	ChannelProductsOutOfStock = "products:out_of_stock"
)

func metaOptions(ctx context.Context, userID uuid.UUID, source string) []events.Option {
	return []events.Option{
		events.FromContext(ctx),
		events.WithUserID(userID),
		events.WithSource(source),
	}
}

// NopCache и NopRealtime подставляются, когда Redis выключен.
type NopCache struct{}

func (NopCache) InvalidateOrderCache(context.Context, uuid.UUID, *uuid.UUID) error { return nil }
func (NopCache) InvalidateRelatedCaches(context.Context, string, uuid.UUID, ...string) error {
	return nil
}

type NopRealtime struct{}

func (NopRealtime) EmitRealtimeEvent(context.Context, string, any, *uuid.UUID) error { return nil }

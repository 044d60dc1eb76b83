package emitters

import (
	"context"
	"fmt"
	"time"

	"orderhub/internal/eventbus"
	"orderhub/internal/events"
	"orderhub/internal/identity"
	"orderhub/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const orderSource = "order-service"

type OrderEmitter struct {
	bus Publisher
	log *zap.Logger
	now func() time.Time
}

func NewOrderEmitter(bus Publisher, log *zap.Logger) *OrderEmitter {
	return &OrderEmitter{bus: bus, log: log, now: time.Now}
}

func (e *OrderEmitter) emit(ctx context.Context, p events.Payload, userID uuid.UUID, extra ...events.Option) {
	opts := append(metaOptions(ctx, userID, orderSource), extra...)
	if !e.bus.Emit(p, opts...) {
		e.log.Warn("event not queued", zap.String("type", p.EventType().String()))
	}
}

func lines(items []models.OrderItem) []events.OrderLine {
	out := make([]events.OrderLine, 0, len(items))
	for _, it := range items {
		out = append(out, events.OrderLine{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return out
}

func (e *OrderEmitter) OrderCreated(ctx context.Context, o *models.Order) {
	e.emit(ctx, events.OrderCreatedPayload{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		SellerID:      o.SellerID,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalAmountCents,
		Currency:      o.CurrencyCode,
		Items:         lines(o.Items),
		CreatedAt:     o.CreatedAt,
	}, o.CustomerID, events.WithPriority(events.PriorityHigh))
}

func (e *OrderEmitter) OrderUpdated(ctx context.Context, o *models.Order, previous models.OrderStatus, actor identity.Actor) {
	e.emit(ctx, events.OrderUpdatedPayload{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		SellerID:       o.SellerID,
		CourierID:      o.CourierID,
		PreviousStatus: string(previous),
		Status:         string(o.Status),
		ActorID:        actor.ID,
		ActorRole:      string(actor.Role),
	}, actor.ID)
}

func (e *OrderEmitter) OrderCancelled(ctx context.Context, o *models.Order, actor identity.Actor) {
	reason := ""
	if o.CancelReason != nil {
		reason = *o.CancelReason
	}
	e.emit(ctx, events.OrderCancelledPayload{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		SellerID:    o.SellerID,
		Reason:      reason,
		CancelledBy: actor.ID,
		CancelledAt: e.now(),
	}, actor.ID)
}

func (e *OrderEmitter) OrderCompleted(ctx context.Context, o *models.Order) {
	e.emit(ctx, events.OrderCompletedPayload{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		SellerID:    o.SellerID,
		CourierID:   o.CourierID,
		DeliveredAt: e.now(),
	}, o.CustomerID)
}

func (e *OrderEmitter) PaymentSucceeded(ctx context.Context, o *models.Order) {
	paidAt := e.now()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	e.emit(ctx, events.PaymentSucceededPayload{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		SellerID:    o.SellerID,
		AmountCents: o.TotalAmountCents,
		Currency:    o.CurrencyCode,
		PaidAt:      paidAt,
	}, o.CustomerID, events.WithPriority(events.PriorityCritical))
}

func (e *OrderEmitter) PaymentFailed(ctx context.Context, o *models.Order) {
	e.emit(ctx, events.PaymentFailedPayload{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		SellerID:    o.SellerID,
		AmountCents: o.TotalAmountCents,
		Currency:    o.CurrencyCode,
	}, o.CustomerID, events.WithPriority(events.PriorityCritical))
}

// OrderHandlers: побочные эффекты событий заказа.
type OrderHandlers struct {
	Cache    CacheInvalidator
	Realtime RealtimeChannel
	Mailer   Mailer
	Log      *zap.Logger
}

func (h *OrderHandlers) Register(bus Subscriber) []eventbus.HandlerID {
	return []eventbus.HandlerID{
		bus.On(events.OrderCreated, h.notifySellerNewOrder, eventbus.Named("order.created/realtime")),
		bus.On(events.OrderCreated, h.invalidateSellerDashboard, eventbus.Named("order.created/cache")),
		bus.On(events.OrderCreated, h.audit, eventbus.WithPriority(events.PriorityLow), eventbus.Named("order.created/audit")),
		bus.On(events.OrderUpdated, h.invalidateOnUpdate, eventbus.Named("order.updated/cache")),
		bus.On(events.OrderCancelled, h.statusEmail, eventbus.Named("order.cancelled/email")),
		bus.On(events.OrderCancelled, h.pushStatusToSeller, eventbus.Named("order.cancelled/realtime")),
		bus.On(events.OrderCompleted, h.statusEmail, eventbus.Named("order.completed/email")),
		bus.On(events.OrderCompleted, h.pushStatusToSeller, eventbus.Named("order.completed/realtime")),
		// критичные обработчики ретраятся по одному: каждый побочный эффект отдельно
		bus.On(events.OrderPaymentSucceeded, h.paymentSucceededCache, eventbus.Sync(), eventbus.WithPriority(events.PriorityCritical), eventbus.Named("payment.succeeded/cache")),
		bus.On(events.OrderPaymentSucceeded, h.paymentSucceededCustomer, eventbus.Sync(), eventbus.WithPriority(events.PriorityCritical), eventbus.Named("payment.succeeded/realtime-customer")),
		bus.On(events.OrderPaymentSucceeded, h.paymentSucceededSeller, eventbus.Sync(), eventbus.WithPriority(events.PriorityCritical), eventbus.Named("payment.succeeded/realtime-seller")),
		bus.On(events.OrderPaymentFailed, h.paymentFailedEmail, eventbus.Sync(), eventbus.WithPriority(events.PriorityCritical), eventbus.Named("payment.failed/email")),
		bus.On(events.OrderPaymentFailed, h.paymentFailedPush, eventbus.Sync(), eventbus.WithPriority(events.PriorityCritical), eventbus.Named("payment.failed/realtime")),
	}
}

func unexpected(ev events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", ev.Payload, ev.Type)
}

func (h *OrderHandlers) notifySellerNewOrder(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.OrderCreatedPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Realtime.EmitRealtimeEvent(ctx, ChannelOrdersNew, p, &p.SellerID)
}

func (h *OrderHandlers) invalidateSellerDashboard(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.OrderCreatedPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Cache.InvalidateRelatedCaches(ctx, "seller", p.SellerID, "dashboard", "orders")
}

func (h *OrderHandlers) audit(_ context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.OrderCreatedPayload)
	if !ok {
		return unexpected(ev)
	}
	h.Log.Info("order created",
		zap.String("order_id", p.OrderID.String()),
		zap.String("customer_id", p.CustomerID.String()),
		zap.String("seller_id", p.SellerID.String()),
		zap.Int64("total_cents", p.TotalCents),
		zap.String("request_id", ev.Metadata.RequestID),
	)
	return nil
}

func (h *OrderHandlers) invalidateOnUpdate(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.OrderUpdatedPayload)
	if !ok {
		return unexpected(ev)
	}
	if err := h.Cache.InvalidateOrderCache(ctx, p.OrderID, &p.CustomerID); err != nil {
		return err
	}
	return h.Cache.InvalidateRelatedCaches(ctx, "seller", p.SellerID, "dashboard", "orders")
}

func (h *OrderHandlers) statusEmail(ctx context.Context, ev events.Event) error {
	switch p := ev.Payload.(type) {
	case events.OrderCancelledPayload:
		return h.Mailer.SendOrderStatusEmail(ctx, p.CustomerID, p.OrderID, string(models.OrderStatusCancelled))
	case events.OrderCompletedPayload:
		return h.Mailer.SendOrderStatusEmail(ctx, p.CustomerID, p.OrderID, string(models.OrderStatusDelivered))
	}
	return unexpected(ev)
}

func (h *OrderHandlers) pushStatusToSeller(ctx context.Context, ev events.Event) error {
	switch p := ev.Payload.(type) {
	case events.OrderCancelledPayload:
		return h.Realtime.EmitRealtimeEvent(ctx, ChannelOrderStatus, p, &p.SellerID)
	case events.OrderCompletedPayload:
		return h.Realtime.EmitRealtimeEvent(ctx, ChannelOrderStatus, p, &p.SellerID)
	}
	return unexpected(ev)
}

func (h *OrderHandlers) paymentSucceededCache(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PaymentSucceededPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Cache.InvalidateOrderCache(ctx, p.OrderID, &p.CustomerID)
}

func (h *OrderHandlers) paymentSucceededCustomer(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PaymentSucceededPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Realtime.EmitRealtimeEvent(ctx, ChannelOrderPayment, p, &p.CustomerID)
}

func (h *OrderHandlers) paymentSucceededSeller(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PaymentSucceededPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Realtime.EmitRealtimeEvent(ctx, ChannelOrderPayment, p, &p.SellerID)
}

func (h *OrderHandlers) paymentFailedEmail(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PaymentFailedPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Mailer.SendPaymentFailedEmail(ctx, p.CustomerID, p.OrderID, p.AmountCents, p.Currency)
}

func (h *OrderHandlers) paymentFailedPush(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.PaymentFailedPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Realtime.EmitRealtimeEvent(ctx, ChannelOrderPayment, p, &p.CustomerID)
}

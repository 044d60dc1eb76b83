package emitters

import (
	"context"

	"orderhub/internal/eventbus"
	"orderhub/internal/events"
	"orderhub/internal/identity"
	"orderhub/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const productSource = "catalog"

// ProductEmitter также служит наблюдателем остатков для менеджера резервов.
type ProductEmitter struct {
	bus Publisher
	log *zap.Logger
}

func NewProductEmitter(bus Publisher, log *zap.Logger) *ProductEmitter {
	return &ProductEmitter{bus: bus, log: log}
}

func (e *ProductEmitter) emit(ctx context.Context, p events.Payload) {
	uid, _ := identity.UserIDFromContext(ctx)
	if !e.bus.Emit(p, metaOptions(ctx, uid, productSource)...) {
		e.log.Warn("event not queued", zap.String("type", p.EventType().String()))
	}
}

func (e *ProductEmitter) ProductCreated(ctx context.Context, p *models.Product) {
	e.emit(ctx, events.ProductCreatedPayload{
		ProductID:  p.ID,
		SellerID:   p.SellerID,
		SKU:        p.SKU,
		Name:       p.Name,
		PriceCents: p.PriceCents,
	})
}

func (e *ProductEmitter) ProductUpdated(ctx context.Context, p *models.Product, fields []string) {
	e.emit(ctx, events.ProductUpdatedPayload{ProductID: p.ID, SellerID: p.SellerID, Fields: fields})
}

func (e *ProductEmitter) ProductDeleted(ctx context.Context, p *models.Product) {
	e.emit(ctx, events.ProductDeletedPayload{ProductID: p.ID, SellerID: p.SellerID})
}

func (e *ProductEmitter) StockChanged(ctx context.Context, productID, sellerID uuid.UUID, previous, available int32, reason string) {
	e.emit(ctx, events.StockChangedPayload{
		ProductID: productID,
		SellerID:  sellerID,
		Previous:  previous,
		Available: available,
		Reason:    reason,
	})
}

type ProductHandlers struct {
	Search   SearchIndexer
	Cache    CacheInvalidator
	Realtime RealtimeChannel
	Log      *zap.Logger
}

func (h *ProductHandlers) Register(bus Subscriber) []eventbus.HandlerID {
	return []eventbus.HandlerID{
		bus.On(events.ProductCreated, h.index, eventbus.Named("product.created/search")),
		bus.On(events.ProductUpdated, h.index, eventbus.Named("product.updated/search")),
		bus.On(events.ProductUpdated, h.invalidate, eventbus.Named("product.updated/cache")),
		bus.On(events.ProductDeleted, h.remove, eventbus.Named("product.deleted/search")),
		bus.On(events.ProductDeleted, h.invalidate, eventbus.Named("product.deleted/cache")),
		bus.On(events.ProductStockChanged, h.invalidate, eventbus.Named("product.stock.changed/cache")),
		bus.On(events.ProductStockChanged, h.outOfStock, eventbus.Named("product.stock.changed/realtime")),
	}
}

func productID(ev events.Event) (uuid.UUID, bool) {
	switch p := ev.Payload.(type) {
	case events.ProductCreatedPayload:
		return p.ProductID, true
	case events.ProductUpdatedPayload:
		return p.ProductID, true
	case events.ProductDeletedPayload:
		return p.ProductID, true
	case events.StockChangedPayload:
		return p.ProductID, true
	}
	return uuid.Nil, false
}

func (h *ProductHandlers) index(ctx context.Context, ev events.Event) error {
	id, ok := productID(ev)
	if !ok {
		return unexpected(ev)
	}
	return h.Search.IndexProduct(ctx, id)
}

func (h *ProductHandlers) remove(ctx context.Context, ev events.Event) error {
	id, ok := productID(ev)
	if !ok {
		return unexpected(ev)
	}
	return h.Search.RemoveProduct(ctx, id)
}

func (h *ProductHandlers) invalidate(ctx context.Context, ev events.Event) error {
	id, ok := productID(ev)
	if !ok {
		return unexpected(ev)
	}
	return h.Cache.InvalidateRelatedCaches(ctx, "product", id)
}

// outOfStock оповещает всех подписчиков, когда остаток доходит до нуля.
func (h *ProductHandlers) outOfStock(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.StockChangedPayload)
	if !ok {
		return unexpected(ev)
	}
	if p.Available != 0 || p.Previous == 0 {
		return nil
	}
	return h.Realtime.EmitRealtimeEvent(ctx, ChannelProductsOutOfStock, p, nil)
}

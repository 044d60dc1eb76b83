package emitters

import (
	"context"

	"orderhub/internal/eventbus"
	"orderhub/internal/events"
	"orderhub/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userSource = "account"

type UserEmitter struct {
	bus Publisher
	log *zap.Logger
}

func NewUserEmitter(bus Publisher, log *zap.Logger) *UserEmitter {
	return &UserEmitter{bus: bus, log: log}
}

func (e *UserEmitter) emit(ctx context.Context, p events.Payload, userID uuid.UUID) {
	if !e.bus.Emit(p, metaOptions(ctx, userID, userSource)...) {
		e.log.Warn("event not queued", zap.String("type", p.EventType().String()))
	}
}

func (e *UserEmitter) UserRegistered(ctx context.Context, u *models.User) {
	e.emit(ctx, events.UserRegisteredPayload{UserID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}, u.ID)
}

func (e *UserEmitter) UserUpdated(ctx context.Context, userID uuid.UUID, fields []string) {
	e.emit(ctx, events.UserUpdatedPayload{UserID: userID, Fields: fields}, userID)
}

func (e *UserEmitter) CartUpdated(ctx context.Context, userID, productID uuid.UUID, quantity uint32) {
	e.emit(ctx, events.CartUpdatedPayload{UserID: userID, ProductID: productID, Quantity: quantity}, userID)
}

func (e *UserEmitter) CartCleared(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) {
	e.emit(ctx, events.CartClearedPayload{UserID: userID, ProductIDs: productIDs}, userID)
}

func (e *UserEmitter) WishlistItemAdded(ctx context.Context, userID, productID uuid.UUID) {
	e.emit(ctx, events.WishlistItemAddedPayload{UserID: userID, ProductID: productID}, userID)
}

func (e *UserEmitter) WishlistItemRemoved(ctx context.Context, userID, productID uuid.UUID) {
	e.emit(ctx, events.WishlistItemRemovedPayload{UserID: userID, ProductID: productID}, userID)
}

type UserHandlers struct {
	Mailer Mailer
	Cache  CacheInvalidator
	Log    *zap.Logger
}

func (h *UserHandlers) Register(bus Subscriber) []eventbus.HandlerID {
	return []eventbus.HandlerID{
		bus.On(events.UserRegistered, h.welcome, eventbus.Named("user.registered/email")),
		bus.On(events.UserUpdated, h.invalidate("user"), eventbus.Named("user.updated/cache")),
		bus.On(events.CartUpdated, h.invalidate("cart"), eventbus.Named("cart.updated/cache")),
		bus.On(events.CartCleared, h.invalidate("cart"), eventbus.Named("cart.cleared/cache")),
		bus.On(events.WishlistItemAdded, h.invalidate("wishlist"), eventbus.Named("wishlist.item.added/cache")),
		bus.On(events.WishlistItemRemoved, h.invalidate("wishlist"), eventbus.Named("wishlist.item.removed/cache")),
	}
}

func (h *UserHandlers) welcome(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.UserRegisteredPayload)
	if !ok {
		return unexpected(ev)
	}
	return h.Mailer.SendWelcomeEmail(ctx, p.UserID, p.Email, p.Name)
}

func userID(ev events.Event) (uuid.UUID, bool) {
	switch p := ev.Payload.(type) {
	case events.UserUpdatedPayload:
		return p.UserID, true
	case events.CartUpdatedPayload:
		return p.UserID, true
	case events.CartClearedPayload:
		return p.UserID, true
	case events.WishlistItemAddedPayload:
		return p.UserID, true
	case events.WishlistItemRemovedPayload:
		return p.UserID, true
	}
	return uuid.Nil, false
}

func (h *UserHandlers) invalidate(kind string) eventbus.Handler {
	return func(ctx context.Context, ev events.Event) error {
		id, ok := userID(ev)
		if !ok {
			return unexpected(ev)
		}
		return h.Cache.InvalidateRelatedCaches(ctx, kind, id)
	}
}

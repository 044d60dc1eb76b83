package emitters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orderhub/internal/emitters"
	"orderhub/internal/eventbus"
	"orderhub/internal/events"
	"orderhub/internal/identity"
	"orderhub/internal/inventory"
	"orderhub/internal/models"
	"orderhub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ service.OrderEventEmitter = (*emitters.OrderEmitter)(nil)
	_ service.CartEventEmitter  = (*emitters.UserEmitter)(nil)
	_ inventory.StockObserver   = (*emitters.ProductEmitter)(nil)
)

type call struct {
	kind   string
	id     uuid.UUID
	target *uuid.UUID
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]int
}

func newRecorder() *recorder { return &recorder{fail: map[string]int{}} }

func (r *recorder) add(kind string, id uuid.UUID, target *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{kind, id, target})
	if r.fail[kind] > 0 {
		r.fail[kind]--
		return errors.New(kind + " failed")
	}
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.kind)
	}
	return out
}

func (r *recorder) find(kind string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) InvalidateOrderCache(_ context.Context, orderID uuid.UUID, _ *uuid.UUID) error {
	return r.add("cache:order", orderID, nil)
}

func (r *recorder) InvalidateRelatedCaches(_ context.Context, kind string, id uuid.UUID, _ ...string) error {
	return r.add("cache:"+kind, id, nil)
}

func (r *recorder) EmitRealtimeEvent(_ context.Context, channel string, _ any, target *uuid.UUID) error {
	return r.add("rt:"+channel, uuid.Nil, target)
}

func (r *recorder) IndexProduct(_ context.Context, id uuid.UUID) error {
	return r.add("search:index", id, nil)
}

func (r *recorder) RemoveProduct(_ context.Context, id uuid.UUID) error {
	return r.add("search:remove", id, nil)
}

func (r *recorder) SendOrderStatusEmail(_ context.Context, customerID, _ uuid.UUID, status string) error {
	return r.add("mail:status:"+status, customerID, nil)
}

func (r *recorder) SendPaymentFailedEmail(_ context.Context, customerID, _ uuid.UUID, _ int64, _ string) error {
	return r.add("mail:payment_failed", customerID, nil)
}

func (r *recorder) SendWelcomeEmail(_ context.Context, userID uuid.UUID, _, _ string) error {
	return r.add("mail:welcome", userID, nil)
}

// sellerFlaky роняет первые n пушей продавцу.
type sellerFlaky struct {
	*recorder
	seller uuid.UUID
	n      int
}

func (s *sellerFlaky) EmitRealtimeEvent(ctx context.Context, channel string, payload any, target *uuid.UUID) error {
	if err := s.recorder.EmitRealtimeEvent(ctx, channel, payload, target); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if target != nil && *target == s.seller && s.n > 0 {
		s.n--
		return errors.New("seller push failed")
	}
	return nil
}

func newBus(t *testing.T) *eventbus.Bus {
	t.Helper()
	cfg := eventbus.DefaultConfig()
	cfg.ProcessingInterval = 0
	cfg.RetryDelay = time.Millisecond
	cfg.HandlerTimeout = time.Second
	return eventbus.New(cfg, zap.NewNop())
}

func closeBus(t *testing.T, bus *eventbus.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))
}

func sampleOrder() *models.Order {
	courier := uuid.New()
	return &models.Order{
		ID:               uuid.New(),
		CustomerID:       uuid.New(),
		SellerID:         uuid.New(),
		CourierID:        &courier,
		Status:           models.OrderStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
		SubtotalCents:    2000,
		TotalAmountCents: 2000,
		CurrencyCode:     "RUB",
		Items:            []models.OrderItem{{ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1000, LineTotalCents: 2000}},
	}
}

func TestOrderEmitter_PayloadsAndPriorities(t *testing.T) {
	bus := newBus(t)
	var (
		mu  sync.Mutex
		got []events.Event
	)
	record := func(_ context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	}
	for _, typ := range []events.Type{events.OrderCreated, events.OrderUpdated, events.OrderPaymentSucceeded} {
		bus.On(typ, record, eventbus.Sync())
	}

	em := emitters.NewOrderEmitter(bus, zap.NewNop())
	o := sampleOrder()
	ctx := events.ContextWithRequestID(context.Background(), "req-1")
	admin := identity.Actor{ID: uuid.New(), Role: models.RoleAdmin}

	em.OrderCreated(ctx, o)
	em.OrderUpdated(ctx, o, models.OrderStatusPending, admin)
	em.PaymentSucceeded(ctx, o)

	bus.Start()
	closeBus(t, bus)

	require.Len(t, got, 3)
	created, ok := got[0].Payload.(events.OrderCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, o.ID, created.OrderID)
	assert.Equal(t, o.SellerID, created.SellerID)
	assert.Len(t, created.Items, 1)
	assert.Equal(t, events.PriorityHigh, got[0].Priority)
	assert.Equal(t, "req-1", got[0].Metadata.RequestID)
	require.NotNil(t, got[0].Metadata.UserID)
	assert.Equal(t, o.CustomerID, *got[0].Metadata.UserID)

	updated := got[1].Payload.(events.OrderUpdatedPayload)
	assert.Equal(t, admin.ID, updated.ActorID)
	assert.Equal(t, string(models.RoleAdmin), updated.ActorRole)

	assert.Equal(t, events.PriorityCritical, got[2].Priority)
}

func TestOrderHandlers_Created(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	h := &emitters.OrderHandlers{Cache: rec, Realtime: rec, Mailer: rec, Log: zap.NewNop()}
	ids := h.Register(bus)
	assert.Len(t, ids, 13)

	o := sampleOrder()
	emitters.NewOrderEmitter(bus, zap.NewNop()).OrderCreated(context.Background(), o)
	bus.Start()
	closeBus(t, bus)

	rt := rec.find("rt:" + emitters.ChannelOrdersNew)
	require.Len(t, rt, 1)
	assert.Equal(t, o.SellerID, *rt[0].target)
	seller := rec.find("cache:seller")
	require.Len(t, seller, 1)
	assert.Equal(t, o.SellerID, seller[0].id)
}

func TestOrderHandlers_CancelledAndCompleted(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	(&emitters.OrderHandlers{Cache: rec, Realtime: rec, Mailer: rec, Log: zap.NewNop()}).Register(bus)

	em := emitters.NewOrderEmitter(bus, zap.NewNop())
	o := sampleOrder()
	em.OrderCancelled(context.Background(), o, identity.Actor{ID: o.CustomerID, Role: models.RoleCustomer})
	em.OrderCompleted(context.Background(), o)
	bus.Start()
	closeBus(t, bus)

	assert.Len(t, rec.find("mail:status:"+string(models.OrderStatusCancelled)), 1)
	assert.Len(t, rec.find("mail:status:"+string(models.OrderStatusDelivered)), 1)
	pushes := rec.find("rt:" + emitters.ChannelOrderStatus)
	require.Len(t, pushes, 2)
	for _, p := range pushes {
		assert.Equal(t, o.SellerID, *p.target)
	}
}

func TestOrderHandlers_PaymentSucceededRetried(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	rec.fail["cache:order"] = 2
	(&emitters.OrderHandlers{Cache: rec, Realtime: rec, Mailer: rec, Log: zap.NewNop()}).Register(bus)

	o := sampleOrder()
	emitters.NewOrderEmitter(bus, zap.NewNop()).PaymentSucceeded(context.Background(), o)
	bus.Start()
	closeBus(t, bus)

	assert.Len(t, rec.find("cache:order"), 3, "critical handler retried until success")
	pushes := rec.find("rt:" + emitters.ChannelOrderPayment)
	require.Len(t, pushes, 2)
	assert.Equal(t, o.CustomerID, *pushes[0].target)
	assert.Equal(t, o.SellerID, *pushes[1].target)
	assert.Equal(t, int64(0), bus.Status().Stats.Failed)
}

func TestOrderHandlers_PaymentFailed(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	(&emitters.OrderHandlers{Cache: rec, Realtime: rec, Mailer: rec, Log: zap.NewNop()}).Register(bus)

	o := sampleOrder()
	emitters.NewOrderEmitter(bus, zap.NewNop()).PaymentFailed(context.Background(), o)
	bus.Start()
	closeBus(t, bus)

	assert.Equal(t, []string{"mail:payment_failed", "rt:" + emitters.ChannelOrderPayment}, rec.kinds())
}

func TestOrderHandlers_PaymentFailedPushRetryDoesNotResendEmail(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	rec.fail["rt:"+emitters.ChannelOrderPayment] = 1
	(&emitters.OrderHandlers{Cache: rec, Realtime: rec, Mailer: rec, Log: zap.NewNop()}).Register(bus)

	o := sampleOrder()
	emitters.NewOrderEmitter(bus, zap.NewNop()).PaymentFailed(context.Background(), o)
	bus.Start()
	closeBus(t, bus)

	assert.Len(t, rec.find("mail:payment_failed"), 1, "customer gets exactly one email")
	assert.Len(t, rec.find("rt:"+emitters.ChannelOrderPayment), 2, "only the push is retried")
	assert.Equal(t, int64(0), bus.Status().Stats.Failed)
}

func TestOrderHandlers_PaymentSucceededSellerPushRetriedAlone(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	o := sampleOrder()
	rt := &sellerFlaky{recorder: rec, seller: o.SellerID, n: 1}
	(&emitters.OrderHandlers{Cache: rec, Realtime: rt, Mailer: rec, Log: zap.NewNop()}).Register(bus)

	emitters.NewOrderEmitter(bus, zap.NewNop()).PaymentSucceeded(context.Background(), o)
	bus.Start()
	closeBus(t, bus)

	var toCustomer, toSeller int
	for _, c := range rec.find("rt:" + emitters.ChannelOrderPayment) {
		switch *c.target {
		case o.CustomerID:
			toCustomer++
		case o.SellerID:
			toSeller++
		}
	}
	assert.Equal(t, 1, toCustomer, "customer push is not repeated")
	assert.Equal(t, 2, toSeller)
	assert.Len(t, rec.find("cache:order"), 1)
}

func TestProductHandlers(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	(&emitters.ProductHandlers{Search: rec, Cache: rec, Realtime: rec, Log: zap.NewNop()}).Register(bus)

	em := emitters.NewProductEmitter(bus, zap.NewNop())
	p := &models.Product{ID: uuid.New(), SellerID: uuid.New(), SKU: "SKU-1", Name: "Чайник", PriceCents: 1000}
	ctx := context.Background()

	em.ProductCreated(ctx, p)
	em.ProductUpdated(ctx, p, []string{"price_cents"})
	em.StockChanged(ctx, p.ID, p.SellerID, 3, 0, inventory.ReasonReserved)
	em.StockChanged(ctx, p.ID, p.SellerID, 0, 0, inventory.ReasonSetStock)
	em.StockChanged(ctx, p.ID, p.SellerID, 0, 5, inventory.ReasonReleased)
	em.ProductDeleted(ctx, p)
	bus.Start()
	closeBus(t, bus)

	assert.Len(t, rec.find("search:index"), 2)
	assert.Len(t, rec.find("search:remove"), 1)
	assert.Len(t, rec.find("cache:product"), 5)
	oos := rec.find("rt:" + emitters.ChannelProductsOutOfStock)
	require.Len(t, oos, 1, "broadcast only when stock drops to zero")
	assert.Nil(t, oos[0].target)
}

func TestUserHandlers(t *testing.T) {
	bus := newBus(t)
	rec := newRecorder()
	(&emitters.UserHandlers{Mailer: rec, Cache: rec, Log: zap.NewNop()}).Register(bus)

	em := emitters.NewUserEmitter(bus, zap.NewNop())
	u := &models.User{ID: uuid.New(), Email: "a@b.c", Name: "Анна", Role: models.RoleCustomer}
	ctx := context.Background()

	em.UserRegistered(ctx, u)
	em.UserUpdated(ctx, u.ID, []string{"name"})
	em.CartUpdated(ctx, u.ID, uuid.New(), 2)
	em.CartCleared(ctx, u.ID, []uuid.UUID{uuid.New()})
	em.WishlistItemAdded(ctx, u.ID, uuid.New())
	em.WishlistItemRemoved(ctx, u.ID, uuid.New())
	bus.Start()
	closeBus(t, bus)

	welcome := rec.find("mail:welcome")
	require.Len(t, welcome, 1)
	assert.Equal(t, u.ID, welcome[0].id)
	assert.Len(t, rec.find("cache:user"), 1)
	assert.Len(t, rec.find("cache:cart"), 2)
	assert.Len(t, rec.find("cache:wishlist"), 2)
}

type rejectingBus struct{ n int }

func (b *rejectingBus) Emit(events.Payload, ...events.Option) bool {
	b.n++
	return false
}

func TestEmitter_DroppedEventIsNotFatal(t *testing.T) {
	b := &rejectingBus{}
	emitters.NewUserEmitter(b, zap.NewNop()).CartCleared(context.Background(), uuid.New(), nil)
	assert.Equal(t, 1, b.n)
}

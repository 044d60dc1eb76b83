package service_test

import (
	"context"
	"sync"
	"time"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/google/uuid"
)

// MockCartRepo
type MockCartRepo struct {
	UpsertFunc                  func(ctx context.Context, item *models.CartItem) error
	ListByUserAndProductsFunc   func(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]models.CartItem, error)
	DeleteByUserAndProductsFunc func(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error)
}

func (m *MockCartRepo) Upsert(ctx context.Context, item *models.CartItem) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, item)
	}
	return nil
}

func (m *MockCartRepo) ListByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]models.CartItem, error) {
	if m.ListByUserAndProductsFunc != nil {
		return m.ListByUserAndProductsFunc(ctx, userID, productIDs)
	}
	return nil, nil
}

func (m *MockCartRepo) DeleteByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	if m.DeleteByUserAndProductsFunc != nil {
		return m.DeleteByUserAndProductsFunc(ctx, userID, productIDs)
	}
	return int64(len(productIDs)), nil
}

// MockUserRepo
type MockUserRepo struct {
	CreateFunc  func(ctx context.Context, u *models.User) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateFunc  func(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

func (m *MockUserRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, fields)
	}
	return nil
}

func (m *MockUserRepo) Create(ctx context.Context, u *models.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	return nil
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

// MockOrderRepo хранит заказы в памяти; любые методы можно переопределить.
type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order

	CreateManyFunc          func(ctx context.Context, orders []*models.Order) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListFunc                func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error)
	UpdateStatusFunc        func(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, courierID *uuid.UUID, reason *string) (bool, error)
	UpdatePaymentStatusFunc func(ctx context.Context, id uuid.UUID, upd repository.PaymentUpdate) (bool, error)
}

func NewMockOrderRepo(seed ...*models.Order) *MockOrderRepo {
	m := &MockOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range seed {
		m.orders[o.ID] = o
	}
	return m
}

func (m *MockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	return m.CreateMany(ctx, []*models.Order{o})
}

func (m *MockOrderRepo) CreateMany(ctx context.Context, orders []*models.Order) error {
	if m.CreateManyFunc != nil {
		return m.CreateManyFunc(ctx, orders)
	}
	return m.store(orders)
}

func (m *MockOrderRepo) store(orders []*models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		o.ID = uuid.New()
		for i := range o.Items {
			o.Items[i].ID = uuid.New()
			o.Items[i].OrderID = o.ID
		}
		cp := *o
		m.orders[o.ID] = &cp
	}
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) List(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return nil, 0, nil
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, courierID *uuid.UUID, reason *string) (bool, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, from, to, courierID, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if courierID != nil {
		c := *courierID
		o.CourierID = &c
	}
	if reason != nil {
		r := *reason
		o.CancelReason = &r
	}
	return true, nil
}

// setStatus меняет статус в обход сервиса.
func (m *MockOrderRepo) setStatus(id uuid.UUID, status models.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].Status = status
}

func (m *MockOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, upd repository.PaymentUpdate) (bool, error) {
	if m.UpdatePaymentStatusFunc != nil {
		return m.UpdatePaymentStatusFunc(ctx, id, upd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus == upd.PaymentStatus {
		return false, nil
	}
	o.PaymentStatus = upd.PaymentStatus
	if upd.Status != nil && !o.Status.Terminal() {
		o.Status = *upd.Status
	}
	if upd.PaidAt != nil {
		t := *upd.PaidAt
		o.PaidAt = &t
	}
	return true, nil
}

func (m *MockOrderRepo) WithTx(ctx context.Context, fn func(txRepo repository.OrderRepo, txItems repository.OrderItemRepo) error) error {
	return fn(m, nil)
}

// fakeStock — резервы в памяти с учётом остатков по товарам.
type fakeStock struct {
	mu        sync.Mutex
	available map[uuid.UUID]int32
	res       map[uuid.UUID]*models.StockReservation
	order     []uuid.UUID
	cancelled []uuid.UUID

	ReserveErr error
	ConfirmErr error
}

func newFakeStock(levels map[uuid.UUID]int32) *fakeStock {
	return &fakeStock{available: levels, res: make(map[uuid.UUID]*models.StockReservation)}
}

// fakeStock, как и БД, не работает с отменённым контекстом.
func (f *fakeStock) Reserve(ctx context.Context, productID uuid.UUID, qty uint32, ttl time.Duration, ownerID uuid.UUID) (*models.StockReservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReserveErr != nil {
		return nil, f.ReserveErr
	}
	if f.available[productID] < int32(qty) {
		return nil, nil
	}
	f.available[productID] -= int32(qty)
	r := &models.StockReservation{
		ID:          uuid.New(),
		ProductID:   productID,
		OwnerUserID: ownerID,
		Quantity:    int32(qty),
		Status:      models.ReservationHeld,
		ExpiresAt:   time.Now().Add(ttl),
	}
	f.res[r.ID] = r
	f.order = append(f.order, r.ID)
	return r, nil
}

func (f *fakeStock) Confirm(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfirmErr != nil {
		return f.ConfirmErr
	}
	r := f.res[id]
	if r == nil || r.Status != models.ReservationHeld {
		return errNotHeld
	}
	r.Status = models.ReservationConfirmed
	return nil
}

func (f *fakeStock) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.res[id]
	if r == nil || r.Status != models.ReservationHeld {
		return errNotHeld
	}
	r.Status = models.ReservationCancelled
	f.available[r.ProductID] += r.Quantity
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeStock) get(id uuid.UUID) models.StockReservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.res[id]
}

func (f *fakeStock) statuses() map[models.ReservationStatus]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.ReservationStatus]int{}
	for _, r := range f.res {
		out[r.Status]++
	}
	return out
}

// MockNotifier
type MockNotifier struct {
	SendOrderConfirmationFunc     func(ctx context.Context, order *models.Order) error
	SendNewOrderEmailToSellerFunc func(ctx context.Context, order *models.Order, sellerEmail string) error
}

func (m *MockNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if m.SendOrderConfirmationFunc != nil {
		return m.SendOrderConfirmationFunc(ctx, order)
	}
	return nil
}

func (m *MockNotifier) SendNewOrderEmailToSeller(ctx context.Context, order *models.Order, sellerEmail string) error {
	if m.SendNewOrderEmailToSellerFunc != nil {
		return m.SendNewOrderEmailToSellerFunc(ctx, order, sellerEmail)
	}
	return nil
}

// recordingEvents запоминает вызовы эмиттера.
type recordingEvents struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingEvents) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recordingEvents) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingEvents) OrderCreated(context.Context, *models.Order) { r.add("order.created") }
func (r *recordingEvents) OrderUpdated(context.Context, *models.Order, models.OrderStatus, identity.Actor) {
	r.add("order.updated")
}
func (r *recordingEvents) OrderCancelled(context.Context, *models.Order, identity.Actor) {
	r.add("order.cancelled")
}
func (r *recordingEvents) OrderCompleted(context.Context, *models.Order) { r.add("order.completed") }
func (r *recordingEvents) PaymentSucceeded(context.Context, *models.Order) {
	r.add("order.payment.succeeded")
}
func (r *recordingEvents) PaymentFailed(context.Context, *models.Order) {
	r.add("order.payment.failed")
}
func (r *recordingEvents) CartCleared(context.Context, uuid.UUID, []uuid.UUID) { r.add("cart.cleared") }

// MockCache
type MockCache struct {
	InvalidateOrderCacheFunc    func(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error
	InvalidateRelatedCachesFunc func(ctx context.Context, kind string, id uuid.UUID, extra ...string) error
}

func (m *MockCache) InvalidateOrderCache(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error {
	if m.InvalidateOrderCacheFunc != nil {
		return m.InvalidateOrderCacheFunc(ctx, orderID, userID)
	}
	return nil
}

func (m *MockCache) InvalidateRelatedCaches(ctx context.Context, kind string, id uuid.UUID, extra ...string) error {
	if m.InvalidateRelatedCachesFunc != nil {
		return m.InvalidateRelatedCachesFunc(ctx, kind, id, extra...)
	}
	return nil
}

// MockRealtime
type MockRealtime struct {
	EmitRealtimeEventFunc func(ctx context.Context, channel string, payload any, targetUserID *uuid.UUID) error
}

func (m *MockRealtime) EmitRealtimeEvent(ctx context.Context, channel string, payload any, targetUserID *uuid.UUID) error {
	if m.EmitRealtimeEventFunc != nil {
		return m.EmitRealtimeEventFunc(ctx, channel, payload, targetUserID)
	}
	return nil
}

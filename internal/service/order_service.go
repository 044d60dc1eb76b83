package service

import (
	"context"
	"fmt"
	"time"

	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const currencyRUB = "RUB"

// сколько даём на отмену или подтверждение резервов после обрыва запроса
const settleTimeout = 10 * time.Second

type Deps struct {
	Carts  repository.CartRepo
	Orders repository.OrderRepo
	Users  repository.UserRepo
	Stock  StockReserver

	Notifier   Notifier
	Cache      CacheInvalidator
	OrderCache OrderCache
	Realtime   RealtimeChannel
	Events     OrderEventEmitter
	CartEvents CartEventEmitter

	ReservationTTL time.Duration
}

type OrderService struct {
	carts  repository.CartRepo
	orders repository.OrderRepo
	users  repository.UserRepo
	stock  StockReserver

	notifier   Notifier
	cache      CacheInvalidator
	orderCache OrderCache
	realtime   RealtimeChannel
	events     OrderEventEmitter
	cartEvents CartEventEmitter

	reservationTTL time.Duration
	validate       *validator.Validate
	log            *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

func NewOrderService(d Deps, log *zap.Logger) *OrderService {
	s := &OrderService{
		carts:          d.Carts,
		orders:         d.Orders,
		users:          d.Users,
		stock:          d.Stock,
		notifier:       d.Notifier,
		cache:          d.Cache,
		orderCache:     d.OrderCache,
		realtime:       d.Realtime,
		events:         d.Events,
		cartEvents:     d.CartEvents,
		reservationTTL: d.ReservationTTL,
		validate:       newValidator(),
		log:            log,
		tracer:         otel.Tracer("service/order"),
		now:            time.Now,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.orderCache == nil {
		s.orderCache = nopCache{}
	}
	if s.realtime == nil {
		s.realtime = nopRealtime{}
	}
	if s.events == nil {
		s.events = nopEvents{}
	}
	if s.cartEvents == nil {
		s.cartEvents = nopEvents{}
	}
	if s.reservationTTL <= 0 {
		s.reservationTTL = 15 * time.Minute
	}
	return s
}

// sellerDraft — заказ одного продавца до сохранения.
type sellerDraft struct {
	sellerID     uuid.UUID
	currency     string
	items        []models.OrderItem
	subtotal     int64
	discount     int64
	reservations []uuid.UUID
}

// CreateOrder превращает выбранные позиции корзины в заказы по продавцам.
// Либо создаются все заказы, либо ни одного, и ни один резерв не остаётся висеть.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) ([]*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.Int("items", len(in.Items)),
	)

	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	drafts, productIDs, err := s.buildDrafts(ctx, userID, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	subtotals := make([]int64, len(drafts))
	for i, d := range drafts {
		subtotals[i] = d.subtotal
	}
	discounts, err := distributeDiscount(subtotals, in.DiscountCents)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		drafts[i].discount = discounts[i]
	}

	if err := s.reserveAll(ctx, userID, drafts); err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now()
	orders := make([]*models.Order, len(drafts))
	for i, d := range drafts {
		orders[i] = &models.Order{
			CustomerID:       userID,
			SellerID:         d.sellerID,
			Status:           models.OrderStatusPending,
			PaymentStatus:    models.PaymentStatusPending,
			SubtotalCents:    d.subtotal,
			DiscountCents:    d.discount,
			TotalAmountCents: d.subtotal - d.discount,
			CurrencyCode:     d.currency,
			ShippingAddress:  in.ShippingAddress,
			CreatedAt:        now,
			UpdatedAt:        now,
			Items:            d.items,
		}
	}

	if err := s.orders.CreateMany(ctx, orders); err != nil {
		span.RecordError(err)
		s.log.Error("failed to persist orders, releasing reservations",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		s.cancelReservations(ctx, drafts)
		return nil, fmt.Errorf("create orders: %w", err)
	}

	settleCtx, settleCancel := s.settleContext(ctx)
	defer settleCancel()
	for i, d := range drafts {
		for _, rid := range d.reservations {
			// неподтверждённый резерв подберёт reaper: строки заказа ссылаются на него
			if err := s.stock.Confirm(settleCtx, rid); err != nil {
				s.log.Error("failed to confirm reservation",
					zap.String("order_id", orders[i].ID.String()),
					zap.String("reservation_id", rid.String()),
					zap.Error(err),
				)
			}
		}
	}

	for _, o := range orders {
		s.afterCreate(ctx, o)
	}

	if n, err := s.carts.DeleteByUserAndProducts(ctx, userID, productIDs); err != nil {
		s.log.Warn("failed to clear cart after checkout", zap.String("user_id", userID.String()), zap.Error(err))
	} else {
		s.log.Debug("cart rows removed", zap.Int64("count", n))
		s.cartEvents.CartCleared(ctx, userID, productIDs)
	}

	for _, o := range orders {
		if err := s.cache.InvalidateOrderCache(ctx, o.ID, &userID); err != nil {
			s.log.Warn("failed to invalidate order cache", zap.String("order_id", o.ID.String()), zap.Error(err))
		}
	}
	if err := s.cache.InvalidateRelatedCaches(ctx, "user", userID, "orders", "cart"); err != nil {
		s.log.Warn("failed to invalidate user caches", zap.String("user_id", userID.String()), zap.Error(err))
	}

	s.log.Info("checkout completed",
		zap.String("user_id", userID.String()),
		zap.Int("orders", len(orders)),
	)
	return orders, nil
}

// buildDrafts группирует строки корзины по продавцам в порядке первого появления в запросе.
func (s *OrderService) buildDrafts(ctx context.Context, userID uuid.UUID, in CreateOrderInput) ([]*sellerDraft, []uuid.UUID, error) {
	ids := make([]uuid.UUID, len(in.Items))
	for i, it := range in.Items {
		ids[i] = it.ProductID
	}

	rows, err := s.carts.ListByUserAndProducts(ctx, userID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load cart: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyCart
	}
	byProduct := make(map[uuid.UUID]models.CartItem, len(rows))
	for _, r := range rows {
		byProduct[r.ProductID] = r
	}

	var (
		drafts   []*sellerDraft
		bySeller = make(map[uuid.UUID]*sellerDraft)
		used     = make([]uuid.UUID, 0, len(rows))
		currency string
	)
	for _, it := range in.Items {
		row, ok := byProduct[it.ProductID]
		if !ok {
			continue
		}
		p := row.Product
		cur := p.CurrencyCode
		if cur == "" {
			cur = currencyRUB
		}
		if currency == "" {
			currency = cur
		} else if cur != currency {
			return nil, nil, &ValidationError{Fields: []FieldError{{Field: "items", Message: ErrCurrencyMismatch.Error()}}}
		}

		d, ok := bySeller[p.SellerID]
		if !ok {
			d = &sellerDraft{sellerID: p.SellerID, currency: cur}
			bySeller[p.SellerID] = d
			drafts = append(drafts, d)
		}
		line := int64(it.Quantity) * p.PriceCents
		d.items = append(d.items, models.OrderItem{
			ProductID:      p.ID,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
			LineTotalCents: line,
			CurrencyCode:   cur,
		})
		d.subtotal += line
		used = append(used, p.ID)
	}
	return drafts, used, nil
}

// reserveAll резервирует все позиции всех черновиков до создания заказов.
// При первой неудаче отменяет всё уже зарезервированное.
func (s *OrderService) reserveAll(ctx context.Context, userID uuid.UUID, drafts []*sellerDraft) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.reserveAll")
	defer span.End()

	for _, d := range drafts {
		for k := range d.items {
			it := &d.items[k]
			res, err := s.stock.Reserve(ctx, it.ProductID, it.Quantity, s.reservationTTL, userID)
			if err != nil {
				s.cancelReservations(ctx, drafts)
				return fmt.Errorf("reserve product %s: %w", it.ProductID, err)
			}
			if res == nil {
				s.log.Info("checkout rejected: insufficient stock",
					zap.String("user_id", userID.String()),
					zap.String("product_id", it.ProductID.String()),
					zap.Uint32("quantity", it.Quantity),
				)
				s.cancelReservations(ctx, drafts)
				return &InsufficientStockError{ProductID: it.ProductID}
			}
			id := res.ID
			it.ReservationID = &id
			d.reservations = append(d.reservations, id)
		}
	}
	return nil
}

// settleContext отвязан от отмены запроса, но ограничен по времени.
func (s *OrderService) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

// cancelReservations отменяет резервы в обратном порядке.
func (s *OrderService) cancelReservations(ctx context.Context, drafts []*sellerDraft) {
	ctx, cancel := s.settleContext(ctx)
	defer cancel()
	for i := len(drafts) - 1; i >= 0; i-- {
		rs := drafts[i].reservations
		for j := len(rs) - 1; j >= 0; j-- {
			if err := s.stock.Cancel(ctx, rs[j]); err != nil {
				s.log.Error("failed to cancel reservation",
					zap.String("reservation_id", rs[j].String()),
					zap.Error(err),
				)
			}
		}
		drafts[i].reservations = nil
	}
}

// afterCreate — побочные эффекты одного заказа, каждый изолирован от остальных.
func (s *OrderService) afterCreate(ctx context.Context, o *models.Order) {
	s.bestEffort("send order confirmation", o.ID, func() error {
		return s.notifier.SendOrderConfirmation(ctx, o)
	})
	s.bestEffort("notify seller", o.ID, func() error {
		seller, err := s.users.GetByID(ctx, o.SellerID)
		if err != nil {
			return err
		}
		if seller == nil || seller.Email == "" {
			return fmt.Errorf("seller %s has no email", o.SellerID)
		}
		return s.notifier.SendNewOrderEmailToSeller(ctx, o, seller.Email)
	})
	s.bestEffort("emit order.created", o.ID, func() error {
		s.events.OrderCreated(ctx, o)
		return nil
	})
}

func (s *OrderService) bestEffort(op string, orderID uuid.UUID, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("side effect panicked",
				zap.String("op", op),
				zap.String("order_id", orderID.String()),
				zap.Any("panic", p),
			)
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn("side effect failed",
			zap.String("op", op),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

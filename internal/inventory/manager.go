package inventory

import (
	"context"
	"fmt"
	"time"

	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	ReasonReserved  = "reserved"
	ReasonReleased  = "released"
	ReasonSetStock  = "set_stock"
	ReasonAdjusted  = "adjusted"
	defaultHoldTime = 15 * time.Minute
)

// Manager — менеджер резервов. Атомарность reserve обеспечивает условный UPDATE в inventories,
// единственность терминального перехода — условный UPDATE в stock_reservations.
type Manager struct {
	repo       *repository.Repository
	log        *zap.Logger
	tracer     trace.Tracer
	observer   StockObserver
	defaultTTL time.Duration
	now        func() time.Time
}

type ManagerOption func(*Manager)

func WithObserver(o StockObserver) ManagerOption {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

func WithDefaultTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}

func NewManager(repo *repository.Repository, log *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:       repo,
		log:        log,
		tracer:     otel.Tracer("inventory/manager"),
		observer:   noopObserver{},
		defaultTTL: defaultHoldTime,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reserve удерживает qty единиц товара. (nil, nil) — остатка не хватает или товар неактивен.
func (m *Manager) Reserve(ctx context.Context, productID uuid.UUID, qty uint32, ttl time.Duration, ownerID uuid.UUID) (*models.StockReservation, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("product_id", productID.String()),
		attribute.Int("quantity", int(qty)),
	)

	if qty == 0 {
		return nil, ErrInvalidQuantity
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	var (
		rec       *models.StockReservation
		product   *models.Product
		available int32
	)
	err := m.repo.WithTx(ctx, func(tx *repository.Repository) error {
		p, err := tx.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		if !p.IsActive {
			return nil
		}
		product = p

		ok, err := tx.Inventories.TryReserve(ctx, productID, int32(qty))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		inv, err := tx.Inventories.Get(ctx, productID)
		if err != nil {
			return err
		}
		if inv != nil {
			available = inv.Available
		}

		rec = &models.StockReservation{
			ProductID:   productID,
			OwnerUserID: ownerID,
			Quantity:    int32(qty),
			Status:      models.ReservationHeld,
			ExpiresAt:   m.now().Add(ttl),
		}
		return tx.Reservations.Create(ctx, rec)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if rec == nil {
		m.log.Info("stock reservation rejected",
			zap.String("product_id", productID.String()),
			zap.Uint32("quantity", qty),
		)
		return nil, nil
	}

	if available == 0 {
		m.observer.StockChanged(ctx, productID, product.SellerID, int32(qty), 0, ReasonReserved)
	}
	return rec, nil
}

// Confirm списывает удержанный остаток окончательно.
func (m *Manager) Confirm(ctx context.Context, reservationID uuid.UUID) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("reservation_id", reservationID.String()))

	_, _, err := m.finish(ctx, reservationID, models.ReservationConfirmed)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Cancel возвращает удержанный остаток в продажу.
func (m *Manager) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("reservation_id", reservationID.String()))

	rec, before, err := m.finish(ctx, reservationID, models.ReservationCancelled)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if before == 0 {
		if p, perr := m.repo.Products.GetByID(ctx, rec.ProductID); perr == nil && p != nil {
			m.observer.StockChanged(ctx, rec.ProductID, p.SellerID, 0, rec.Quantity, ReasonReleased)
		}
	}
	return nil
}

func (m *Manager) finish(ctx context.Context, id uuid.UUID, status models.ReservationStatus) (*models.StockReservation, int32, error) {
	var (
		rec    *models.StockReservation
		before int32
	)
	err := m.repo.WithTx(ctx, func(tx *repository.Repository) error {
		r, err := tx.Reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReservationNotFound
		}
		ok, err := tx.Reservations.Finish(ctx, id, status)
		if err != nil {
			return err
		}
		if !ok {
			return ErrReservationNotHeld
		}

		inv, err := tx.Inventories.GetForUpdate(ctx, r.ProductID)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInventoryNotFound
		}
		before = inv.Available

		var moved bool
		if status == models.ReservationConfirmed {
			moved, err = tx.Inventories.Confirm(ctx, r.ProductID, r.Quantity)
		} else {
			moved, err = tx.Inventories.Release(ctx, r.ProductID, r.Quantity)
		}
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: product %s", ErrReservedUnderflow, r.ProductID)
		}
		r.Status = status
		rec = r
		return nil
	})
	return rec, before, err
}

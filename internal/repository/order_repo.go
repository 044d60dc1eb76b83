package repository

import (
	"context"
	"errors"
	"time"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderListFilter struct {
	CustomerID *uuid.UUID
	SellerID   *uuid.UUID
	CourierID  *uuid.UUID
	Status     *models.OrderStatus
	Limit      int
	Offset     int
}

type PaymentUpdate struct {
	PaymentStatus models.PaymentStatus
	Status        *models.OrderStatus
	PaidAt        *time.Time
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	// CreateMany создаёт все заказы с позициями в одной транзакции: либо все, либо ни одного.
	CreateMany(ctx context.Context, orders []*models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error)
	// UpdateStatus меняет статус, только если заказ всё ещё в from. false — статус уже сменили.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, courierID *uuid.UUID, reason *string) (bool, error)
	// UpdatePaymentStatus меняет строку только если payment_status отличается; false — повтор.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, upd PaymentUpdate) (bool, error)

	WithTx(ctx context.Context, fn func(txRepo OrderRepo, txItems OrderItemRepo) error) error
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(o).Error
}

func (r *orderRepo) CreateMany(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(txOrders OrderRepo, txItems OrderItemRepo) error {
		for _, o := range orders {
			if err := txOrders.Create(ctx, o); err != nil {
				return err
			}
			for i := range o.Items {
				o.Items[i].OrderID = o.ID
			}
			if err := txItems.BulkCreate(ctx, o.Items); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.SellerID != nil {
		q = q.Where("seller_id = ?", *f.SellerID)
	}
	if f.CourierID != nil {
		q = q.Where("courier_id = ?", *f.CourierID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []*models.Order
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, courierID *uuid.UUID, reason *string) (bool, error) {
	upd := map[string]any{"status": to}
	if courierID != nil {
		upd["courier_id"] = *courierID
	}
	if reason != nil {
		upd["cancel_reason"] = *reason
	}
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(upd)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, upd PaymentUpdate) (bool, error) {
	fields := map[string]any{"payment_status": upd.PaymentStatus}
	if upd.Status != nil {
		// завершённый заказ webhook не переоткрывает
		fields["status"] = gorm.Expr("CASE WHEN status IN ? THEN status ELSE ? END", models.TerminalOrderStatuses, *upd.Status)
	}
	if upd.PaidAt != nil {
		fields["paid_at"] = *upd.PaidAt
	}
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", id, upd.PaymentStatus).
		Updates(fields)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) WithTx(ctx context.Context, fn func(txRepo OrderRepo, txItems OrderItemRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&orderRepo{db: tx}, &orderItemRepo{db: tx})
	})
}

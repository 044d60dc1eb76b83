package repository

import (
	"context"
	"errors"
	"time"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationRepo interface {
	Create(ctx context.Context, r *models.StockReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	// Finish переводит HELD резерв в терминальный статус. false — резерв уже завершён.
	Finish(ctx context.Context, id uuid.UUID, status models.ReservationStatus) (bool, error)
	ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error)
	// Ordered возвращает те из ids, на которые ссылаются строки заказов.
	Ordered(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) Create(ctx context.Context, rec *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var rec models.StockReservation
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *reservationRepo) Finish(ctx context.Context, id uuid.UUID, status models.ReservationStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE stock_reservations
SET status = @status,
    updated_at = now()
WHERE id = @id
  AND status = @held
`, map[string]any{
		"id":     id,
		"status": status,
		"held":   models.ReservationHeld,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.ReservationHeld, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) Ordered(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var linked []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("reservation_id IN ?", ids).
		Distinct("reservation_id").
		Pluck("reservation_id", &linked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range linked {
		out[id] = true
	}
	return out, nil
}

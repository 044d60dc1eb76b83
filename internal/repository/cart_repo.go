package repository

import (
	"context"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepo interface {
	Upsert(ctx context.Context, item *models.CartItem) error
	// ListByUserAndProducts возвращает строки корзины вместе с товаром (продавец и текущая цена).
	ListByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]models.CartItem, error)
	DeleteByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) Upsert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Omit("Product").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": item.Quantity, "updated_at": gorm.Expr("now()")}),
		}).
		Create(item).Error
}

func (r *cartRepo) ListByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]models.CartItem, error) {
	if len(productIDs) == 0 {
		return []models.CartItem{}, nil
	}
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Find(&rows).Error
	return rows, err
}

func (r *cartRepo) DeleteByUserAndProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{})
	return tx.RowsAffected, tx.Error
}

package repository

import (
	"context"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WishlistRepo interface {
	// Add возвращает false, если товар уже в списке.
	Add(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
}

type wishlistRepo struct{ db *gorm.DB }

func NewWishlistRepo(db *gorm.DB) WishlistRepo { return &wishlistRepo{db: db} }

func (r *wishlistRepo) Add(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WishlistItem{UserID: userID, ProductID: productID})
	return tx.RowsAffected > 0, tx.Error
}

func (r *wishlistRepo) Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *wishlistRepo) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var rows []models.WishlistItem
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

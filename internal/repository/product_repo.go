package repository

import (
	"context"
	"errors"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// Update меняет только переданные колонки; false — товара нет.
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
	EnsureInventoryRow(ctx context.Context, productID uuid.UUID) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

// Select("*") нужен, чтобы is_active=false не заменялся default'ом.
func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Select("*").Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) EnsureInventoryRow(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Inventory{ProductID: productID}).Error
}

func (r *productRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}
	upd := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		upd[k] = v
	}
	upd["updated_at"] = gorm.Expr("now()")
	tx := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(upd)
	return tx.RowsAffected > 0, tx.Error
}

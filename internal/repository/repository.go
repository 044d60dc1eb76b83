package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB           *gorm.DB
	Users        UserRepo
	Products     ProductRepo
	Inventories  InventoryRepo
	Reservations ReservationRepo
	Carts        CartRepo
	Orders       OrderRepo
	OrderItems   OrderItemRepo
	Wishlists    WishlistRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:           db,
		Users:        NewUserRepo(db),
		Products:     NewProductRepo(db),
		Inventories:  NewInventoryRepo(db),
		Reservations: NewReservationRepo(db),
		Carts:        NewCartRepo(db),
		Orders:       NewOrderRepo(db),
		OrderItems:   NewOrderItemRepo(db),
		Wishlists:    NewWishlistRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx: одна транзакция на весь набор репозиториев.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}

package catalog

import (
	"context"

	"orderhub/internal/models"

	"github.com/google/uuid"
)

type ProductEvents interface {
	ProductCreated(ctx context.Context, p *models.Product)
	ProductUpdated(ctx context.Context, p *models.Product, fields []string)
	ProductDeleted(ctx context.Context, p *models.Product)
}

type ShopperEvents interface {
	UserRegistered(ctx context.Context, u *models.User)
	UserUpdated(ctx context.Context, userID uuid.UUID, fields []string)
	CartUpdated(ctx context.Context, userID, productID uuid.UUID, quantity uint32)
	WishlistItemAdded(ctx context.Context, userID, productID uuid.UUID)
	WishlistItemRemoved(ctx context.Context, userID, productID uuid.UUID)
}

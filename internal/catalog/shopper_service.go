package catalog

import (
	"context"
	"strings"

	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCartQuantity = 1000

// ShopperService: корзина, избранное и синхронизация профиля из auth сервиса.
type ShopperService struct {
	repo   *repository.Repository
	events ShopperEvents
	log    *zap.Logger
}

func NewShopperService(repo *repository.Repository, events ShopperEvents, log *zap.Logger) *ShopperService {
	return &ShopperService{repo: repo, events: events, log: log}
}

func (s *ShopperService) activeProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.repo.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// SetCartItem кладёт товар в корзину или меняет количество.
func (s *ShopperService) SetCartItem(ctx context.Context, userID, productID uuid.UUID, qty uint32) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}
	if qty == 0 || qty > maxCartQuantity {
		return ErrInvalidInput
	}
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.Carts.Upsert(ctx, &models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}); err != nil {
		return err
	}
	s.events.CartUpdated(ctx, userID, productID, qty)
	return nil
}

func (s *ShopperService) RemoveCartItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}
	n, err := s.repo.Carts.DeleteByUserAndProducts(ctx, userID, []uuid.UUID{productID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotInCart
	}
	s.events.CartUpdated(ctx, userID, productID, 0)
	return nil
}

func (s *ShopperService) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return err
	}
	added, err := s.repo.Wishlists.Add(ctx, userID, productID)
	if err != nil {
		return err
	}
	if added {
		s.events.WishlistItemAdded(ctx, userID, productID)
	}
	return nil
}

func (s *ShopperService) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthorized
	}
	removed, err := s.repo.Wishlists.Remove(ctx, userID, productID)
	if err != nil {
		return err
	}
	if removed {
		s.events.WishlistItemRemoved(ctx, userID, productID)
	}
	return nil
}

type SyncUserInput struct {
	ID    uuid.UUID   `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// SyncUser применяет профиль из auth сервиса: новый пользователь — UserRegistered, изменения — UserUpdated.
func (s *ShopperService) SyncUser(ctx context.Context, in SyncUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if in.ID == uuid.Nil || email == "" || !in.Role.Valid() {
		return nil, ErrInvalidInput
	}

	u, err := s.repo.Users.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = &models.User{ID: in.ID, Email: email, Name: in.Name, Role: in.Role}
		if err := s.repo.Users.Create(ctx, u); err != nil {
			return nil, err
		}
		s.log.Info("Пользователь синхронизирован", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
		s.events.UserRegistered(ctx, u)
		return u, nil
	}

	fields := map[string]any{}
	changed := []string{}
	if u.Email != email {
		u.Email = email
		fields["email"] = email
		changed = append(changed, "email")
	}
	if u.Name != in.Name {
		u.Name = in.Name
		fields["name"] = in.Name
		changed = append(changed, "name")
	}
	if u.Role != in.Role {
		u.Role = in.Role
		fields["role"] = in.Role
		changed = append(changed, "role")
	}
	if len(changed) == 0 {
		return u, nil
	}
	if err := s.repo.Users.Update(ctx, u.ID, fields); err != nil {
		return nil, err
	}
	s.events.UserUpdated(ctx, u.ID, changed)
	return u, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateProductInput struct {
	SKU          string `json:"sku" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,min=2,max=200"`
	PriceCents   int64  `json:"price_cents" validate:"gte=0"`
	CurrencyCode string `json:"currency_code" validate:"required,len=3"`
	InitialStock int32  `json:"initial_stock" validate:"gte=0"`
}

type UpdateProductInput struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=200"`
	PriceCents *int64  `json:"price_cents" validate:"omitempty,gte=0"`
	IsActive   *bool   `json:"is_active"`
}

// ProductService: карточки товаров продавца. Остатки меняются через inventory.StockService.
type ProductService struct {
	repo     *repository.Repository
	events   ProductEvents
	validate *validator.Validate
	log      *zap.Logger
}

func NewProductService(repo *repository.Repository, events ProductEvents, log *zap.Logger) *ProductService {
	return &ProductService{repo: repo, events: events, validate: validator.New(), log: log}
}

func (s *ProductService) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %s", ErrInvalidInput, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func sellerActor(ctx context.Context) (identity.Actor, error) {
	actor, ok := identity.ActorFromContext(ctx)
	if !ok {
		return identity.Actor{}, ErrUnauthorized
	}
	if actor.Role != models.RoleSeller && actor.Role != models.RoleAdmin {
		return identity.Actor{}, ErrForbidden
	}
	return actor, nil
}

func (s *ProductService) owned(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	actor, err := sellerActor(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	if !actor.IsAdmin() && p.SellerID != actor.ID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	actor, err := sellerActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	p := &models.Product{
		SellerID:     actor.ID,
		SKU:          strings.TrimSpace(in.SKU),
		Name:         strings.TrimSpace(in.Name),
		PriceCents:   in.PriceCents,
		CurrencyCode: strings.ToUpper(in.CurrencyCode),
		IsActive:     true,
	}
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Products.Create(ctx, p); err != nil {
			return err
		}
		if err := tx.Products.EnsureInventoryRow(ctx, p.ID); err != nil {
			return err
		}
		return tx.Inventories.SetAvailable(ctx, p.ID, in.InitialStock)
	})
	if err != nil {
		s.log.Error("Не удалось создать товар", zap.String("seller_id", actor.ID.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("Товар создан", zap.String("product_id", p.ID.String()), zap.String("sku", p.SKU))
	s.events.ProductCreated(ctx, p)
	return p, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*models.Product, error) {
	p, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	changed := []string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != p.Name {
		p.Name = strings.TrimSpace(*in.Name)
		fields["name"] = p.Name
		changed = append(changed, "name")
	}
	if in.PriceCents != nil && *in.PriceCents != p.PriceCents {
		p.PriceCents = *in.PriceCents
		fields["price_cents"] = p.PriceCents
		changed = append(changed, "price_cents")
	}
	if in.IsActive != nil && *in.IsActive != p.IsActive {
		p.IsActive = *in.IsActive
		fields["is_active"] = p.IsActive
		changed = append(changed, "is_active")
	}
	if len(changed) == 0 {
		return p, nil
	}

	ok, err := s.repo.Products.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProductNotFound
	}
	s.events.ProductUpdated(ctx, p, changed)
	return p, nil
}

// DeleteProduct снимает товар с продажи: строка остаётся, на неё ссылаются заказы и резервы.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	if _, err := s.repo.Products.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		return err
	}
	p.IsActive = false
	s.events.ProductDeleted(ctx, p)
	return nil
}

package inventory

import (
	"context"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockService: ручное управление остатками продавцом или администратором.
type StockService struct {
	repo     *repository.Repository
	log      *zap.Logger
	observer StockObserver
}

func NewStockService(repo *repository.Repository, log *zap.Logger, observer StockObserver) *StockService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &StockService{repo: repo, log: log, observer: observer}
}

func (s *StockService) authorize(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	actor, ok := identity.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSeller {
		return nil, ErrForbidden
	}
	p, err := s.repo.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	if actor.Role == models.RoleSeller && p.SellerID != actor.ID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *StockService) GetStock(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	if _, err := s.authorize(ctx, productID); err != nil {
		return nil, err
	}
	inv, err := s.repo.Inventories.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}
	return inv, nil
}

func (s *StockService) SetStock(ctx context.Context, productID uuid.UUID, available int32) (*models.Inventory, error) {
	if available < 0 {
		return nil, ErrNegativeStock
	}
	p, err := s.authorize(ctx, productID)
	if err != nil {
		return nil, err
	}

	var prev, cur *models.Inventory
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Products.EnsureInventoryRow(ctx, productID); err != nil {
			return err
		}
		inv, err := tx.Inventories.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInventoryNotFound
		}
		before := *inv
		prev = &before

		if err := tx.Inventories.SetAvailable(ctx, productID, available); err != nil {
			return err
		}
		inv.Available = available
		cur = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock set",
		zap.String("product_id", productID.String()),
		zap.Int32("previous", prev.Available),
		zap.Int32("available", cur.Available),
	)
	s.observer.StockChanged(ctx, productID, p.SellerID, prev.Available, cur.Available, ReasonSetStock)
	return cur, nil
}

func (s *StockService) AdjustStock(ctx context.Context, productID uuid.UUID, delta int32) (*models.Inventory, error) {
	p, err := s.authorize(ctx, productID)
	if err != nil {
		return nil, err
	}

	var prev, cur int32
	var inv *models.Inventory
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Inventories.AdjustAvailable(ctx, productID, delta)
		if err != nil {
			return err
		}
		if !ok {
			existing, err := tx.Inventories.Get(ctx, productID)
			if err != nil {
				return err
			}
			if existing == nil {
				return ErrInventoryNotFound
			}
			return ErrNegativeStock
		}
		inv, err = tx.Inventories.Get(ctx, productID)
		if err != nil {
			return err
		}
		if inv == nil {
			return ErrInventoryNotFound
		}
		cur = inv.Available
		prev = cur - delta
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.StockChanged(ctx, productID, p.SellerID, prev, cur, ReasonAdjusted)
	return inv, nil
}

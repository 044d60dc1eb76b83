package cleanup

import (
	"context"
	"errors"
	"time"

	"orderhub/internal/inventory"
	"orderhub/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultBatch     = 100
	finishedRetainTo = 7 * 24 * time.Hour
)

type ExpiredLister interface {
	ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error)
	Ordered(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type Finisher interface {
	Cancel(ctx context.Context, reservationID uuid.UUID) error
	Confirm(ctx context.Context, reservationID uuid.UUID) error
}

type CleanupService struct {
	db       *gorm.DB
	lister   ExpiredLister
	finisher Finisher
	log      *zap.Logger
	batch    int
	now      func() time.Time
}

func NewCleanupService(db *gorm.DB, lister ExpiredLister, finisher Finisher, log *zap.Logger) *CleanupService {
	return &CleanupService{
		db:       db,
		lister:   lister,
		finisher: finisher,
		log:      log,
		batch:    defaultBatch,
		now:      time.Now,
	}
}

// ReleaseExpiredReservations отменяет HELD резервы, у которых истёк срок, и возвращает остаток в продажу.
// Резервы, попавшие в сохранённый заказ, не отменяются, а подтверждаются.
func (c *CleanupService) ReleaseExpiredReservations(ctx context.Context) (int, error) {
	released, confirmed := 0, 0
	for {
		list, err := c.lister.ListExpiredHeld(ctx, c.now(), c.batch)
		if err != nil {
			c.log.Error("failed to list expired reservations", zap.Error(err))
			return released, err
		}
		if len(list) == 0 {
			break
		}

		ids := make([]uuid.UUID, len(list))
		for i, r := range list {
			ids[i] = r.ID
		}
		ordered, err := c.lister.Ordered(ctx, ids)
		if err != nil {
			c.log.Error("failed to check ordered reservations", zap.Error(err))
			return released, err
		}

		progressed := false
		for _, r := range list {
			if ordered[r.ID] {
				err := c.finisher.Confirm(ctx, r.ID)
				switch {
				case err == nil:
					confirmed++
					progressed = true
				case errors.Is(err, inventory.ErrReservationNotHeld):
					progressed = true
				default:
					c.log.Warn("failed to confirm ordered reservation",
						zap.String("reservation_id", r.ID.String()),
						zap.Error(err),
					)
				}
				continue
			}
			err := c.finisher.Cancel(ctx, r.ID)
			switch {
			case err == nil:
				released++
				progressed = true
			case errors.Is(err, inventory.ErrReservationNotHeld):
				// успели подтвердить или отменить параллельно
				progressed = true
			default:
				c.log.Warn("failed to release expired reservation",
					zap.String("reservation_id", r.ID.String()),
					zap.Error(err),
				)
			}
		}
		if !progressed || len(list) < c.batch {
			break
		}
	}

	if released > 0 {
		c.log.Info("released expired reservations", zap.Int("count", released))
	}
	if confirmed > 0 {
		c.log.Info("confirmed ordered reservations", zap.Int("count", confirmed))
	}
	return released, nil
}

// PurgeFinishedReservations удаляет завершённые резервы старше недели.
func (c *CleanupService) PurgeFinishedReservations(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	cutoff := c.now().Add(-finishedRetainTo)

	result := c.db.WithContext(ctx).
		Exec("DELETE FROM stock_reservations WHERE status <> ? AND updated_at < ?", models.ReservationHeld, cutoff)
	if result.Error != nil {
		c.log.Error("failed to purge finished reservations", zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("purged finished reservations", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

func (c *CleanupService) RunFullCleanup(ctx context.Context) error {
	c.log.Info("starting full cleanup")

	if _, err := c.ReleaseExpiredReservations(ctx); err != nil {
		return err
	}
	if err := c.PurgeFinishedReservations(ctx); err != nil {
		return err
	}

	c.log.Info("full cleanup completed")
	return nil
}

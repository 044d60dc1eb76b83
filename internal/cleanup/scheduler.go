package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	cleanup       *CleanupService
	log           *zap.Logger
	sweepInterval time.Duration
	purgeInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

func NewScheduler(cleanup *CleanupService, sweepInterval time.Duration, log *zap.Logger) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Scheduler{
		cleanup:       cleanup,
		log:           log,
		sweepInterval: sweepInterval,
		purgeInterval: 6 * time.Hour,
		stopCh:        make(chan struct{}),
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting cleanup scheduler", zap.Duration("sweep_interval", s.sweepInterval))

	s.wg.Add(2)
	go s.runExpiredReservationsSweep(ctx)
	go s.runFinishedReservationsPurge(ctx)
}

// Stop останавливает планировщик и ждёт завершения текущих проходов
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping cleanup scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) runExpiredReservationsSweep(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	// Выполняем сразу при старте
	if _, err := s.cleanup.ReleaseExpiredReservations(ctx); err != nil {
		s.log.Error("initial expired reservations sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.cleanup.ReleaseExpiredReservations(ctx); err != nil {
				s.log.Error("expired reservations sweep failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("expired reservations sweep stopped")
			return
		case <-ctx.Done():
			s.log.Info("expired reservations sweep cancelled")
			return
		}
	}
}

func (s *Scheduler) runFinishedReservationsPurge(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.PurgeFinishedReservations(ctx); err != nil {
				s.log.Error("finished reservations purge failed", zap.Error(err))
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnceNow выполняет полную очистку немедленно
func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	return s.cleanup.RunFullCleanup(ctx)
}

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderhub/internal/events"

	"go.uber.org/zap"
)

func (b *Bus) run() {
	defer close(b.dispatcherDone)
	for {
		select {
		case <-b.wake:
			b.drain(false)
		case <-b.stop:
			b.drain(true)
			return
		}
	}
}

// drain обрабатывает очередь пакетами по BatchSize с паузой ProcessingInterval между ними.
// При остановке (fast) паузы пропускаются.
func (b *Bus) drain(fast bool) {
	for {
		batch := b.popBatch()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			b.dispatch(ev)
		}
		if fast || b.cfg.ProcessingInterval == 0 || b.queueLen() == 0 {
			continue
		}
		t := time.NewTimer(b.cfg.ProcessingInterval)
		select {
		case <-t.C:
		case <-b.stop:
			t.Stop()
			fast = true
		}
	}
}

func (b *Bus) popBatch() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		b.processing = false
		return nil
	}
	n := min(b.cfg.BatchSize, len(b.queue))
	batch := make([]events.Event, n)
	copy(batch, b.queue[:n])
	b.queue = append(b.queue[:0:0], b.queue[n:]...)
	b.processing = true
	return batch
}

func (b *Bus) queueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bus) snapshot(t events.Type) []registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[t]
	out := make([]registration, len(list))
	copy(out, list)
	return out
}

func (b *Bus) dispatch(ev events.Event) {
	regs := b.snapshot(ev.Type)
	if len(regs) == 0 {
		b.log.Debug("no handlers for event", zap.String("type", ev.Type.String()))
	}
	for _, r := range regs {
		if r.async {
			b.spawn(func() {
				if err := b.call(r, ev); err != nil {
					b.handleError(r, ev, err)
				}
			})
			continue
		}
		if err := b.call(r, ev); err != nil {
			if ev.Priority == events.PriorityCritical && b.cfg.RetryAttempts > 0 {
				// ретрай уходит в фон, чтобы паузы не тормозили очередь
				b.spawn(func() { b.handleError(r, ev, err) })
				continue
			}
			b.handleError(r, ev, err)
		}
	}
	b.stats.processed.Add(1)
}

func (b *Bus) spawn(fn func()) {
	b.tasks.Add(1)
	b.stats.inFlight.Add(1)
	go func() {
		defer b.tasks.Done()
		defer b.stats.inFlight.Add(-1)
		fn()
	}()
}

func (b *Bus) handleError(r registration, ev events.Event, err error) {
	if ev.Priority != events.PriorityCritical || b.cfg.RetryAttempts == 0 {
		b.log.Error("event handler failed",
			zap.String("type", ev.Type.String()),
			zap.String("handler", r.name),
			zap.String("priority", ev.Priority.String()),
			zap.Error(err),
		)
		b.fail(Failure{Event: ev, HandlerID: r.id, Handler: r.name, Attempts: 1, Err: err})
		return
	}
	b.retry(r, ev, err)
}

// retry повторяет только упавший обработчик: перед попыткой n ждёт RetryDelay*n.
func (b *Bus) retry(r registration, ev events.Event, err error) {
	attempts := 1
	for n := 1; n <= b.cfg.RetryAttempts; n++ {
		if !b.sleep(b.cfg.RetryDelay * time.Duration(n)) {
			break
		}
		b.stats.retried.Add(1)
		attempts++
		if err = b.call(r, ev); err == nil {
			b.log.Info("event handler succeeded after retry",
				zap.String("type", ev.Type.String()),
				zap.String("handler", r.name),
				zap.Int("attempt", n),
			)
			return
		}
		b.log.Warn("event handler retry failed",
			zap.String("type", ev.Type.String()),
			zap.String("handler", r.name),
			zap.Int("attempt", n),
			zap.Error(err),
		)
	}
	b.log.Error("event handler retries exhausted",
		zap.String("type", ev.Type.String()),
		zap.String("handler", r.name),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	b.fail(Failure{Event: ev, HandlerID: r.id, Handler: r.name, Attempts: attempts, Err: err})
}

func (b *Bus) sleep(d time.Duration) bool {
	if d <= 0 {
		return b.baseCtx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-b.baseCtx.Done():
		return false
	}
}

// call выполняет обработчик с дедлайном и перехватом паники.
func (b *Bus) call(r registration, ev events.Event) error {
	ctx := b.baseCtx
	cancel := func() {}
	if b.cfg.HandlerTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.cfg.HandlerTimeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("%w: %v", ErrHandlerPanic, p)
			}
		}()
		done <- r.handler(ctx, ev)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			b.stats.timedOut.Add(1)
			return fmt.Errorf("%w: %v", ErrHandlerTimeout, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			b.stats.timedOut.Add(1)
			return fmt.Errorf("%w after %s", ErrHandlerTimeout, b.cfg.HandlerTimeout)
		}
		return ctx.Err()
	}
}

func (b *Bus) fail(f Failure) {
	b.stats.failed.Add(1)
	select {
	case b.failures <- f:
	default:
	}
}

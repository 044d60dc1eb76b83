package eventbus_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orderhub/internal/eventbus"
	"orderhub/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() eventbus.Config {
	cfg := eventbus.DefaultConfig()
	cfg.ProcessingInterval = time.Millisecond
	cfg.RetryDelay = time.Millisecond
	cfg.HandlerTimeout = time.Second
	return cfg
}

func closeBus(t *testing.T, b *eventbus.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Close(ctx))
}

func TestBus_PriorityOrder(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	var (
		mu    sync.Mutex
		order []events.Priority
	)
	record := func(p events.Priority) eventbus.Handler {
		return func(ctx context.Context, ev events.Event) error {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
			return nil
		}
	}
	for _, p := range []events.Priority{events.PriorityLow, events.PriorityCritical, events.PriorityNormal, events.PriorityHigh} {
		b.On(events.OrderCreated, record(p), eventbus.WithPriority(p), eventbus.Sync())
	}

	b.Start()
	require.True(t, b.Emit(events.OrderCreatedPayload{OrderID: uuid.New()}))
	closeBus(t, b)

	assert.Equal(t, []events.Priority{
		events.PriorityCritical, events.PriorityHigh, events.PriorityNormal, events.PriorityLow,
	}, order)
}

func TestBus_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	var got []string
	for _, name := range []string{"first", "second", "third"} {
		b.On(events.CartCleared, func(ctx context.Context, ev events.Event) error {
			got = append(got, name)
			return nil
		}, eventbus.Sync())
	}
	b.Start()
	b.Emit(events.CartClearedPayload{})
	closeBus(t, b)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestBus_QueueBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 5
	b := eventbus.New(cfg, zap.NewNop())

	accepted := 0
	for i := 0; i < cfg.MaxQueueSize+3; i++ {
		if b.Emit(events.ProductUpdatedPayload{ProductID: uuid.New()}) {
			accepted++
		}
	}

	st := b.Status()
	assert.Equal(t, 5, accepted)
	assert.Equal(t, 5, st.QueueSize)
	assert.Equal(t, int64(3), st.Stats.Dropped)
	assert.False(t, st.IsProcessing)
}

func TestBus_FIFOAcrossBatches(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 3
	b := eventbus.New(cfg, zap.NewNop())

	var seen []uuid.UUID
	b.On(events.ProductDeleted, func(ctx context.Context, ev events.Event) error {
		seen = append(seen, ev.Payload.(events.ProductDeletedPayload).ProductID)
		return nil
	}, eventbus.Sync())

	var want []uuid.UUID
	for i := 0; i < 10; i++ {
		id := uuid.New()
		want = append(want, id)
		b.Emit(events.ProductDeletedPayload{ProductID: id})
	}
	b.Start()
	closeBus(t, b)

	assert.Equal(t, want, seen)
	assert.Equal(t, int64(10), b.Status().Stats.Processed)
}

func TestBus_RetryBoundForCriticalEvents(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 3
	b := eventbus.New(cfg, zap.NewNop())

	var calls atomic.Int32
	b.On(events.OrderPaymentFailed, func(ctx context.Context, ev events.Event) error {
		calls.Add(1)
		return errors.New("smtp down")
	}, eventbus.Sync(), eventbus.Named("payment-failed-mail"))

	b.Start()
	b.Emit(events.PaymentFailedPayload{OrderID: uuid.New()})
	closeBus(t, b)

	assert.Equal(t, int32(1+cfg.RetryAttempts), calls.Load())

	select {
	case f := <-b.Failures():
		assert.Equal(t, 1+cfg.RetryAttempts, f.Attempts)
		assert.Equal(t, "payment-failed-mail", f.Handler)
		assert.Equal(t, events.OrderPaymentFailed, f.Event.Type)
	default:
		t.Fatalf("expected failure in sink")
	}
	st := b.Status()
	assert.Equal(t, int64(cfg.RetryAttempts), st.Stats.Retried)
	assert.Equal(t, int64(1), st.Stats.Failed)
}

func TestBus_RetryStopsOnSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 5
	b := eventbus.New(cfg, zap.NewNop())

	var calls atomic.Int32
	b.On(events.OrderPaymentSucceeded, func(ctx context.Context, ev events.Event) error {
		if calls.Add(1) < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	b.Start()
	b.Emit(events.PaymentSucceededPayload{OrderID: uuid.New()})
	closeBus(t, b)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(0), b.Status().Stats.Failed)
}

func TestBus_NonCriticalFailureNotRetried(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	var calls atomic.Int32
	b.On(events.OrderUpdated, func(ctx context.Context, ev events.Event) error {
		calls.Add(1)
		return errors.New("cache down")
	})

	b.Start()
	b.Emit(events.OrderUpdatedPayload{OrderID: uuid.New()})
	closeBus(t, b)

	assert.Equal(t, int32(1), calls.Load())
	f := <-b.Failures()
	assert.Equal(t, 1, f.Attempts)
}

func TestBus_CriticalPriorityOverrideOnEmit(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 2
	b := eventbus.New(cfg, zap.NewNop())

	var calls atomic.Int32
	b.On(events.OrderUpdated, func(ctx context.Context, ev events.Event) error {
		calls.Add(1)
		return errors.New("boom")
	}, eventbus.Sync())

	b.Start()
	b.Emit(events.OrderUpdatedPayload{}, events.WithPriority(events.PriorityCritical))
	closeBus(t, b)

	assert.Equal(t, int32(3), calls.Load())
}

func TestBus_AsyncHandlerDoesNotBlockDispatch(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	release := make(chan struct{})
	syncRan := make(chan struct{})

	b.On(events.OrderCreated, func(ctx context.Context, ev events.Event) error {
		<-release
		return nil
	}, eventbus.WithPriority(events.PriorityCritical))
	b.On(events.OrderCreated, func(ctx context.Context, ev events.Event) error {
		close(syncRan)
		return nil
	}, eventbus.WithPriority(events.PriorityLow), eventbus.Sync())

	b.Start()
	b.Emit(events.OrderCreatedPayload{})

	select {
	case <-syncRan:
	case <-time.After(2 * time.Second):
		t.Fatalf("sync handler was blocked by async one")
	}
	assert.Eventually(t, func() bool { return b.Status().Stats.InFlight == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	closeBus(t, b)
	assert.Equal(t, int64(0), b.Status().Stats.InFlight)
}

func TestBus_HandlerTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.HandlerTimeout = 20 * time.Millisecond
	b := eventbus.New(cfg, zap.NewNop())

	b.On(events.UserRegistered, func(ctx context.Context, ev events.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}, eventbus.Sync())

	b.Start()
	b.Emit(events.UserRegisteredPayload{})
	closeBus(t, b)

	f := <-b.Failures()
	assert.ErrorIs(t, f.Err, eventbus.ErrHandlerTimeout)
	assert.Equal(t, int64(1), b.Status().Stats.TimedOut)
}

func TestBus_PanicIsContained(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	var after atomic.Bool
	b.On(events.WishlistItemAdded, func(ctx context.Context, ev events.Event) error {
		panic("nil map")
	}, eventbus.Sync(), eventbus.WithPriority(events.PriorityHigh))
	b.On(events.WishlistItemAdded, func(ctx context.Context, ev events.Event) error {
		after.Store(true)
		return nil
	}, eventbus.Sync())

	b.Start()
	b.Emit(events.WishlistItemAddedPayload{})
	closeBus(t, b)

	assert.True(t, after.Load())
	f := <-b.Failures()
	assert.ErrorIs(t, f.Err, eventbus.ErrHandlerPanic)
}

func TestBus_OnOff(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	var calls atomic.Int32
	h := func(ctx context.Context, ev events.Event) error {
		calls.Add(1)
		return nil
	}
	id1 := b.On(events.CartUpdated, h, eventbus.Sync())
	id2 := b.On(events.CartUpdated, h, eventbus.Sync())
	require.NotEqual(t, id1, id2)
	assert.Equal(t, 2, b.Status().RegisteredHandlerCount)

	b.Off(events.CartUpdated, id1)
	b.Off(events.CartUpdated, eventbus.HandlerID(9999))
	assert.Equal(t, 1, b.Status().RegisteredHandlerCount)

	b.Start()
	b.Emit(events.CartUpdatedPayload{})
	closeBus(t, b)

	assert.Equal(t, int32(1), calls.Load())
}

func TestBus_DuplicateRegistrationInvokesTwice(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	var calls atomic.Int32
	h := func(ctx context.Context, ev events.Event) error {
		calls.Add(1)
		return nil
	}
	b.On(events.CartUpdated, h)
	b.On(events.CartUpdated, h)

	b.Start()
	b.Emit(events.CartUpdatedPayload{})
	closeBus(t, b)

	assert.Equal(t, int32(2), calls.Load())
}

func TestBus_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	b := eventbus.New(cfg, zap.NewNop())

	id := b.On(events.OrderCreated, func(ctx context.Context, ev events.Event) error { return nil })
	assert.Equal(t, eventbus.HandlerID(0), id)
	assert.False(t, b.Emit(events.OrderCreatedPayload{}))

	b.Start()
	st := b.Status()
	assert.False(t, st.Enabled)
	assert.Equal(t, 0, st.QueueSize)
	assert.Equal(t, 0, st.RegisteredHandlerCount)
	closeBus(t, b)
}

func TestBus_EmitAfterCloseIsDropped(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())
	b.Start()
	closeBus(t, b)

	assert.False(t, b.Emit(events.OrderCreatedPayload{}))
	assert.Equal(t, int64(1), b.Status().Stats.Dropped)
}

func TestBus_EmitStampsMetadata(t *testing.T) {
	b := eventbus.New(testConfig(), zap.NewNop())

	got := make(chan events.Event, 1)
	b.On(events.UserUpdated, func(ctx context.Context, ev events.Event) error {
		got <- ev
		return nil
	}, eventbus.Sync())

	uid := uuid.New()
	b.Start()
	b.Emit(events.UserUpdatedPayload{UserID: uid}, events.WithUserID(uid), events.WithSource("profile"))
	closeBus(t, b)

	ev := <-got
	assert.False(t, ev.Metadata.Timestamp.IsZero())
	require.NotNil(t, ev.Metadata.UserID)
	assert.Equal(t, uid, *ev.Metadata.UserID)
	assert.Equal(t, "profile", ev.Metadata.Source)
}

func TestBus_ConcurrentEmit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 10000
	b := eventbus.New(cfg, zap.NewNop())

	var calls atomic.Int32
	b.On(events.ProductUpdated, func(ctx context.Context, ev events.Event) error {
		calls.Add(1)
		return nil
	}, eventbus.Sync())
	b.Start()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.Emit(events.ProductUpdatedPayload{})
			}
		}()
	}
	wg.Wait()
	closeBus(t, b)

	assert.Equal(t, int32(400), calls.Load())
}

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"orderhub/internal/events"

	"go.uber.org/zap"
)

var (
	ErrHandlerTimeout = errors.New("event handler timed out")
	ErrHandlerPanic   = errors.New("event handler panicked")
)

// Failure — окончательный отказ обработчика (после ретраев, если они были).
type Failure struct {
	Event     events.Event
	HandlerID HandlerID
	Handler   string
	Attempts  int
	Err       error
}

type Stats struct {
	Emitted   int64 `json:"emitted"`
	Dropped   int64 `json:"dropped"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	TimedOut  int64 `json:"timed_out"`
	InFlight  int64 `json:"in_flight"`
}

type Status struct {
	Enabled                bool   `json:"enabled"`
	QueueSize              int    `json:"queue_size"`
	RegisteredHandlerCount int    `json:"registered_handler_count"`
	IsProcessing           bool   `json:"is_processing"`
	Config                 Config `json:"config"`
	Stats                  Stats  `json:"stats"`
}

type counters struct {
	emitted, dropped, processed, failed, retried, timedOut, inFlight atomic.Int64
}

// Bus — in-process pub/sub: ограниченная FIFO очередь, пакетный диспетчер, ретраи для critical событий.
type Bus struct {
	cfg Config
	log *zap.Logger
	now func() time.Time

	mu         sync.Mutex
	handlers   map[events.Type][]registration
	queue      []events.Event
	nextID     HandlerID
	processing bool
	started    bool
	closed     bool

	wake           chan struct{}
	stop           chan struct{}
	dispatcherDone chan struct{}
	tasks          sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc

	failures chan Failure
	stats    counters
}

func New(cfg Config, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		cfg:            cfg,
		log:            log.Named("eventbus"),
		now:            time.Now,
		handlers:       make(map[events.Type][]registration),
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
		dispatcherDone: make(chan struct{}),
		baseCtx:        ctx,
		cancel:         cancel,
		failures:       make(chan Failure, cfg.FailureBuffer),
	}
}

// On регистрирует обработчик. По умолчанию асинхронный с приоритетом Normal.
// Повторная регистрация того же обработчика даёт второй вызов. При выключенной шине возвращает 0.
func (b *Bus) On(t events.Type, h Handler, opts ...HandlerOption) HandlerID {
	if !b.cfg.Enabled || h == nil {
		return 0
	}
	reg := registration{handler: h, priority: events.PriorityNormal, async: true}
	for _, opt := range opts {
		opt(&reg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	reg.id = b.nextID
	if reg.name == "" {
		reg.name = fmt.Sprintf("%s#%d", t, reg.id)
	}
	b.handlers[t] = insertSorted(b.handlers[t], reg)
	return reg.id
}

// Off удаляет регистрацию; неизвестный id игнорируется.
func (b *Bus) Off(t events.Type, id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[t]
	for i, r := range list {
		if r.id == id {
			b.handlers[t] = append(list[:i:i], list[i+1:]...)
			if len(b.handlers[t]) == 0 {
				delete(b.handlers, t)
			}
			return
		}
	}
}

// Emit строит событие с текущим временем и ставит его в очередь. Никогда не блокирует.
func (b *Bus) Emit(p events.Payload, opts ...events.Option) bool {
	if !b.cfg.Enabled || p == nil {
		return false
	}
	all := make([]events.Option, 0, len(opts)+1)
	all = append(all, events.WithTimestamp(b.now()))
	all = append(all, opts...)
	return b.Publish(events.New(p, all...))
}

// Publish ставит готовое событие в очередь; при переполнении событие отбрасывается.
func (b *Bus) Publish(ev events.Event) bool {
	if !b.cfg.Enabled {
		return false
	}
	if ev.Metadata.Timestamp.IsZero() {
		ev.Metadata.Timestamp = b.now()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.stats.dropped.Add(1)
		b.log.Warn("event bus closed, event dropped", zap.String("type", ev.Type.String()))
		return false
	}
	if len(b.queue) >= b.cfg.MaxQueueSize {
		size := len(b.queue)
		b.mu.Unlock()
		b.stats.dropped.Add(1)
		b.log.Warn("event queue full, event dropped",
			zap.String("type", ev.Type.String()),
			zap.Int("queue_size", size),
		)
		return false
	}
	b.queue = append(b.queue, ev)
	started := b.started
	b.mu.Unlock()

	b.stats.emitted.Add(1)
	if started {
		b.signal()
	}
	return true
}

// Start запускает диспетчер. События, отправленные до Start, остаются в очереди.
func (b *Bus) Start() {
	if !b.cfg.Enabled {
		return
	}
	b.mu.Lock()
	if b.started || b.closed {
		b.mu.Unlock()
		return
	}
	b.started = true
	pending := len(b.queue)
	b.mu.Unlock()

	go b.run()
	if pending > 0 {
		b.signal()
	}
	b.log.Info("event bus started",
		zap.Int("max_queue_size", b.cfg.MaxQueueSize),
		zap.Int("batch_size", b.cfg.BatchSize),
		zap.Duration("processing_interval", b.cfg.ProcessingInterval),
	)
}

// Close перестаёт принимать события, дочищает очередь и ждёт фоновые задачи, пока не истечёт ctx.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	b.mu.Unlock()
	defer b.cancel()

	if started {
		close(b.stop)
		select {
		case <-b.dispatcherDone:
		case <-ctx.Done():
			b.log.Warn("event bus close: dispatcher did not drain in time")
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		b.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.log.Warn("event bus close: detached handlers still running", zap.Int64("in_flight", b.stats.inFlight.Load()))
		return ctx.Err()
	}
	b.log.Info("event bus stopped", zap.Int64("processed", b.stats.processed.Load()))
	return nil
}

// Failures отдаёт окончательные отказы обработчиков. Канал не закрывается.
func (b *Bus) Failures() <-chan Failure { return b.failures }

func (b *Bus) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, list := range b.handlers {
		count += len(list)
	}
	return Status{
		Enabled:                b.cfg.Enabled,
		QueueSize:              len(b.queue),
		RegisteredHandlerCount: count,
		IsProcessing:           b.processing,
		Config:                 b.cfg,
		Stats: Stats{
			Emitted:   b.stats.emitted.Load(),
			Dropped:   b.stats.dropped.Load(),
			Processed: b.stats.processed.Load(),
			Failed:    b.stats.failed.Load(),
			Retried:   b.stats.retried.Load(),
			TimedOut:  b.stats.timedOut.Load(),
			InFlight:  b.stats.inFlight.Load(),
		},
	}
}

func (b *Bus) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"orderhub/internal/eventbus"
	"orderhub/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BusStatus interface {
	Status() eventbus.Status
}

type RealtimeSubscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID, broadcast ...string) (<-chan realtime.Envelope, error)
}

type SystemHandler struct {
	bus      BusStatus
	realtime RealtimeSubscriber
	log      *zap.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

func NewSystemHandler(bus BusStatus, rt RealtimeSubscriber, log *zap.Logger) *SystemHandler {
	return &SystemHandler{bus: bus, realtime: rt, log: log, closing: make(chan struct{})}
}

// CloseStreams завершает все открытые SSE потоки; вешается на http.Server.RegisterOnShutdown.
func (h *SystemHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// EventsStatus — состояние шины событий (только админ).
func (h *SystemHandler) EventsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.bus.Status())
}

// Stream — SSE поток realtime событий пользователя. ?channel= добавляет широковещательные каналы.
func (h *SystemHandler) Stream(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "service_unavailable", "message": "realtime is disabled"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		select {
		case <-h.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	ch, err := h.realtime.Subscribe(ctx, actor.ID, c.QueryArray("channel")...)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		env, ok := <-ch
		if !ok {
			return false
		}
		data, err := json.Marshal(env)
		if err != nil {
			h.log.Warn("realtime marshal failed", zap.Error(err))
			return true
		}
		c.SSEvent(env.Channel, string(data))
		return true
	})
}

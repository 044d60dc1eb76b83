package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const prefix = "realtime:"

// Envelope: то, что уходит подписчикам (SSE, вебсокеты шлюза).
type Envelope struct {
	Channel      string          `json:"channel"`
	TargetUserID *uuid.UUID      `json:"target_user_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	SentAt       time.Time       `json:"sent_at"`
}

// BroadcastTopic: redis канал широковещательных сообщений.
func BroadcastTopic(channel string) string { return prefix + channel }

// UserTopic: персональный redis канал пользователя.
func UserTopic(userID uuid.UUID) string { return fmt.Sprintf("%suser:%s", prefix, userID) }

type Hub struct {
	rdb *redis.Client
	log *zap.Logger
	now func() time.Time
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{rdb: rdb, log: log.Named("realtime"), now: time.Now}
}

// EmitRealtimeEvent публикует сообщение пользователю или всем подписчикам канала, если target == nil.
func (h *Hub) EmitRealtimeEvent(ctx context.Context, channel string, payload any, target *uuid.UUID) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal realtime payload: %w", err)
	}
	data, err := json.Marshal(Envelope{Channel: channel, TargetUserID: target, Payload: raw, SentAt: h.now().UTC()})
	if err != nil {
		return err
	}

	topic := BroadcastTopic(channel)
	if target != nil {
		topic = UserTopic(*target)
	}
	receivers, err := h.rdb.Publish(ctx, topic, data).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	h.log.Debug("realtime event published",
		zap.String("topic", topic),
		zap.String("channel", channel),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Subscribe слушает персональный канал пользователя и перечисленные широковещательные каналы.
// Канал закрывается после отмены ctx.
func (h *Hub) Subscribe(ctx context.Context, userID uuid.UUID, broadcast ...string) (<-chan Envelope, error) {
	topics := make([]string, 0, len(broadcast)+1)
	topics = append(topics, UserTopic(userID))
	for _, ch := range broadcast {
		topics = append(topics, BroadcastTopic(ch))
	}

	sub := h.rdb.Subscribe(ctx, topics...)
	// ждём подтверждения, иначе первые сообщения могут потеряться
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					h.log.Warn("bad realtime message", zap.String("topic", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

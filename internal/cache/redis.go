package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderhub/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatch = 100

type RedisClient struct {
	client   *redis.Client
	log      *zap.Logger
	orderTTL time.Duration
}

func NewRedisClient(addr, password string, db int, orderTTL time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return NewFromClient(rdb, orderTTL, log), nil
}

func NewFromClient(rdb *redis.Client, orderTTL time.Duration, log *zap.Logger) *RedisClient {
	if orderTTL <= 0 {
		orderTTL = time.Minute
	}
	return &RedisClient{client: rdb, log: log, orderTTL: orderTTL}
}

func (r *RedisClient) Client() *redis.Client { return r.client }

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func orderKey(id uuid.UUID) string { return fmt.Sprintf("order:%s", id) }

// Кэш заказов
func (r *RedisClient) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	data, err := r.client.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := json.Unmarshal(data, &o); err != nil {
		// битая запись — удаляем и считаем промахом
		_ = r.client.Del(ctx, orderKey(id)).Err()
		return nil, nil
	}
	return &o, nil
}

func (r *RedisClient) SetOrder(ctx context.Context, o *models.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, orderKey(o.ID), data, r.orderTTL).Err()
}

// InvalidateOrderCache удаляет заказ и списки заказов пользователя.
func (r *RedisClient) InvalidateOrderCache(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error {
	if err := r.client.Del(ctx, orderKey(orderID)).Err(); err != nil {
		return err
	}
	if userID == nil {
		return nil
	}
	_, err := r.deleteByPattern(ctx, fmt.Sprintf("user:%s:orders*", *userID))
	return err
}

// InvalidateRelatedCaches удаляет все ключи "<kind>:<id>*" и явные "<kind>:<id>:<extra>".
func (r *RedisClient) InvalidateRelatedCaches(ctx context.Context, kind string, id uuid.UUID, extra ...string) error {
	prefix := fmt.Sprintf("%s:%s", kind, id)
	n, err := r.deleteByPattern(ctx, prefix+"*")
	if err != nil {
		return err
	}
	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for _, e := range extra {
			keys = append(keys, prefix+":"+e)
		}
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	r.log.Debug("cache invalidated", zap.String("prefix", prefix), zap.Int("keys", n))
	return nil
}

func (r *RedisClient) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Общий кэш
func (r *RedisClient) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

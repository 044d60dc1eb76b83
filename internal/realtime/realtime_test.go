package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"orderhub/internal/realtime"
	"orderhub/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan realtime.Envelope) realtime.Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		require.True(t, ok, "channel closed")
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("no realtime message")
	}
	return realtime.Envelope{}
}

func TestHub_TargetedAndBroadcast(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	hub := realtime.NewHub(rdb, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := uuid.New()
	ch, err := hub.Subscribe(ctx, user, "products:out_of_stock")
	require.NoError(t, err)

	orderID := uuid.New()
	require.NoError(t, hub.EmitRealtimeEvent(ctx, "orders:status", map[string]any{"order_id": orderID, "status": "ORDER_STATUS_SHIPPED"}, &user))

	env := receive(t, ch)
	assert.Equal(t, "orders:status", env.Channel)
	require.NotNil(t, env.TargetUserID)
	assert.Equal(t, user, *env.TargetUserID)
	var body map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &body))
	assert.Equal(t, orderID.String(), body["order_id"])

	// чужой пользователь ничего не должен получить
	require.NoError(t, hub.EmitRealtimeEvent(ctx, "orders:status", "x", ptr(uuid.New())))
	require.NoError(t, hub.EmitRealtimeEvent(ctx, "products:out_of_stock", map[string]string{"product_id": "p1"}, nil))

	env = receive(t, ch)
	assert.Equal(t, "products:out_of_stock", env.Channel)
	assert.Nil(t, env.TargetUserID)
}

func TestHub_SubscribeClosesOnCancel(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	hub := realtime.NewHub(rdb, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestHub_UnmarshalablePayload(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	hub := realtime.NewHub(rdb, zap.NewNop())
	err := hub.EmitRealtimeEvent(context.Background(), "orders:status", make(chan int), nil)
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }

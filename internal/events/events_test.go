package events_test

import (
	"context"
	"testing"

	"orderhub/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesTypeAndDefaultPriority(t *testing.T) {
	cases := []struct {
		payload events.Payload
		typ     events.Type
		prio    events.Priority
	}{
		{events.OrderCreatedPayload{}, events.OrderCreated, events.PriorityHigh},
		{events.PaymentSucceededPayload{}, events.OrderPaymentSucceeded, events.PriorityCritical},
		{events.PaymentFailedPayload{}, events.OrderPaymentFailed, events.PriorityCritical},
		{events.OrderUpdatedPayload{}, events.OrderUpdated, events.PriorityNormal},
		{events.StockChangedPayload{}, events.ProductStockChanged, events.PriorityNormal},
		{events.WishlistItemRemovedPayload{}, events.WishlistItemRemoved, events.PriorityNormal},
	}
	for _, tc := range cases {
		ev := events.New(tc.payload)
		assert.Equal(t, tc.typ, ev.Type)
		assert.Equal(t, tc.prio, ev.Priority, "type %s", tc.typ)
		assert.Equal(t, events.SchemaVersion, ev.Version)
		assert.False(t, ev.Metadata.Timestamp.IsZero())
	}
}

func TestNew_Options(t *testing.T) {
	uid := uuid.New()
	ctx := events.ContextWithRequestID(context.Background(), "req-42")

	ev := events.New(events.CartClearedPayload{UserID: uid},
		events.WithPriority(events.PriorityLow),
		events.WithUserID(uid),
		events.WithSource("checkout"),
		events.WithSessionID("sess-1"),
		events.FromContext(ctx),
	)

	assert.Equal(t, events.PriorityLow, ev.Priority)
	require.NotNil(t, ev.Metadata.UserID)
	assert.Equal(t, uid, *ev.Metadata.UserID)
	assert.Equal(t, "checkout", ev.Metadata.Source)
	assert.Equal(t, "sess-1", ev.Metadata.SessionID)
	assert.Equal(t, "req-42", ev.Metadata.RequestID)
}

func TestWithUserID_NilIgnored(t *testing.T) {
	ev := events.New(events.UserUpdatedPayload{}, events.WithUserID(uuid.Nil))
	assert.Nil(t, ev.Metadata.UserID)
}

func TestTypeValid(t *testing.T) {
	for _, typ := range events.AllTypes() {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, events.Type("order.exploded").Valid())
	assert.Len(t, events.AllTypes(), 16)
}

func TestPriority_ParseAndOrder(t *testing.T) {
	for _, p := range []events.Priority{events.PriorityLow, events.PriorityNormal, events.PriorityHigh, events.PriorityCritical} {
		parsed, err := events.ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	_, err := events.ParsePriority("urgent")
	assert.Error(t, err)

	assert.True(t, events.PriorityCritical > events.PriorityHigh)
	assert.True(t, events.PriorityHigh > events.PriorityNormal)
	assert.True(t, events.PriorityNormal > events.PriorityLow)
}

package producer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"orderhub/internal/emitters"
	"orderhub/internal/models"
	"orderhub/internal/producer"
	"orderhub/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ service.Notifier       = (*producer.Notifier)(nil)
	_ emitters.Mailer        = (*producer.Notifier)(nil)
	_ emitters.SearchIndexer = (*producer.SearchIndexer)(nil)
)

type MockWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message

	WriteFunc func(msgs ...kafka.Message) error
	closed    bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.WriteFunc != nil {
		if err := m.WriteFunc(msgs...); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *MockWriter) Close() error { m.closed = true; return nil }

func (m *MockWriter) emails(t *testing.T) []producer.EmailMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]producer.EmailMessage, 0, len(m.msgs))
	for _, msg := range m.msgs {
		var em producer.EmailMessage
		require.NoError(t, json.Unmarshal(msg.Value, &em))
		out = append(out, em)
	}
	return out
}

type MockUsers struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func usersWith(list ...*models.User) *MockUsers {
	return &MockUsers{GetByIDFunc: func(_ context.Context, id uuid.UUID) (*models.User, error) {
		for _, u := range list {
			if u.ID == id {
				return u, nil
			}
		}
		return nil, nil
	}}
}

func TestNotifier_OrderConfirmation(t *testing.T) {
	w := &MockWriter{}
	customer := &models.User{ID: uuid.New(), Email: "buyer@example.com", Name: "Ира"}
	n := producer.NewNotifier(producer.NewEmailProducerWithWriter(w, zap.NewNop()), usersWith(customer), zap.NewNop())

	o := &models.Order{
		ID:               uuid.New(),
		CustomerID:       customer.ID,
		SubtotalCents:    2000,
		DiscountCents:    240,
		TotalAmountCents: 1760,
		CurrencyCode:     "RUB",
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1000, LineTotalCents: 2000, CurrencyCode: "RUB"},
		},
	}
	require.NoError(t, n.SendOrderConfirmation(context.Background(), o))

	got := w.emails(t)
	require.Len(t, got, 1)
	assert.Equal(t, "buyer@example.com", got[0].To)
	assert.Equal(t, producer.TemplateOrderConfirmation, got[0].Template)
	assert.Equal(t, "17.60 RUB", got[0].Data["total"])
	assert.Equal(t, "2.40 RUB", got[0].Data["discount"])
	assert.Equal(t, "Ира", got[0].Data["name"])
	assert.Equal(t, o.ID.String(), string(w.msgs[0].Key))
}

func TestNotifier_UnknownRecipient(t *testing.T) {
	w := &MockWriter{}
	n := producer.NewNotifier(producer.NewEmailProducerWithWriter(w, zap.NewNop()), usersWith(), zap.NewNop())

	err := n.SendOrderStatusEmail(context.Background(), uuid.New(), uuid.New(), string(models.OrderStatusCancelled))
	assert.ErrorIs(t, err, producer.ErrRecipientNotFound)
	err = n.SendNewOrderEmailToSeller(context.Background(), &models.Order{ID: uuid.New()}, "")
	assert.ErrorIs(t, err, producer.ErrRecipientNotFound)
	assert.Empty(t, w.msgs)
}

func TestNotifier_LookupError(t *testing.T) {
	boom := errors.New("db down")
	users := &MockUsers{GetByIDFunc: func(context.Context, uuid.UUID) (*models.User, error) { return nil, boom }}
	n := producer.NewNotifier(producer.NewEmailProducerWithWriter(&MockWriter{}, zap.NewNop()), users, zap.NewNop())

	err := n.SendPaymentFailedEmail(context.Background(), uuid.New(), uuid.New(), 1760, "RUB")
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_PaymentFailedAndWelcome(t *testing.T) {
	w := &MockWriter{}
	customer := &models.User{ID: uuid.New(), Email: "c@example.com", Name: "C"}
	n := producer.NewNotifier(producer.NewEmailProducerWithWriter(w, zap.NewNop()), usersWith(customer), zap.NewNop())

	require.NoError(t, n.SendPaymentFailedEmail(context.Background(), customer.ID, uuid.New(), 105, "USD"))
	require.NoError(t, n.SendWelcomeEmail(context.Background(), customer.ID, "new@example.com", "New"))

	got := w.emails(t)
	require.Len(t, got, 2)
	assert.Equal(t, "1.05 USD", got[0].Data["amount"])
	assert.Equal(t, producer.TemplateWelcome, got[1].Template)
	assert.Equal(t, "new@example.com", got[1].To)
}

func TestSearchIndexer_Messages(t *testing.T) {
	w := &MockWriter{}
	idx := producer.NewSearchIndexerWithWriter(w, zap.NewNop())
	id := uuid.New()

	require.NoError(t, idx.IndexProduct(context.Background(), id))
	require.NoError(t, idx.RemoveProduct(context.Background(), id))

	require.Len(t, w.msgs, 2)
	var first, second producer.IndexMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &first))
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &second))
	assert.Equal(t, producer.IndexActionUpsert, first.Action)
	assert.Equal(t, producer.IndexActionRemove, second.Action)
	assert.Equal(t, id, second.ProductID)
	assert.Equal(t, id.String(), string(w.msgs[1].Key))

	require.NoError(t, idx.Close())
	assert.True(t, w.closed)
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	calls := 0
	w := &MockWriter{WriteFunc: func(...kafka.Message) error {
		calls++
		return errors.New("broker unavailable")
	}}
	idx := producer.NewSearchIndexerWithWriter(w, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.Error(t, idx.IndexProduct(context.Background(), uuid.New()))
	}
	err := idx.IndexProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, calls, "open breaker must not touch kafka")
}

package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	IndexActionUpsert = "index"
	IndexActionRemove = "remove"
)

// IndexMessage: задание для воркера поискового индекса.
type IndexMessage struct {
	Action    string    `json:"action"`
	ProductID uuid.UUID `json:"product_id"`
	At        time.Time `json:"at"`
}

type SearchIndexer struct {
	writer MessageWriter
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
	now    func() time.Time
}

func NewSearchIndexer(brokers []string, topic string, log *zap.Logger) *SearchIndexer {
	return NewSearchIndexerWithWriter(newWriter(brokers, topic), log)
}

func NewSearchIndexerWithWriter(w MessageWriter, log *zap.Logger) *SearchIndexer {
	return &SearchIndexer{writer: w, cb: newBreaker("kafka-search-index", log), log: log, now: time.Now}
}

func (s *SearchIndexer) IndexProduct(ctx context.Context, productID uuid.UUID) error {
	return s.send(ctx, IndexActionUpsert, productID)
}

func (s *SearchIndexer) RemoveProduct(ctx context.Context, productID uuid.UUID) error {
	return s.send(ctx, IndexActionRemove, productID)
}

// ключ = id товара, чтобы операции по одному товару шли в одну партицию по порядку
func (s *SearchIndexer) send(ctx context.Context, action string, productID uuid.UUID) error {
	value, err := json.Marshal(IndexMessage{Action: action, ProductID: productID, At: s.now().UTC()})
	if err != nil {
		return err
	}
	_, err = executeWithBreaker(s.cb, func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return struct{}{}, s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(productID.String()), Value: value})
	})
	if err != nil {
		return err
	}
	s.log.Debug("search index job queued", zap.String("action", action), zap.String("product_id", productID.String()))
	return nil
}

func (s *SearchIndexer) Close() error {
	return s.writer.Close()
}

package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// MessageWriter: часть kafka.Writer, которой пользуются продюсеры.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

type EmailProducer struct {
	writer MessageWriter
	cb     *gobreaker.CircuitBreaker
}

func NewEmailProducer(brokers []string, topic string, log *zap.Logger) *EmailProducer {
	return NewEmailProducerWithWriter(newWriter(brokers, topic), log)
}

func NewEmailProducerWithWriter(w MessageWriter, log *zap.Logger) *EmailProducer {
	return &EmailProducer{writer: w, cb: newBreaker("kafka-email", log)}
}

func (p *EmailProducer) SendEmail(ctx context.Context, key string, msg EmailMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = executeWithBreaker(p.cb, func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: value,
		})
	})
	return err
}

func (p *EmailProducer) Close() error {
	return p.writer.Close()
}

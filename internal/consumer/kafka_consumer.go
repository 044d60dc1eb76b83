package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"orderhub/internal/producer"
	"orderhub/internal/sender"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type EmailSender interface {
	SendEmail(n sender.EmailNotification) error
}

type KafkaEmailConsumer struct {
	reader      MessageReader
	emailSender EmailSender
	log         *zap.Logger
	backoff     time.Duration
}

func NewKafkaEmailConsumer(brokers []string, groupID, topic string, emailSender EmailSender, log *zap.Logger) *KafkaEmailConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return NewWithReader(r, emailSender, log)
}

func NewWithReader(r MessageReader, emailSender EmailSender, log *zap.Logger) *KafkaEmailConsumer {
	return &KafkaEmailConsumer{reader: r, emailSender: emailSender, log: log, backoff: time.Second}
}

func (c *KafkaEmailConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		c.handle(m)
	}
}

func (c *KafkaEmailConsumer) handle(m kafka.Message) {
	var em producer.EmailMessage
	if err := json.Unmarshal(m.Value, &em); err != nil {
		c.log.Error("unmarshal email message", zap.ByteString("value", m.Value), zap.Error(err))
		return
	}
	if em.To == "" || em.Template == "" {
		c.log.Warn("invalid email message", zap.Any("msg", em))
		return
	}
	if err := c.emailSender.SendEmail(sender.EmailNotification{To: em.To, Subject: em.Subject, Template: em.Template, Data: em.Data}); err != nil {
		c.log.Error("send email failed", zap.String("to", em.To), zap.String("template", em.Template), zap.Error(err))
		return
	}
	c.log.Info("email sent", zap.String("to", em.To), zap.String("template", em.Template))
}

func (c *KafkaEmailConsumer) Close() error { return c.reader.Close() }

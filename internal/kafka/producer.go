package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafkago.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: w, topic: topic}
}

// Publish writes payload as JSON. Messages with the same key land on the
// same partition and keep their order.
func (p *Producer) Publish(ctx context.Context, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error { return p.writer.Close() }

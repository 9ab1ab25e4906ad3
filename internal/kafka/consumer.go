package kafka

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Consumer struct {
	reader *kafkago.Reader
	log    *zap.SugaredLogger
}

// NewConsumer reads topic in groupID starting at the newest offset.
func NewConsumer(brokers []string, topic, groupID string, log *zap.SugaredLogger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.LastOffset,
		MaxWait:     250 * time.Millisecond,
	})
	return &Consumer{reader: r, log: log}
}

// Run calls handle for every message until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle func(value []byte)) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Errorw("kafka read", "topic", c.reader.Config().Topic, "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		handle(m.Value)
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }

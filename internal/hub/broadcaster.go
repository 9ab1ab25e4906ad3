package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fathima-sithara/realtime-service/internal/kafka"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broadcaster delivers a frame to every member of a room, wherever the
// member is connected.
type Broadcaster interface {
	Broadcast(ctx context.Context, room string, msg []byte, exceptID string) error
}

// Relay is the frame that crosses instances.
type Relay struct {
	Origin   string          `json:"origin"`
	Room     string          `json:"room"`
	ExceptID string          `json:"except_id,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// deliver emits a relay from another instance locally; own frames were
// already delivered before publishing.
func deliver(h *Hub, origin string, raw []byte, log *zap.SugaredLogger) {
	var r Relay
	if err := json.Unmarshal(raw, &r); err != nil {
		log.Warnw("bad relay frame", "err", err)
		return
	}
	if r.Origin == origin {
		return
	}
	h.Emit(r.Room, r.Data, r.ExceptID)
}

// RedisBroadcaster fans out through a Redis pub/sub channel shared by all
// instances.
type RedisBroadcaster struct {
	hub     *Hub
	rdb     redis.UniversalClient
	channel string
	origin  string
	log     *zap.SugaredLogger
}

func NewRedisBroadcaster(h *Hub, rdb redis.UniversalClient, prefix, origin string, log *zap.SugaredLogger) *RedisBroadcaster {
	return &RedisBroadcaster{hub: h, rdb: rdb, channel: prefix + ":global", origin: origin, log: log}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, room string, msg []byte, exceptID string) error {
	b.hub.Emit(room, msg, exceptID)
	raw, err := json.Marshal(Relay{Origin: b.origin, Room: room, ExceptID: exceptID, Data: msg})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Run subscribes until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			deliver(b.hub, b.origin, []byte(msg.Payload), b.log)
		}
	}
}

// KafkaBroadcaster fans out through a Kafka topic. Every instance reads
// the topic with its own consumer group.
type KafkaBroadcaster struct {
	hub      *Hub
	producer *kafka.Producer
	consumer *kafka.Consumer
	origin   string
	log      *zap.SugaredLogger
}

func NewKafkaBroadcaster(h *Hub, producer *kafka.Producer, consumer *kafka.Consumer, origin string, log *zap.SugaredLogger) *KafkaBroadcaster {
	return &KafkaBroadcaster{hub: h, producer: producer, consumer: consumer, origin: origin, log: log}
}

func (b *KafkaBroadcaster) Broadcast(ctx context.Context, room string, msg []byte, exceptID string) error {
	b.hub.Emit(room, msg, exceptID)
	return b.producer.Publish(ctx, room, Relay{Origin: b.origin, Room: room, ExceptID: exceptID, Data: msg})
}

func (b *KafkaBroadcaster) Run(ctx context.Context) error {
	return b.consumer.Run(ctx, func(value []byte) {
		deliver(b.hub, b.origin, value, b.log)
	})
}

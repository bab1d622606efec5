package events

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers one serialized envelope to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, value []byte) error
	Close() error
}

// KafkaPublisher writes synchronously so the relay only marks an event sent
// once the brokers acknowledged it.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, eventType string, value []byte) error {
	err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	})
	return errors.Wrapf(err, "kafka publish %s", topic)
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NoopPublisher is used when no brokers are configured. Events are logged and
// considered delivered.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, topic, key, eventType string, _ []byte) error {
	log.Printf("[EVENTS] [DEBUG] noop publish %s to %s key=%s", eventType, topic, key)
	return nil
}

func (NoopPublisher) Close() error { return nil }

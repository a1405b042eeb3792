package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"roomly/internal/domain/shared/events"
)

// EventPublisher pushes reservation lifecycle events to Kafka in a CloudEvents
// style envelope, keyed by aggregate so per-reservation ordering survives
// partitioning.
type EventPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
	source      string
}

func NewEventPublisher(brokers []string, topicPrefix, source string) (*EventPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &EventPublisher{producer: producer, topicPrefix: topicPrefix, source: source}, nil
}

type envelope struct {
	SpecVersion string    `json:"specversion"`
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Source      string    `json:"source"`
	Time        time.Time `json:"time"`
	Data        any       `json:"data"`
}

func (p *EventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(envelope{
		SpecVersion: "1.0",
		ID:          uuid.NewString(),
		Type:        event.EventName() + ".v1",
		Source:      p.source,
		Time:        event.OccurredAt(),
		Data:        event,
	})
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topicPrefix + "reservations",
		Key:   sarama.StringEncoder(event.AggregateID()),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

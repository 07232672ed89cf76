package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"trustgate/pkg/platform/audit"
	id "trustgate/pkg/domain"
)

// KafkaStore appends audit events to a Kafka topic, keyed by account ID so
// one account's trail stays ordered within a partition. ListByAccount is not
// served from the broker; a downstream consumer materializes the trail.
type KafkaStore struct {
	client *kgo.Client
	topic  string
}

func NewKafkaStore(brokers []string, topic string) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaStore{client: client, topic: topic}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AccountID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByAccount is unsupported on the broker-backed store.
func (s *KafkaStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return nil, fmt.Errorf("audit trail reads are served by the downstream consumer, not the broker")
}

func (s *KafkaStore) Close() {
	s.client.Close()
}

package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes alerts to a Kafka topic keyed by partner so the
// consumer sees one partner's alerts in order.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(a.PartnerID.String()),
		Value: payload,
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce alert: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}

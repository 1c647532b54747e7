package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces outbox records to a single topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher creates a franz-go client that waits for all in-sync
// replicas and keeps records for one key in order.
func NewKafkaPublisher(brokers []string, topic string, opts ...kgo.Opt) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	resp, err := kadm.NewClient(p.client).CreateTopics(ctx, partitions, replicas, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces records synchronously and fails on the first broker error.
func (p *KafkaPublisher) Publish(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	krs := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		krs = append(krs, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(r.AggregateID),
			Value: r.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(r.EventType)},
				{Key: "aggregate_type", Value: []byte(r.AggregateType)},
				{Key: "outbox_id", Value: []byte(r.ID.String())},
			},
			Timestamp: r.CreatedAt,
		})
	}
	if err := p.client.ProduceSync(ctx, krs...).FirstErr(); err != nil {
		return fmt.Errorf("produce outbox batch: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}

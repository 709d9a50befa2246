package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ruteri/issuance-factory/interfaces"
)

// KafkaDispatcher publishes messages as JSON records. Records are keyed by
// correlation token or target registry so that messages for one registry stay
// ordered within a partition.
type KafkaDispatcher struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

// NewKafkaDispatcher connects a producer to brokers.
func NewKafkaDispatcher(brokers []string, topic string, log *slog.Logger) (*KafkaDispatcher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &KafkaDispatcher{client: client, topic: topic, log: log}, nil
}

func (d *KafkaDispatcher) Name() string {
	return "kafka-" + d.topic
}

// Dispatch produces one record and waits for the broker acknowledgement.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg interfaces.Message) error {
	record, err := buildRecord(msg)
	if err != nil {
		return err
	}

	if err := d.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", msg.Kind, err)
	}

	d.log.Debug("Message published", "kind", msg.Kind, "topic", d.topic, "key", string(record.Key))
	return nil
}

// Close flushes and closes the producer.
func (d *KafkaDispatcher) Close() {
	d.client.Close()
}

func buildRecord(msg interfaces.Message) (*kgo.Record, error) {
	var key string
	switch msg.Kind {
	case interfaces.CreateRegistryMessage:
		if msg.CreateRegistry == nil {
			return nil, fmt.Errorf("%s message without payload", msg.Kind)
		}
		key = "correlation-" + strconv.FormatUint(msg.CreateRegistry.CorrelationToken, 10)
	case interfaces.CreateItemMessage:
		if msg.CreateItem == nil {
			return nil, fmt.Errorf("%s message without payload", msg.Kind)
		}
		key = "registry-" + msg.CreateItem.Registry.String()
	default:
		return nil, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind, err)
	}

	return &kgo.Record{
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	}, nil
}

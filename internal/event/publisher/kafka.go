// Package publisher streams accepted events to a Kafka firehose topic for
// downstream consumers (season archives, external dashboards). Publishing is
// fire-and-forget: the log write already succeeded, so a broker hiccup is
// logged and dropped, never surfaced to the caller.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"pitlog/internal/event"
)

type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the given brokers. The topic is created on first use
// via EnsureTopic; callers own Close.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// EnsureTopic creates the firehose topic when missing. Safe to call on every
// startup.
func (k *Kafka) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(k.client)

	resp, err := adm.CreateTopics(ctx, partitions, 1, nil, k.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Publish produces one event record asynchronously. The record key is the
// event ID so compacted consumers keep one row per event.
func (k *Kafka) Publish(ctx context.Context, e event.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		k.logger.Warn("firehose marshal failed", "event_id", e.ID, "error", err)
		return
	}

	record := &kgo.Record{
		Key:   []byte(e.ID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Warn("firehose publish failed", "event_id", e.ID, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}

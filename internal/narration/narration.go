// Package narration hands decision explanations to whatever reads them out.
// Sinks are fire-and-forget: a failed hand-off is logged and never fails the
// decision that produced it.
package narration

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	id "trustbank/pkg/domain"
)

// Narration is one explanation, passed on verbatim.
type Narration struct {
	DecisionID id.DecisionID `json:"decision_id"`
	UserID     id.UserID     `json:"user_id"`
	Kind       string        `json:"kind"`
	Text       string        `json:"text"`
}

// Sink accepts narrations. Narrate must not block on delivery.
type Sink interface {
	Narrate(ctx context.Context, n Narration) error
}

// LogSink writes narrations to the logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Narrate(ctx context.Context, n Narration) error {
	s.logger.InfoContext(ctx, "decision narration",
		"decision_id", n.DecisionID,
		"user_id", n.UserID,
		"kind", n.Kind,
		"text", n.Text,
	)
	return nil
}

// Producer is the slice of *kgo.Client the Kafka sink needs.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaSink produces narrations to a topic, keyed by user so one customer's
// narrations stay ordered on a partition.
type KafkaSink struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaSink(producer Producer, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, logger: logger}
}

// Narrate enqueues the record and returns. Delivery failures surface only in
// the log.
func (s *KafkaSink) Narrate(ctx context.Context, n Narration) error {
	value, err := json.Marshal(n)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(n.UserID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	// Delivery outlives the request that triggered it.
	s.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.WarnContext(ctx, "narration delivery failed",
				"decision_id", n.DecisionID,
				"topic", r.Topic,
				"error", err,
			)
		}
	})
	return nil
}

package publish

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/lumenworks/frameio-relay/internal/event"
	"github.com/lumenworks/frameio-relay/internal/kafkax"
)

// KafkaPublisher writes validated events to a single Kafka topic. The writer
// is process-wide, constructed once at startup, and reused across requests;
// from the pipeline's point of view it is stateless.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  kafkax.SplitBrokers(brokers),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish sends the untouched event body keyed by resource id. The event's
// attributes and a server-assigned message id ride as headers so subscribers
// can filter without deserializing the body. Kafka assigns no message id of
// its own, so the stamped id is what callers get back for traceability.
func (p *KafkaPublisher) Publish(ctx context.Context, ev *event.Event) (string, error) {
	messageID := uuid.NewString()
	headers := []kafka.Header{{Key: "message_id", Value: []byte(messageID)}}
	for key, value := range ev.Attributes() {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	msg := kafka.Message{
		Key:     []byte(ev.Resource.ID),
		Value:   ev.Raw,
		Headers: headers,
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", &Error{Err: err}
	}
	p.logger.Info("event published", "message_id", messageID, "event_type", ev.Type)
	return messageID, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

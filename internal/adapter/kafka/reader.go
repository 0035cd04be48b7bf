package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/station-ridership/internal/config"
	"github.com/couchcryptid/station-ridership/internal/domain"
)

// Reader consumes dataset refresh notices from a Kafka topic.
// It implements pipeline.NoticeSource.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured refresh topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaRefreshTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Reader{reader: r, logger: logger}
}

// FetchNotice blocks until the next message arrives. The offset is committed
// through the notice's Commit callback once the notice has been applied.
func (r *Reader) FetchNotice(ctx context.Context) (domain.RefreshNotice, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RefreshNotice{}, err
	}
	notice := mapMessageToNotice(msg)
	notice.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	r.logger.Debug("refresh notice received", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	return notice, nil
}

// Close closes the underlying Kafka reader.
func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToNotice(msg kafkago.Message) domain.RefreshNotice {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RefreshNotice{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}

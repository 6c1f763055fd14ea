package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"gridwatch/internal/config"
	"gridwatch/internal/types"
)

// Ingestor is the batch ingestion entry point the consumer feeds.
type Ingestor interface {
	IngestBatch(ctx context.Context, rows []ReadingRow) (*BatchResult, error)
}

// messageFetcher abstracts the kafka.Reader fetch/commit loop for tests.
type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads JSON reading batches from a Kafka topic and feeds them to
// the ingestion service. Offsets are committed only after a batch has been
// ingested, so a crash mid-batch redelivers rather than drops.
type Consumer struct {
	reader  messageFetcher
	service Ingestor
	logger  *slog.Logger
}

// NewConsumer creates a consumer bound to the configured topic and group.
func NewConsumer(cfg config.IngestConfig, service Ingestor, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{
		reader:  reader,
		service: service,
		logger:  logger,
	}
}

// Run consumes until the context is cancelled. Malformed messages are logged,
// committed, and skipped; ingestion failures leave the offset uncommitted so
// the batch is redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var rows []ReadingRow
		if err := json.Unmarshal(msg.Value, &rows); err != nil {
			c.logger.Warn("skipping malformed reading batch",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			c.commit(ctx, msg)
			continue
		}

		result, err := c.service.IngestBatch(ctx, rows)
		if err != nil {
			// Validation failures never succeed on redelivery; skip them
			// like malformed JSON instead of refetching forever.
			if types.IsValidation(err) {
				c.logger.Warn("skipping invalid reading batch",
					"topic", msg.Topic,
					"offset", msg.Offset,
					"error", err,
				)
				c.commit(ctx, msg)
				continue
			}
			c.logger.Error("reading batch ingestion failed",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}

		c.commit(ctx, msg)
		c.logger.Info("reading batch consumed",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"processed", result.Processed,
			"saved", result.Saved,
		)
	}
}

// Close shuts the underlying reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("offset commit failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
	}
}

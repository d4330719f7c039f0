package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

const (
	defaultGroupID  = "sysyjudge-worker"
	defaultMaxBytes = 64 * 1024
)

// Config describes the requests topic a worker consumes.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

var _ ports.RunRequestSource = (*Consumer)(nil)

// Consumer turns messages on the requests topic into run requests. Every
// message is committed once decoded, including ones that are rejected, so a
// malformed request is never redelivered to the group.
type Consumer struct {
	reader messageReader
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewConsumer joins cfg.GroupID on cfg.Topic. Run requests are small, so the
// reader fetches little and waits briefly.
func NewConsumer(cfg Config) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = defaultGroupID
	}

	return newConsumer(kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    defaultMaxBytes,
		MaxWait:     time.Second,
	})), nil
}

func newConsumer(reader messageReader) *Consumer {
	return &Consumer{reader: reader}
}

// NextRequest blocks until the next run request arrives or ctx ends. A "done"
// message ends the stream with io.EOF. Messages that do not decode are
// reported with judge.ErrInvalidRequest.
func (c *Consumer) NextRequest(ctx context.Context) (judge.RunRequest, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return judge.RunRequest{}, err
	}

	req, decodeErr := decodeRequestMessage(msg)
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return judge.RunRequest{}, fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	if errors.Is(decodeErr, judge.ErrInvalidRequest) {
		return judge.RunRequest{}, fmt.Errorf("%w (partition %d, offset %d)", decodeErr, msg.Partition, msg.Offset)
	}
	return req, decodeErr
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

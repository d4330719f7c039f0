package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

// typeHeader carries the envelope type so consumers can filter without
// decoding the payload.
const typeHeader = "sysyjudge-type"

var _ ports.RunReportPublisher = (*Publisher)(nil)

// PublisherConfig configures the results topic.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// Publisher streams case verdicts and suite reports to the results topic.
// Case messages are keyed by fixture name and suite messages by id range, so
// every message about one fixture lands on the same partition.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher connects a Publisher to cfg.Topic.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	return newPublisher(&kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
	}), nil
}

func newPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// PublishCaseResult sends one case verdict.
func (p *Publisher) PublishCaseResult(ctx context.Context, result judge.CaseResult) error {
	now := p.clock()
	return p.publish(ctx, result.Case.Name(), makeCaseEnvelope(result, now), now)
}

// PublishSuiteReport sends the finished report.
func (p *Publisher) PublishSuiteReport(ctx context.Context, report *judge.SuiteReport) error {
	now := p.clock()
	key := fmt.Sprintf("suite:%d-%d", report.Low, report.High)
	return p.publish(ctx, key, makeSuiteEnvelope(report, now), now)
}

func (p *Publisher) publish(ctx context.Context, key string, envelope typedEnvelope, now time.Time) error {
	if p.writer == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", envelope.messageType(), err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:     []byte(key),
		Value:   payload,
		Time:    now,
		Headers: []kafkago.Header{{Key: typeHeader, Value: []byte(envelope.messageType())}},
	})
	if err != nil {
		return fmt.Errorf("write message %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) clock() time.Time {
	if p.now == nil {
		return time.Now().UTC()
	}
	return p.now().UTC()
}

// Close flushes and releases the writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"sysyjudge/internal/domain/judge"
)

func TestNewConsumerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewConsumer(Config{}); err == nil {
		t.Fatalf("expected error when brokers missing")
	}
	if _, err := NewConsumer(Config{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Fatalf("expected error when topic missing")
	}
}

func TestNewConsumerAppliesDefaults(t *testing.T) {
	t.Parallel()

	consumer, err := NewConsumer(Config{
		Brokers: []string{"localhost:9092"},
		Topic:   "sysyjudge-requests",
	})
	if err != nil {
		t.Fatalf("NewConsumer returned error: %v", err)
	}
	if err := consumer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestConsumerNextRequestParsesEnvelope(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{messages: []kafkago.Message{
		{Key: []byte("nightly"), Value: []byte(`{"type":"run","low":1,"high":10}`)},
		{Topic: "requests", Offset: 4, Value: []byte(`{"low":5,"high":5}`)},
		{Value: []byte(`{"id":"explicit","low":0,"high":2}`)},
	}}
	consumer := newConsumer(reader)

	want := []judge.RunRequest{
		{ID: "nightly", Low: 1, High: 10},
		{ID: "requests:4", Low: 5, High: 5},
		{ID: "explicit", Low: 0, High: 2},
	}
	for _, expected := range want {
		req, err := consumer.NextRequest(context.Background())
		if err != nil {
			t.Fatalf("NextRequest returned error: %v", err)
		}
		if req != expected {
			t.Fatalf("expected %+v, got %+v", expected, req)
		}
	}
}

func TestConsumerNextRequestValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		match   string
	}{
		{name: "missing range", payload: `{"type":"run","low":1}`, match: "missing range"},
		{name: "unknown type", payload: `{"type":"weird","low":1,"high":2}`, match: "unknown message type"},
		{name: "not json", payload: `run 1 10`, match: "decode message"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reader := &fakeReader{messages: []kafkago.Message{{Value: []byte(tc.payload)}}}
			consumer := newConsumer(reader)

			_, err := consumer.NextRequest(context.Background())
			if err == nil || !strings.Contains(err.Error(), tc.match) {
				t.Fatalf("expected error containing %q, got %v", tc.match, err)
			}
			if !errors.Is(err, judge.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestConsumerCommitsRejectedMessages(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{messages: []kafkago.Message{
		{Partition: 0, Offset: 11, Value: []byte(`{"type":"run"}`)},
		{Partition: 0, Offset: 12, Value: []byte(`{"type":"run","low":1,"high":2}`)},
	}}
	consumer := newConsumer(reader)

	_, err := consumer.NextRequest(context.Background())
	if !errors.Is(err, judge.ErrInvalidRequest) || !strings.Contains(err.Error(), "offset 11") {
		t.Fatalf("expected invalid request at offset 11, got %v", err)
	}
	req, err := consumer.NextRequest(context.Background())
	if err != nil {
		t.Fatalf("NextRequest returned error: %v", err)
	}
	if req.Low != 1 || req.High != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(reader.committed) != 2 || reader.committed[0] != 11 || reader.committed[1] != 12 {
		t.Fatalf("expected both offsets committed, got %v", reader.committed)
	}
}

func TestConsumerCommitFailureIsReturned(t *testing.T) {
	t.Parallel()

	commitErr := errors.New("rebalance in progress")
	reader := &fakeReader{
		messages:  []kafkago.Message{{Value: []byte(`{"low":1,"high":1}`)}},
		commitErr: commitErr,
	}

	_, err := newConsumer(reader).NextRequest(context.Background())
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if errors.Is(err, judge.ErrInvalidRequest) {
		t.Fatalf("commit failure must not be treated as a bad request")
	}
}

func TestConsumerNextRequestPassesRangeThrough(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{messages: []kafkago.Message{{Key: []byte("inverted"), Value: []byte(`{"low":9,"high":1}`)}}}
	consumer := newConsumer(reader)

	req, err := consumer.NextRequest(context.Background())
	if err != nil {
		t.Fatalf("NextRequest returned error: %v", err)
	}
	if req.Low != 9 || req.High != 1 {
		t.Fatalf("expected range to be passed through, got %+v", req)
	}
}

func TestConsumerNextRequestDoneMessage(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{messages: []kafkago.Message{{Value: []byte(`{"type":"done"}`)}}}
	consumer := newConsumer(reader)

	_, err := consumer.NextRequest(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF for done message, got %v", err)
	}
}

func TestConsumerNextRequestPropagatesReaderError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("broker down")
	consumer := newConsumer(&fakeReader{err: readErr})

	_, err := consumer.NextRequest(context.Background())
	if !errors.Is(err, readErr) {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestConsumerCloseProxiesUnderlyingReader(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	consumer := newConsumer(reader)

	if err := consumer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !reader.closed {
		t.Fatalf("expected reader to be closed")
	}
}

func TestPublisherValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewPublisher(PublisherConfig{}); err == nil {
		t.Fatalf("expected error when brokers missing")
	}
	if _, err := NewPublisher(PublisherConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Fatalf("expected error when topic missing")
	}
}

func TestNewPublisherValidConfig(t *testing.T) {
	t.Parallel()

	publisher, err := NewPublisher(PublisherConfig{Brokers: []string{"localhost:9092"}, Topic: "sysyjudge-results"})
	if err != nil {
		t.Fatalf("NewPublisher returned error: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestPublisherPublishesCaseResult(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	publisher := newPublisher(writer)

	result := judge.CaseResult{
		Case:     judge.TestCase{ID: 7},
		Status:   judge.StatusToolFailed,
		Err:      &judge.ToolError{Tool: judge.ToolCompiler, ExitCode: 2},
		Duration: 1500 * time.Millisecond,
	}
	if err := publisher.PublishCaseResult(context.Background(), result); err != nil {
		t.Fatalf("PublishCaseResult returned error: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	if string(writer.messages[0].Key) != "testfile7" {
		t.Fatalf("unexpected key %q", writer.messages[0].Key)
	}
	headers := writer.messages[0].Headers
	if len(headers) != 1 || headers[0].Key != typeHeader || string(headers[0].Value) != messageTypeCase {
		t.Fatalf("unexpected headers %+v", headers)
	}

	var envelope caseEnvelope
	if err := json.Unmarshal(writer.messages[0].Value, &envelope); err != nil {
		t.Fatalf("failed to unmarshal case envelope: %v", err)
	}
	if envelope.Type != messageTypeCase || envelope.ID != 7 || envelope.Name != "testfile7" {
		t.Fatalf("unexpected envelope identity %+v", envelope)
	}
	if envelope.Status != judge.StatusToolFailed || envelope.Passed {
		t.Fatalf("unexpected status %q passed=%v", envelope.Status, envelope.Passed)
	}
	if envelope.Error != "compiler: exit status 2" {
		t.Fatalf("expected propagated error, got %q", envelope.Error)
	}
	if envelope.DurationMs != 1500 {
		t.Fatalf("expected duration 1500ms, got %d", envelope.DurationMs)
	}
}

func TestPublisherPublishesSuiteReport(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	publisher := newPublisher(writer)

	report := judge.NewSuiteReport(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC), 1, 2)
	report.Record(judge.CaseResult{Case: judge.TestCase{ID: 1}, Status: judge.StatusAccepted})
	report.Record(judge.CaseResult{Case: judge.TestCase{ID: 2}, Status: judge.StatusWrongAnswer, MismatchLine: 1})
	report.Elapsed = 2 * time.Second
	report.Revision = "3f2a9c1"

	if err := publisher.PublishSuiteReport(context.Background(), report); err != nil {
		t.Fatalf("PublishSuiteReport returned error: %v", err)
	}

	if string(writer.messages[0].Key) != "suite:1-2" {
		t.Fatalf("unexpected key %q", writer.messages[0].Key)
	}

	var envelope suiteEnvelope
	if err := json.Unmarshal(writer.messages[0].Value, &envelope); err != nil {
		t.Fatalf("failed to unmarshal suite envelope: %v", err)
	}
	if envelope.Result != "Wrong Answer" || envelope.Passed {
		t.Fatalf("unexpected verdict %q passed=%v", envelope.Result, envelope.Passed)
	}
	if !envelope.Verdicts[1] || envelope.Verdicts[2] {
		t.Fatalf("unexpected verdicts %v", envelope.Verdicts)
	}
	if len(envelope.Cases) != 2 || envelope.Cases[1].MismatchLine != 1 {
		t.Fatalf("unexpected cases %+v", envelope.Cases)
	}
	if envelope.ElapsedMs != 2000 || envelope.Revision != "3f2a9c1" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}

	if err := publisher.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !writer.closed {
		t.Fatalf("expected writer to be closed")
	}
}

func TestPublisherCloseWithNilWriter(t *testing.T) {
	t.Parallel()

	publisher := &Publisher{}
	if err := publisher.Close(); err != nil {
		t.Fatalf("Close should succeed when writer nil, got %v", err)
	}
}

func TestPublisherPublishErrors(t *testing.T) {
	t.Parallel()

	t.Run("writer nil", func(t *testing.T) {
		publisher := &Publisher{}
		err := publisher.PublishCaseResult(context.Background(), judge.CaseResult{})
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("expected not initialized error, got %v", err)
		}
	})

	t.Run("writer failure", func(t *testing.T) {
		publisher := newPublisher(&fakeWriter{err: errors.New("boom")})
		err := publisher.PublishSuiteReport(context.Background(), judge.NewSuiteReport(time.Now(), 1, 1))
		if err == nil || !strings.Contains(err.Error(), "write message") {
			t.Fatalf("expected write failure, got %v", err)
		}
	})
}

type fakeReader struct {
	messages  []kafkago.Message
	err       error
	commitErr error
	committed []int64
	index     int
	closed    bool
}

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if r.index < len(r.messages) {
		msg := r.messages[r.index]
		r.index++
		return msg, nil
	}
	if r.err != nil {
		return kafkago.Message{}, r.err
	}
	return kafkago.Message{}, io.EOF
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

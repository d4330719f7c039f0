package kafka

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"sysyjudge/internal/domain/judge"
)

const (
	messageTypeRun  = "run"
	messageTypeDone = "done"

	messageTypeCase  = "case"
	messageTypeSuite = "suite"
)

type requestEnvelope struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Low  *int   `json:"low"`
	High *int   `json:"high"`
}

type caseEnvelope struct {
	Type         string       `json:"type"`
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Status       judge.Status `json:"status"`
	Passed       bool         `json:"passed"`
	DurationMs   int64        `json:"duration_ms"`
	MismatchLine int          `json:"mismatch_line,omitempty"`
	Error        string       `json:"error,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

type suiteEnvelope struct {
	Type        string         `json:"type"`
	StartedAt   time.Time      `json:"started_at"`
	Low         int            `json:"low"`
	High        int            `json:"high"`
	Result      string         `json:"result"`
	Passed      bool           `json:"passed"`
	Verdicts    map[int]bool   `json:"verdicts"`
	Cases       []caseEnvelope `json:"cases,omitempty"`
	ElapsedMs   int64          `json:"elapsed_ms"`
	Revision    string         `json:"revision,omitempty"`
	Interrupted bool           `json:"interrupted,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

func decodeRequestMessage(msg kafkago.Message) (judge.RunRequest, error) {
	var envelope requestEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return judge.RunRequest{}, fmt.Errorf("%w: decode message: %w", judge.ErrInvalidRequest, err)
	}

	msgType := envelope.Type
	if msgType == "" {
		msgType = messageTypeRun
	}

	switch msgType {
	case messageTypeRun:
		return envelope.toRequest(msg)
	case messageTypeDone:
		return judge.RunRequest{}, io.EOF
	default:
		return judge.RunRequest{}, fmt.Errorf("%w: unknown message type %q", judge.ErrInvalidRequest, msgType)
	}
}

func (e requestEnvelope) toRequest(msg kafkago.Message) (judge.RunRequest, error) {
	if e.Low == nil || e.High == nil {
		return judge.RunRequest{}, fmt.Errorf("%w: run message missing range", judge.ErrInvalidRequest)
	}

	requestID := e.ID
	if requestID == "" {
		requestID = string(msg.Key)
	}
	if requestID == "" {
		requestID = fmt.Sprintf("%s:%d", msg.Topic, msg.Offset)
	}

	return judge.RunRequest{
		ID:   requestID,
		Low:  *e.Low,
		High: *e.High,
	}, nil
}

// typedEnvelope is implemented by every outgoing message body.
type typedEnvelope interface {
	messageType() string
}

func (caseEnvelope) messageType() string  { return messageTypeCase }
func (suiteEnvelope) messageType() string { return messageTypeSuite }

func makeCaseEnvelope(result judge.CaseResult, now time.Time) caseEnvelope {
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	return caseEnvelope{
		Type:         messageTypeCase,
		ID:           result.Case.ID,
		Name:         result.Case.Name(),
		Status:       result.Status,
		Passed:       result.Passed(),
		DurationMs:   result.Duration.Milliseconds(),
		MismatchLine: result.MismatchLine,
		Error:        errMsg,
		Timestamp:    now,
	}
}

func makeSuiteEnvelope(report *judge.SuiteReport, now time.Time) suiteEnvelope {
	var cases []caseEnvelope
	if len(report.Results) > 0 {
		cases = make([]caseEnvelope, 0, len(report.Results))
		for _, result := range report.Results {
			cases = append(cases, makeCaseEnvelope(result, now))
		}
	}

	return suiteEnvelope{
		Type:        messageTypeSuite,
		StartedAt:   report.StartedAt,
		Low:         report.Low,
		High:        report.High,
		Result:      report.StatusLabel(),
		Passed:      report.Passed,
		Verdicts:    report.Verdicts,
		Cases:       cases,
		ElapsedMs:   report.Elapsed.Milliseconds(),
		Revision:    report.Revision,
		Interrupted: report.Interrupted,
		Timestamp:   now,
	}
}

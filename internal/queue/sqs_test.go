package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"mergington/internal/types"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSChannel_Submit(t *testing.T) {
	fake := &fakeSQS{}
	c := NewSQSChannel(fake, "https://sqs.us-east-1.amazonaws.com/123/notifications", testLogger{})

	req := types.NotificationRequest{
		ID:         "req-1",
		Category:   types.CategorySignupConfirmation,
		Recipients: []string{"michael@mergington.edu"},
		Subject:    "Confirmed: Chess Club Registration",
		Template:   "signup_confirmation",
		TraceID:    "trace-1",
	}
	if err := c.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("SendMessage calls = %d, want 1", len(fake.inputs))
	}
	input := fake.inputs[0]
	if *input.QueueUrl != "https://sqs.us-east-1.amazonaws.com/123/notifications" {
		t.Errorf("queue url = %s", *input.QueueUrl)
	}

	var decoded types.NotificationRequest
	if err := json.Unmarshal([]byte(*input.MessageBody), &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if decoded.ID != "req-1" || decoded.Category != types.CategorySignupConfirmation {
		t.Errorf("decoded = %+v", decoded)
	}

	if got := *input.MessageAttributes["category"].StringValue; got != string(types.CategorySignupConfirmation) {
		t.Errorf("category attribute = %s", got)
	}
	if got := *input.MessageAttributes["trace_id"].StringValue; got != "trace-1" {
		t.Errorf("trace_id attribute = %s", got)
	}
}

func TestSQSChannel_SubmitOmitsEmptyTraceID(t *testing.T) {
	fake := &fakeSQS{}
	c := NewSQSChannel(fake, "https://example.com/q", testLogger{})

	req := types.NotificationRequest{
		ID:         "req-3",
		Category:   types.CategoryAnnouncement,
		Recipients: []string{"michael@mergington.edu"},
	}
	if err := c.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// SQS rejects empty string attribute values.
	if _, ok := fake.inputs[0].MessageAttributes["trace_id"]; ok {
		t.Error("trace_id attribute must be absent without a trace ID")
	}
	if _, ok := fake.inputs[0].MessageAttributes["category"]; !ok {
		t.Error("category attribute missing")
	}
}

func TestSQSChannel_SubmitMapsSendError(t *testing.T) {
	fake := &fakeSQS{err: errors.New("throttled")}
	c := NewSQSChannel(fake, "https://example.com/q", testLogger{})

	err := c.Submit(context.Background(), types.NotificationRequest{ID: "req-2"})
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeInternalQueue {
		t.Errorf("err = %v, want %s", err, types.ErrCodeInternalQueue)
	}
}

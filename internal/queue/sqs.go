package queue

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"mergington/internal/types"
)

// SQSSender is the subset of the SQS API the channel uses. Satisfied by
// *sqs.Client and by test fakes.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSChannel publishes notification requests to an SQS queue for a
// separate worker process to consume.
type SQSChannel struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

var _ Channel = (*SQSChannel)(nil)

func NewSQSChannel(client SQSSender, queueURL string, logger types.Logger) *SQSChannel {
	return &SQSChannel{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Submit marshals the request and publishes it. Message attributes carry
// the category and trace ID so consumers can filter and correlate without
// parsing the body.
func (c *SQSChannel) Submit(ctx context.Context, req types.NotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"failed to marshal notification request",
			err,
		)
	}

	// SQS rejects empty string attribute values, so trace_id is only
	// attached when the request actually carries one.
	attrs := map[string]sqstypes.MessageAttributeValue{
		"category": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(req.Category)),
		},
	}
	if req.TraceID != "" {
		attrs["trace_id"] = sqstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(req.TraceID),
		}
	}

	_, err = c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(c.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"failed to publish notification request",
			err,
		)
	}

	c.logger.Info("notification published",
		"request_id", req.ID,
		"trace_id", req.TraceID,
		"category", string(req.Category),
	)
	return nil
}

// Close is a no-op; the SQS client holds no local state to drain.
func (c *SQSChannel) Close(ctx context.Context) error {
	return nil
}

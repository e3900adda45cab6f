// Package main is the entrypoint for the email worker Lambda function.
//
// The worker consumes notification requests from the SQS queue published by
// the activities API (QUEUE_MODE=sqs) and delivers each one through the same
// DeliveryWorker that backs the in-process queue. The Lambda SQS integration
// uses partial batch responses: records whose delivery failed for a retryable
// reason are returned in batchItemFailures so SQS redrives only those.
//
// With APP_ENV=local the binary reads a JSON SQS event from stdin instead of
// starting the Lambda runtime, which allows local testing without the RIE.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"mergington/internal/external"
	"mergington/internal/notify"
	"mergington/internal/notify/email"
	"mergington/internal/types"
)

// slogAdapter wraps *slog.Logger to satisfy types.Logger. slog's With returns
// *slog.Logger rather than the interface, so an adapter is needed.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

// Handler holds the dependencies for the email worker Lambda handler.
type Handler struct {
	worker *notify.DeliveryWorker
	logger types.Logger
}

// Handle processes an SQS event containing one or more notification requests.
// Each record is processed independently; a failure on one never blocks the
// rest of the batch.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if retry := h.processRecord(ctx, record); retry {
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processRecord delivers a single SQS record and reports whether the record
// should be redriven.
func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) bool {
	var req types.NotificationRequest
	if err := json.Unmarshal([]byte(record.Body), &req); err != nil {
		h.logger.Error("failed to unmarshal notification request",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		// Malformed body will never parse; ACK instead of redriving.
		return false
	}

	if req.TraceID != "" {
		ctx = types.WithRequestID(ctx, req.TraceID)
	}

	outcome := h.worker.Deliver(ctx, req)
	h.logger.Info("notification processed",
		"message_id", record.MessageId,
		"request_id", req.ID,
		"category", string(req.Category),
		"status", string(outcome.Status),
		"reason", outcome.Reason,
	)

	return shouldRedrive(outcome)
}

// shouldRedrive reports whether a failed outcome is worth retrying via SQS.
// Missing credentials and render errors are permanent until a deploy changes
// them, so redriving those would only churn the queue.
func shouldRedrive(outcome types.Outcome) bool {
	if outcome.Status != types.StatusFailed {
		return false
	}
	switch outcome.Reason {
	case types.ReasonNotConfigured, types.ReasonNoRecipients, notify.ReasonRenderFailed:
		return false
	}
	return true
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	typedLogger := &slogAdapter{logger: logger}

	logger.Info("email worker initializing")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	from := types.EmailIdentity{
		Address: envOr("MAIL_FROM_ADDRESS", "activities@mergington.edu"),
		Name:    envOr("MAIL_FROM_NAME", "Mergington High School Activities"),
	}
	namespace := envOr("METRIC_NAMESPACE", "MergingtonActivities")
	sendTimeout := 10 * time.Second
	if raw := os.Getenv("MAIL_SEND_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			sendTimeout = d
		}
	}

	var provider external.EmailProvider
	apiKey := os.Getenv("MAIL_API_KEY")
	switch {
	case os.Getenv("MAIL_PROVIDER") == "stub":
		provider = external.NewStubProvider(typedLogger)
	case apiKey == "":
		logger.Warn("MAIL_API_KEY not set, deliveries will fail as not configured")
		provider = external.DisabledProvider{}
	default:
		provider = external.NewSendGridClient(types.SecretString(apiKey), from, sendTimeout, typedLogger)
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		logger.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	metrics := notify.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), namespace, typedLogger)
	worker := notify.NewDeliveryWorker(renderer, provider, from, types.RealClock{}, typedLogger, metrics)

	handler := &Handler{worker: worker, logger: typedLogger}

	logger.Info("email worker initialized",
		"from_address", from.Address,
		"metric_namespace", namespace,
		"provider_configured", provider.Configured(),
	)

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/email-worker
	if os.Getenv("APP_ENV") == "local" {
		logger.Info("APP_ENV=local: reading SQS event from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("failed to read stdin", "error", err)
			os.Exit(1)
		}
		var sqsEvent events.SQSEvent
		if err := json.Unmarshal(payload, &sqsEvent); err != nil {
			logger.Error("failed to parse stdin as SQS event", "error", err)
			os.Exit(1)
		}
		response, err := handler.Handle(context.Background(), sqsEvent)
		if err != nil {
			logger.Error("handler execution failed", "error", err)
			os.Exit(1)
		}
		if len(response.BatchItemFailures) > 0 {
			respJSON, _ := json.MarshalIndent(response, "", "  ")
			fmt.Fprintln(os.Stderr, string(respJSON))
		}
		logger.Info("handler execution completed",
			"records_processed", len(sqsEvent.Records),
			"failures", len(response.BatchItemFailures),
		)
		return
	}

	lambda.Start(handler.Handle)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package notify

import (
	"context"

	"mergington/internal/external"
	"mergington/internal/notify/email"
	"mergington/internal/types"
)

// ReasonRenderFailed marks deliveries that failed because the template could
// not be rendered. The SQS consumer treats it as permanent.
const ReasonRenderFailed = "render failed"

// DeliveryWorker renders and sends a single notification request. It is the
// handler behind both the in-process queue and the SQS consumer.
type DeliveryWorker struct {
	renderer *email.Renderer
	provider external.EmailProvider
	from     types.EmailIdentity
	clock    types.Clock
	logger   types.Logger
	metrics  Metrics
}

func NewDeliveryWorker(
	renderer *email.Renderer,
	provider external.EmailProvider,
	from types.EmailIdentity,
	clock types.Clock,
	logger types.Logger,
	metrics Metrics,
) *DeliveryWorker {
	return &DeliveryWorker{
		renderer: renderer,
		provider: provider,
		from:     from,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Deliver processes one request end to end. It never panics and never
// returns an error: every failure mode becomes an Outcome so the queue can
// log and move on.
func (w *DeliveryWorker) Deliver(ctx context.Context, req types.NotificationRequest) types.Outcome {
	log := w.logger.With(
		"request_id", req.ID,
		"trace_id", req.TraceID,
		"category", string(req.Category),
	)

	if !req.EnqueuedAt.IsZero() {
		w.metrics.RecordQueueLag(ctx, w.clock.Now().Sub(req.EnqueuedAt))
	}

	if !w.provider.Configured() {
		log.Info("email service not configured, delivery skipped",
			"recipients", email.RedactEmails(req.Recipients),
			"subject", req.Subject,
		)
		w.metrics.RecordDelivery(ctx, req.Category, types.StatusFailed)
		return types.Failed(types.ReasonNotConfigured)
	}

	if len(req.Recipients) == 0 {
		log.Warn("delivery request has no recipients")
		w.metrics.RecordDelivery(ctx, req.Category, types.StatusFailed)
		return types.Failed(types.ReasonNoRecipients)
	}

	body, err := w.renderer.Render(req.Template, req.Subject, req.Context)
	if err != nil {
		log.Error("template render failed",
			"template", req.Template,
			"error", err.Error(),
		)
		w.metrics.RecordDelivery(ctx, req.Category, types.StatusFailed)
		return types.Failed(ReasonRenderFailed)
	}

	start := w.clock.Now()
	messageID, err := w.provider.Send(ctx, types.SendInput{
		To:          req.Recipients,
		Cc:          req.Cc,
		From:        w.from,
		Subject:     req.Subject,
		BodyHTML:    body,
		ReferenceID: req.ID,
	})
	if err != nil {
		log.Error("email delivery failed",
			"recipients", email.RedactEmails(req.Recipients),
			"subject", req.Subject,
			"error", err.Error(),
		)
		w.metrics.RecordDelivery(ctx, req.Category, types.StatusFailed)
		return types.Failed(err.Error())
	}

	w.metrics.RecordDelivery(ctx, req.Category, types.StatusSent)
	w.metrics.RecordLatency(ctx, req.Category, w.clock.Now().Sub(start))

	log.Info("email delivered",
		"message_id", messageID,
		"recipients", email.RedactEmails(req.Recipients),
		"cc", email.RedactEmail(req.Cc),
		"subject", req.Subject,
	)
	return types.Sent()
}

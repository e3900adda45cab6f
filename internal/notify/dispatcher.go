// Package notify contains the notification dispatcher, which decides who gets
// email and enqueues delivery work, and the delivery worker, which renders and
// sends it. Dispatch failures never propagate to the triggering operation: a
// signup succeeds even when its confirmation email cannot be queued.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mergington/internal/notify/email"
	"mergington/internal/prefs"
	"mergington/internal/queue"
	"mergington/internal/types"
)

// Template names registered with the renderer.
const (
	TemplateSignupConfirmation     = "signup_confirmation"
	TemplateUnregisterConfirmation = "unregister_confirmation"
	TemplateActivityChange         = "activity_change"
	TemplateNewActivity            = "new_activity"
	TemplateReminder               = "reminder"
	TemplateAttendance             = "attendance_notification"
	TemplateAnnouncement           = "announcement"
)

// Dispatcher evaluates preferences, resolves recipients, and submits
// notification requests to the delivery channel.
type Dispatcher struct {
	evaluator *prefs.Evaluator
	resolver  *prefs.Resolver
	channel   queue.Channel
	clock     types.Clock
	logger    types.Logger
	metrics   Metrics
	portalURL string
}

func NewDispatcher(
	evaluator *prefs.Evaluator,
	resolver *prefs.Resolver,
	channel queue.Channel,
	clock types.Clock,
	logger types.Logger,
	metrics Metrics,
	portalURL string,
) *Dispatcher {
	return &Dispatcher{
		evaluator: evaluator,
		resolver:  resolver,
		channel:   channel,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		portalURL: portalURL,
	}
}

// DispatchSignupConfirmation queues a confirmation email for a new signup,
// with the parent CC'd when the student's preferences say so. The display
// name is optional; templates fall back to a generic greeting without it.
// Suppression by preference returns Skipped; channel trouble returns Failed.
// Neither is an error for the caller.
func (d *Dispatcher) DispatchSignupConfirmation(ctx context.Context, studentEmail string, activity types.Activity, displayName string) types.Outcome {
	return d.dispatchIndividual(ctx, studentEmail, types.CategorySignupConfirmation,
		TemplateSignupConfirmation,
		fmt.Sprintf("Confirmed: %s Registration", activity.Name),
		d.personalContext(activity, displayName),
		true,
	)
}

// DispatchUnregisterConfirmation queues a confirmation email for an
// unregistration, with the same parent CC handling as signup.
func (d *Dispatcher) DispatchUnregisterConfirmation(ctx context.Context, studentEmail string, activity types.Activity, displayName string) types.Outcome {
	return d.dispatchIndividual(ctx, studentEmail, types.CategoryUnregisterConfirmation,
		TemplateUnregisterConfirmation,
		fmt.Sprintf("Unregistration Confirmed: %s", activity.Name),
		d.personalContext(activity, displayName),
		true,
	)
}

// DispatchReminder queues an upcoming-session reminder for one participant.
func (d *Dispatcher) DispatchReminder(ctx context.Context, studentEmail string, activity types.Activity, nextSession, displayName string) types.Outcome {
	tmplCtx := d.personalContext(activity, displayName)
	if nextSession != "" {
		tmplCtx["next_session"] = nextSession
	}
	return d.dispatchIndividual(ctx, studentEmail, types.CategoryReminders,
		TemplateReminder,
		fmt.Sprintf("Reminder: %s Coming Up!", activity.Name),
		tmplCtx,
		false,
	)
}

// DispatchAttendance queues an attendance notice, usually addressed to a
// parent or guardian, so the recipient is given explicitly rather than
// derived from the student.
func (d *Dispatcher) DispatchAttendance(ctx context.Context, recipientEmail, studentName string, activity types.Activity, date, status, note string) types.Outcome {
	tmplCtx := map[string]any{
		"student_name":      studentName,
		"activity_name":     activity.Name,
		"date":              date,
		"attendance_status": status,
	}
	if note != "" {
		tmplCtx["note"] = note
	}
	return d.dispatchIndividual(ctx, recipientEmail, types.CategoryAttendance,
		TemplateAttendance,
		fmt.Sprintf("Attendance Notification: %s - %s", studentName, activity.Name),
		tmplCtx,
		false,
	)
}

// DispatchActivityChange notifies participants of a schedule or detail
// change with a single request addressed to everyone who has activity_changes
// enabled. An entirely opted-out audience yields Skipped, never an empty
// send.
func (d *Dispatcher) DispatchActivityChange(ctx context.Context, recipients []string, activityName, changeDescription, newSchedule string) types.Outcome {
	eligible := d.resolver.FilterRecipients(ctx, recipients, types.CategoryActivityChanges)
	if len(eligible) == 0 {
		d.logger.Info("activity change notification suppressed, no eligible recipients",
			"activity", activityName,
			"requested", len(recipients),
		)
		d.metrics.RecordDelivery(ctx, types.CategoryActivityChanges, types.StatusSkipped)
		return types.Skipped(types.ReasonNoRecipients)
	}

	tmplCtx := map[string]any{
		"activity_name":      activityName,
		"change_description": changeDescription,
	}
	if newSchedule != "" {
		tmplCtx["new_schedule"] = newSchedule
	}

	req := d.newRequest(ctx, types.CategoryActivityChanges, eligible,
		TemplateActivityChange,
		fmt.Sprintf("Important Update: %s", activityName),
		tmplCtx,
	)
	return d.submit(ctx, req)
}

// DispatchNewActivityAnnouncement announces a new activity with one request
// per eligible recipient. The list is re-filtered against new_activities
// preferences even if the caller already filtered it.
func (d *Dispatcher) DispatchNewActivityAnnouncement(ctx context.Context, activity types.Activity, recipients []string) types.BatchSummary {
	summary := types.BatchSummary{Total: len(recipients)}

	eligible := d.resolver.FilterRecipients(ctx, recipients, types.CategoryNewActivities)
	summary.Skipped = len(recipients) - len(eligible)
	if summary.Skipped > 0 {
		d.logger.Info("recipients suppressed by preferences",
			"category", string(types.CategoryNewActivities),
			"suppressed", summary.Skipped,
		)
	}

	queued, failed := d.fanOut(ctx, eligible, types.CategoryNewActivities,
		TemplateNewActivity,
		fmt.Sprintf("New Activity Available: %s", activity.Name),
		d.activityContext(activity),
	)
	summary.Queued, summary.Failed = queued, failed
	return summary
}

// DispatchBatch sends an administrative broadcast to an explicit recipient
// list. Preferences do not gate it. An empty recipient list is a caller
// error, reported before the channel is contacted. Each recipient gets their
// own request so one delivery failure cannot fail the whole batch.
func (d *Dispatcher) DispatchBatch(ctx context.Context, recipients []string, subject, template string, tmplCtx map[string]any) (types.BatchSummary, error) {
	if len(recipients) == 0 {
		return types.BatchSummary{}, types.NewAppError(
			types.ErrCodeValidationEmptyRecipients,
			"recipient list must not be empty",
			nil,
		)
	}

	summary := types.BatchSummary{Total: len(recipients)}
	summary.Queued, summary.Failed = d.fanOut(ctx, recipients, types.CategoryAnnouncement,
		template, subject, tmplCtx)
	return summary, nil
}

// dispatchIndividual handles the single-recipient path: preference check,
// optional parent CC resolution, and channel submission.
func (d *Dispatcher) dispatchIndividual(
	ctx context.Context,
	recipient string,
	category types.Category,
	template, subject string,
	tmplCtx map[string]any,
	ccParent bool,
) types.Outcome {
	if !d.evaluator.ShouldSend(ctx, recipient, category) {
		d.logger.Info("notification suppressed by preferences",
			"email", email.RedactEmail(recipient),
			"category", string(category),
		)
		d.metrics.RecordDelivery(ctx, category, types.StatusSkipped)
		return types.Skipped(types.ReasonPreferences)
	}

	req := d.newRequest(ctx, category, []string{recipient}, template, subject, tmplCtx)
	if ccParent {
		if cc, ok := d.resolver.ResolveCc(ctx, recipient); ok {
			req.Cc = cc
		}
	}

	return d.submit(ctx, req)
}

// fanOut submits one request per recipient and counts queued and failed
// submissions. Recipients are assumed already filtered where filtering
// applies.
func (d *Dispatcher) fanOut(
	ctx context.Context,
	recipients []string,
	category types.Category,
	template, subject string,
	tmplCtx map[string]any,
) (queued, failed int) {
	for _, recipient := range recipients {
		req := d.newRequest(ctx, category, []string{recipient}, template, subject, tmplCtx)
		if outcome := d.submit(ctx, req); outcome.Status == types.StatusFailed {
			failed++
		} else {
			queued++
		}
	}
	return queued, failed
}

func (d *Dispatcher) newRequest(
	ctx context.Context,
	category types.Category,
	recipients []string,
	template, subject string,
	tmplCtx map[string]any,
) types.NotificationRequest {
	return types.NotificationRequest{
		ID:         uuid.NewString(),
		Category:   category,
		Recipients: recipients,
		Template:   template,
		Subject:    subject,
		Context:    tmplCtx,
		TraceID:    types.GetRequestID(ctx),
		EnqueuedAt: d.clock.Now(),
	}
}

// submit hands the request to the channel. Channel failures are logged and
// reported in the outcome, never returned as errors.
func (d *Dispatcher) submit(ctx context.Context, req types.NotificationRequest) types.Outcome {
	if err := d.channel.Submit(ctx, req); err != nil {
		d.logger.Warn("failed to queue notification",
			"request_id", req.ID,
			"category", string(req.Category),
			"recipients", email.RedactEmails(req.Recipients),
			"error", err.Error(),
		)
		d.metrics.RecordDelivery(ctx, req.Category, types.StatusFailed)
		return types.Failed(types.ReasonQueueFull)
	}
	return types.Sent()
}

func (d *Dispatcher) activityContext(activity types.Activity) map[string]any {
	ctx := map[string]any{
		"activity_name":    activity.Name,
		"schedule":         activity.Schedule,
		"max_participants": activity.MaxParticipants,
		"portal_url":       d.portalURL,
	}
	if activity.Description != "" {
		ctx["description"] = activity.Description
	}
	return ctx
}

// personalContext is activityContext plus the optional student name used by
// templates that open with a greeting.
func (d *Dispatcher) personalContext(activity types.Activity, displayName string) map[string]any {
	ctx := d.activityContext(activity)
	if displayName != "" {
		ctx["student_name"] = displayName
	}
	return ctx
}

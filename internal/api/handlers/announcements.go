package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mergington/internal/core"
	"mergington/internal/notify"
	"mergington/internal/prefs"
	"mergington/internal/roster"
	"mergington/internal/types"
)

// AnnouncementNotifier is the dispatch surface the announcements handler
// uses.
type AnnouncementNotifier interface {
	DispatchNewActivityAnnouncement(ctx context.Context, activity types.Activity, recipients []string) types.BatchSummary
	DispatchBatch(ctx context.Context, recipients []string, subject, template string, tmplCtx map[string]any) (types.BatchSummary, error)
}

// TemplateCatalog reports which email templates are renderable, so the
// handler can reject an unknown template before anything is queued.
type TemplateCatalog interface {
	Has(name string) bool
}

// AnnouncementsHandler covers broadcast email: new-activity announcements
// and free-form batch sends.
type AnnouncementsHandler struct {
	roster    roster.Store
	prefs     prefs.Store
	notifier  AnnouncementNotifier
	templates TemplateCatalog
	validator *core.Validator
	logger    *slog.Logger
}

func NewAnnouncementsHandler(
	rosterStore roster.Store,
	prefsStore prefs.Store,
	notifier AnnouncementNotifier,
	templates TemplateCatalog,
	v *core.Validator,
	l *slog.Logger,
) *AnnouncementsHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AnnouncementsHandler{
		roster:    rosterStore,
		prefs:     prefsStore,
		notifier:  notifier,
		templates: templates,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts announcement routes on the provided chi.Router.
func (h *AnnouncementsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/announcements", func(r chi.Router) {
		r.Post("/new-activity/{name}", h.AnnounceNewActivity)
		r.Post("/batch-email", h.BatchEmail)
	})
}

// newActivityRequest is the optional body for the new-activity announcement.
// When Recipients is empty, the audience is resolved from stored preferences.
type newActivityRequest struct {
	Recipients []string `json:"recipients,omitempty" validate:"omitempty,dive,email"`
}

// batchEmailRequest is the body for POST /v1/announcements/batch-email.
// TemplateName picks any registered template; omitting it falls back to the
// plain announcement layout. Context carries the template variables, and
// Message is shorthand for the announcement template's body text.
type batchEmailRequest struct {
	Recipients   []string       `json:"recipients" validate:"required,dive,email"`
	Subject      string         `json:"subject" validate:"required,max=200"`
	TemplateName string         `json:"template_name,omitempty" validate:"omitempty,max=100"`
	Context      map[string]any `json:"context,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// AnnounceNewActivity handles POST /v1/announcements/new-activity/{name}.
// Unknown activities are a 404. When the body omits recipients, everyone
// with new_activities enabled is targeted; either way the dispatcher
// re-filters against preferences.
func (h *AnnouncementsHandler) AnnounceNewActivity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	activity, err := h.roster.Get(r.Context(), name)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req newActivityRequest
	if r.ContentLength > 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	recipients := req.Recipients
	if len(recipients) == 0 {
		recipients, err = h.prefs.ListEnabled(r.Context(), types.CategoryNewActivities)
		if err != nil {
			core.Error(w, r, err)
			return
		}
	}

	summary := h.notifier.DispatchNewActivityAnnouncement(r.Context(), activity, recipients)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summary})
}

// BatchEmail handles POST /v1/announcements/batch-email. An empty recipient
// list is a 400. Batch email is an administrative broadcast: preferences do
// not filter it, and the summary reflects queueing outcomes only.
func (h *AnnouncementsHandler) BatchEmail(w http.ResponseWriter, r *http.Request) {
	var req batchEmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if len(req.Recipients) == 0 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationEmptyRecipients,
			"recipient list must not be empty",
			nil,
		))
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	templateName := req.TemplateName
	if templateName == "" {
		templateName = notify.TemplateAnnouncement
	}
	if !h.templates.Has(templateName) {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationUnknownTemplate,
			"unknown email template: "+templateName,
			nil,
		))
		return
	}

	tmplCtx := make(map[string]any, len(req.Context)+1)
	for k, v := range req.Context {
		tmplCtx[k] = v
	}
	if req.Message != "" {
		tmplCtx["message"] = req.Message
	}

	summary, err := h.notifier.DispatchBatch(
		r.Context(),
		req.Recipients,
		req.Subject,
		templateName,
		tmplCtx,
	)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summary})
}

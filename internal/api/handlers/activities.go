// Package handlers contains the HTTP handler implementations for the
// Mergington activities API: the activity roster, email preferences,
// announcements, and the email service status endpoint.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"mergington/internal/core"
	"mergington/internal/roster"
	"mergington/internal/types"
)

// ActivityNotifier is the dispatch surface the activities handler uses.
// Defined locally following the handler injection pattern so tests can
// substitute a fake.
type ActivityNotifier interface {
	DispatchSignupConfirmation(ctx context.Context, studentEmail string, activity types.Activity, displayName string) types.Outcome
	DispatchUnregisterConfirmation(ctx context.Context, studentEmail string, activity types.Activity, displayName string) types.Outcome
}

// ActivitiesHandler manages the activity roster and its signup lifecycle.
type ActivitiesHandler struct {
	roster    roster.Store
	notifier  ActivityNotifier
	validator *core.Validator
	logger    *slog.Logger
}

func NewActivitiesHandler(
	rosterStore roster.Store,
	notifier ActivityNotifier,
	v *core.Validator,
	l *slog.Logger,
) *ActivitiesHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ActivitiesHandler{
		roster:    rosterStore,
		notifier:  notifier,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts activity routes on the provided chi.Router.
func (h *ActivitiesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.List)

		r.Route("/{name}", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Delete("/unregister", h.Unregister)
		})
	})
}

// activityView is the wire representation of a roster entry.
type activityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
	SpotsLeft       int      `json:"spots_left"`
}

// signupResponse is the body returned by signup and unregister.
type signupResponse struct {
	Message  string `json:"message"`
	Activity string `json:"activity"`
	Email    string `json:"email"`
}

// List handles GET /v1/activities. Activities are keyed by name, sorted for
// stable output.
func (h *ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	activities, err := h.roster.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	names := make([]string, 0, len(activities))
	for name := range activities {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]activityView, len(activities))
	for _, name := range names {
		a := activities[name]
		out[name] = activityView{
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    a.Participants,
			SpotsLeft:       a.SpotsLeft(),
		}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: out})
}

// Signup handles POST /v1/activities/{name}/signup?email=...
//
// The roster mutation is synchronous; the confirmation email is dispatched
// fire-and-forget afterwards. A dispatch failure never fails the signup,
// but surfaces as an advisory warning in the response meta. The optional
// student_name query parameter personalizes the confirmation greeting.
func (h *ActivitiesHandler) Signup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	email := r.URL.Query().Get("email")
	displayName := r.URL.Query().Get("student_name")

	if err := h.validator.ValidateEmail(email); err != nil {
		core.Error(w, r, err)
		return
	}

	activity, err := h.roster.AddParticipant(r.Context(), name, email)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	outcome := h.notifier.DispatchSignupConfirmation(r.Context(), email, activity, displayName)

	resp := core.APIResponse{
		Data: signupResponse{
			Message:  "Signed up " + email + " for " + activity.Name,
			Activity: activity.Name,
			Email:    email,
		},
	}
	if outcome.Status == types.StatusFailed {
		resp.Meta = &types.ResponseMeta{
			Warnings: []string{"confirmation email could not be queued"},
		}
	}

	core.JSON(w, r, http.StatusOK, resp)
}

// Unregister handles DELETE /v1/activities/{name}/unregister?email=...
func (h *ActivitiesHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	email := r.URL.Query().Get("email")
	displayName := r.URL.Query().Get("student_name")

	if err := h.validator.ValidateEmail(email); err != nil {
		core.Error(w, r, err)
		return
	}

	activity, err := h.roster.RemoveParticipant(r.Context(), name, email)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	outcome := h.notifier.DispatchUnregisterConfirmation(r.Context(), email, activity, displayName)

	resp := core.APIResponse{
		Data: signupResponse{
			Message:  "Unregistered " + email + " from " + activity.Name,
			Activity: activity.Name,
			Email:    email,
		},
	}
	if outcome.Status == types.StatusFailed {
		resp.Meta = &types.ResponseMeta{
			Warnings: []string{"confirmation email could not be queued"},
		}
	}

	core.JSON(w, r, http.StatusOK, resp)
}

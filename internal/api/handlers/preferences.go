package handlers

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"mergington/internal/core"
	"mergington/internal/prefs"
	"mergington/internal/types"
)

// PreferencesHandler manages the email preference CRUD surface.
type PreferencesHandler struct {
	store     prefs.Store
	validator *core.Validator
	logger    *slog.Logger
}

func NewPreferencesHandler(store prefs.Store, v *core.Validator, l *slog.Logger) *PreferencesHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PreferencesHandler{
		store:     store,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts preference routes on the provided chi.Router.
func (h *PreferencesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/email-preferences", func(r chi.Router) {
		r.Get("/", h.List)

		r.Route("/{email}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Put)
			r.Delete("/", h.Delete)
		})
	})
}

// Get handles GET /v1/email-preferences/{email}. A first read for an unknown
// identity creates and returns the default record.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.validator.ValidateEmail(email); err != nil {
		core.Error(w, r, err)
		return
	}

	p, err := h.store.Get(r.Context(), email)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: p})
}

// Put handles PUT /v1/email-preferences/{email}. The update is wholesale:
// the stored record is replaced with the request body. A body whose email
// disagrees with the path identity is rejected.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.validator.ValidateEmail(email); err != nil {
		core.Error(w, r, err)
		return
	}

	var p types.Preferences
	if err := core.DecodeJSON(w, r, &p); err != nil {
		core.Error(w, r, err)
		return
	}

	if p.Email != "" && p.Email != email {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationEmailMismatch,
			"email in body does not match email in path",
			nil,
			map[string]any{"path": email, "body": p.Email},
		))
		return
	}

	if err := h.validator.ValidateStruct(p); err != nil {
		core.Error(w, r, err)
		return
	}

	if p.Frequency != "" && !p.Frequency.Valid() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidCategory,
			"unknown frequency value",
			nil,
		))
		return
	}

	if err := h.store.Put(r.Context(), email, p); err != nil {
		core.Error(w, r, err)
		return
	}

	stored, err := h.store.Get(r.Context(), email)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: stored})
}

// Delete handles DELETE /v1/email-preferences/{email}. Deleting an identity
// that has no stored record is a 404; a later read recreates defaults.
func (h *PreferencesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.validator.ValidateEmail(email); err != nil {
		core.Error(w, r, err)
		return
	}

	removed, err := h.store.Delete(r.Context(), email)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !removed {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundPreferences,
			"no preferences stored for this email",
			nil,
		))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: map[string]any{"deleted": true, "email": email},
	})
}

// List handles GET /v1/email-preferences, returning every stored record
// sorted by email.
func (h *PreferencesHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	emails := make([]string, 0, len(all))
	for email := range all {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	out := make([]types.Preferences, 0, len(all))
	for _, email := range emails {
		out = append(out, all[email])
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: out})
}

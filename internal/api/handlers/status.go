package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mergington/internal/core"
	"mergington/internal/external"
)

// StatusHandler reports whether outbound email is operational.
type StatusHandler struct {
	provider external.EmailProvider
	name     string
	mode     string
}

// NewStatusHandler creates the email service status endpoint. name is the
// configured provider ("sendgrid", "stub"); mode is the queue mode.
func NewStatusHandler(provider external.EmailProvider, name, mode string) *StatusHandler {
	return &StatusHandler{
		provider: provider,
		name:     name,
		mode:     mode,
	}
}

// RegisterRoutes mounts the status route on the provided chi.Router.
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/email-service/status", h.Status)
}

type statusResponse struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider"`
	QueueMode  string `json:"queue_mode"`
	Message    string `json:"message"`
}

// Status handles GET /v1/email-service/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Configured: h.provider.Configured(),
		Provider:   h.name,
		QueueMode:  h.mode,
	}
	if resp.Configured {
		resp.Message = "email service is operational"
	} else {
		resp.Message = "email service is not configured; notifications are logged but not delivered"
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

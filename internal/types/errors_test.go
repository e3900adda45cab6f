package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidEmail, http.StatusBadRequest},
		{ErrCodeValidationEmptyRecipients, http.StatusBadRequest},
		{ErrCodeNotFoundActivity, http.StatusNotFound},
		{ErrCodeNotFoundPreferences, http.StatusNotFound},
		{ErrCodeConflictAlreadySignedUp, http.StatusConflict},
		{ErrCodeConflictActivityFull, http.StatusConflict},
		{ErrCodeEmailBlocked, http.StatusForbidden},
		{ErrCodeEmailNotConfigured, http.StatusServiceUnavailable},
		{ErrCodeUpstreamEmailProvider, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	appErr := NewAppError(ErrCodeUpstreamEmailProvider, "provider unreachable", inner)

	if !errors.Is(appErr, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}

	var target *AppError
	wrapped := fmt.Errorf("dispatch: %w", appErr)
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to find the AppError in the chain")
	}
	if target.Code != ErrCodeUpstreamEmailProvider {
		t.Errorf("unexpected code: %s", target.Code)
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeNotFoundActivity, "no such activity", nil,
		map[string]any{"activity": "Chess Club"})

	derived := base.WithDetails(map[string]any{"requested_by": "student"})

	if len(base.Details) != 1 {
		t.Errorf("original error mutated: %v", base.Details)
	}
	if derived.Details["activity"] != "Chess Club" || derived.Details["requested_by"] != "student" {
		t.Errorf("expected merged details, got %v", derived.Details)
	}
}

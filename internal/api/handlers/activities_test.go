package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"mergington/internal/core"
	"mergington/internal/roster"
	"mergington/internal/types"
)

type fakeActivityNotifier struct {
	signups         []string
	unregisters     []string
	outcome         types.Outcome
	lastDisplayName string
}

func (f *fakeActivityNotifier) DispatchSignupConfirmation(_ context.Context, email string, _ types.Activity, displayName string) types.Outcome {
	f.signups = append(f.signups, email)
	f.lastDisplayName = displayName
	return f.outcome
}

func (f *fakeActivityNotifier) DispatchUnregisterConfirmation(_ context.Context, email string, _ types.Activity, displayName string) types.Outcome {
	f.unregisters = append(f.unregisters, email)
	f.lastDisplayName = displayName
	return f.outcome
}

func testValidator() *core.Validator {
	return core.NewValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newActivitiesRouter(t *testing.T, notifier *fakeActivityNotifier) (*chi.Mux, *roster.MemoryStore) {
	t.Helper()
	store := roster.NewMemoryStore(nil)
	h := NewActivitiesHandler(store, notifier, testValidator(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, store
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return envelope
}

func TestListActivities(t *testing.T) {
	router, _ := newActivitiesRouter(t, &fakeActivityNotifier{outcome: types.Sent()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activities", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	envelope := decodeEnvelope(t, w)
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %T", envelope["data"])
	}
	if len(data) != 3 {
		t.Errorf("activities = %d, want 3", len(data))
	}
	chess, ok := data["Chess Club"].(map[string]any)
	if !ok {
		t.Fatal("Chess Club missing")
	}
	if chess["max_participants"] != float64(12) {
		t.Errorf("max_participants = %v", chess["max_participants"])
	}
	if chess["spots_left"] != float64(10) {
		t.Errorf("spots_left = %v", chess["spots_left"])
	}
}

func TestSignup_Success(t *testing.T) {
	notifier := &fakeActivityNotifier{outcome: types.Sent()}
	router, store := newActivitiesRouter(t, notifier)

	target := "/activities/" + url.PathEscape("Chess Club") + "/signup?email=newstudent@mergington.edu"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(notifier.signups) != 1 || notifier.signups[0] != "newstudent@mergington.edu" {
		t.Errorf("dispatched signups = %v", notifier.signups)
	}

	activity, _ := store.Get(context.Background(), "Chess Club")
	if len(activity.Participants) != 3 {
		t.Errorf("participants = %v", activity.Participants)
	}

	envelope := decodeEnvelope(t, w)
	if _, hasMeta := envelope["meta"]; hasMeta {
		t.Error("no warnings expected on successful dispatch")
	}
}

func TestSignup_StudentNamePassedToDispatch(t *testing.T) {
	notifier := &fakeActivityNotifier{outcome: types.Sent()}
	router, _ := newActivitiesRouter(t, notifier)

	target := "/activities/" + url.PathEscape("Chess Club") + "/signup?email=newstudent@mergington.edu&student_name=Jordan"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if notifier.lastDisplayName != "Jordan" {
		t.Errorf("display name = %q, want Jordan", notifier.lastDisplayName)
	}
}

func TestSignup_DispatchFailureIsAdvisory(t *testing.T) {
	notifier := &fakeActivityNotifier{outcome: types.Failed(types.ReasonQueueFull)}
	router, store := newActivitiesRouter(t, notifier)

	target := "/activities/" + url.PathEscape("Chess Club") + "/signup?email=newstudent@mergington.edu"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, signup must succeed despite dispatch failure", w.Code)
	}

	activity, _ := store.Get(context.Background(), "Chess Club")
	if len(activity.Participants) != 3 {
		t.Error("roster mutation must survive dispatch failure")
	}

	envelope := decodeEnvelope(t, w)
	meta, ok := envelope["meta"].(map[string]any)
	if !ok {
		t.Fatal("expected meta with warnings")
	}
	warnings, _ := meta["warnings"].([]any)
	if len(warnings) != 1 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestSignup_Validation(t *testing.T) {
	cases := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{"missing email", "/activities/Chess%20Club/signup", http.StatusBadRequest, types.ErrCodeValidationInvalidEmail},
		{"bad email", "/activities/Chess%20Club/signup?email=nope", http.StatusBadRequest, types.ErrCodeValidationInvalidEmail},
		{"unknown activity", "/activities/Knitting/signup?email=a@b.edu", http.StatusNotFound, types.ErrCodeNotFoundActivity},
		{"duplicate", "/activities/Chess%20Club/signup?email=michael@mergington.edu", http.StatusConflict, types.ErrCodeConflictAlreadySignedUp},
	}

	router, _ := newActivitiesRouter(t, &fakeActivityNotifier{outcome: types.Sent()})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tc.target, nil))

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}

			var resp core.APIErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Error.Code != string(tc.wantCode) {
				t.Errorf("code = %q, want %q", resp.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestSignup_FullActivity(t *testing.T) {
	notifier := &fakeActivityNotifier{outcome: types.Sent()}
	store := roster.NewMemoryStore(map[string]types.Activity{
		"Tiny Club": {MaxParticipants: 1, Participants: []string{"solo@mergington.edu"}},
	})
	h := NewActivitiesHandler(store, notifier, testValidator(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities/Tiny%20Club/signup?email=late@mergington.edu", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if len(notifier.signups) != 0 {
		t.Error("no dispatch expected for rejected signup")
	}
}

func TestUnregister_Success(t *testing.T) {
	notifier := &fakeActivityNotifier{outcome: types.Sent()}
	router, store := newActivitiesRouter(t, notifier)

	target := "/activities/" + url.PathEscape("Chess Club") + "/unregister?email=michael@mergington.edu"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(notifier.unregisters) != 1 {
		t.Errorf("dispatched unregisters = %v", notifier.unregisters)
	}

	activity, _ := store.Get(context.Background(), "Chess Club")
	for _, p := range activity.Participants {
		if p == "michael@mergington.edu" {
			t.Error("participant still enrolled after unregister")
		}
	}
}

func TestUnregister_NotSignedUp(t *testing.T) {
	router, _ := newActivitiesRouter(t, &fakeActivityNotifier{outcome: types.Sent()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/activities/Chess%20Club/unregister?email=stranger@mergington.edu", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

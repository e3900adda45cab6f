package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"mergington/internal/prefs"
	"mergington/internal/types"
)

type testLogger struct{}

func (testLogger) Info(msg string, args ...any)    {}
func (testLogger) Error(msg string, args ...any)   {}
func (testLogger) Warn(msg string, args ...any)    {}
func (l testLogger) With(args ...any) types.Logger { return l }

type mockClock struct{ now time.Time }

func (c *mockClock) Now() time.Time { return c.now }

type fakeChannel struct {
	submitted []types.NotificationRequest
	err       error
}

func (f *fakeChannel) Submit(_ context.Context, req types.NotificationRequest) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, req)
	return nil
}

func (f *fakeChannel) Close(context.Context) error { return nil }

func newTestDispatcher(t *testing.T) (*Dispatcher, *prefs.MemoryStore, *fakeChannel) {
	t.Helper()
	store := prefs.NewMemoryStore()
	evaluator := prefs.NewEvaluator(store, testLogger{})
	resolver := prefs.NewResolver(store, evaluator)
	ch := &fakeChannel{}
	clock := &mockClock{now: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}
	d := NewDispatcher(evaluator, resolver, ch, clock, testLogger{}, NoopMetrics{}, "https://activities.mergington.edu")
	return d, store, ch
}

func chessClub() types.Activity {
	return types.Activity{
		Name:            "Chess Club",
		Description:     "Learn strategies and compete in chess tournaments",
		Schedule:        "Fridays, 3:30 PM - 5:00 PM",
		MaxParticipants: 12,
		Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
	}
}

func TestDispatchSignupConfirmation_Queues(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	outcome := d.DispatchSignupConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "")
	if outcome.Status != types.StatusSent {
		t.Fatalf("outcome = %+v, want sent", outcome)
	}

	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	req := ch.submitted[0]
	if req.Subject != "Confirmed: Chess Club Registration" {
		t.Errorf("subject = %q", req.Subject)
	}
	if req.Template != TemplateSignupConfirmation {
		t.Errorf("template = %q", req.Template)
	}
	if req.Category != types.CategorySignupConfirmation {
		t.Errorf("category = %q", req.Category)
	}
	if len(req.Recipients) != 1 || req.Recipients[0] != "michael@mergington.edu" {
		t.Errorf("recipients = %v", req.Recipients)
	}
	if req.Cc != "" {
		t.Errorf("cc = %q, want none", req.Cc)
	}
	if req.Context["activity_name"] != "Chess Club" {
		t.Errorf("context = %+v", req.Context)
	}
	if req.ID == "" {
		t.Error("request has no id")
	}
}

func TestDispatchSignupConfirmation_DisplayName(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	d.DispatchSignupConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "Michael")
	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	if ch.submitted[0].Context["student_name"] != "Michael" {
		t.Errorf("context = %+v, want student_name=Michael", ch.submitted[0].Context)
	}
}

func TestDispatchSignupConfirmation_NoDisplayNameOmitsKey(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	d.DispatchSignupConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "")
	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	if _, ok := ch.submitted[0].Context["student_name"]; ok {
		t.Errorf("context = %+v, student_name must be absent", ch.submitted[0].Context)
	}
}

func TestDispatchSignupConfirmation_ParentCc(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	p := types.DefaultPreferences("michael@mergington.edu")
	p.ParentEmail = "parent@example.com"
	p.ParentCcEnabled = true
	store.Put(context.Background(), "michael@mergington.edu", p)

	d.DispatchSignupConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "")

	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	if ch.submitted[0].Cc != "parent@example.com" {
		t.Errorf("cc = %q, want parent@example.com", ch.submitted[0].Cc)
	}
}

func TestDispatchSignupConfirmation_SuppressedByPreferences(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	p := types.DefaultPreferences("michael@mergington.edu")
	p.Enabled = false
	store.Put(context.Background(), "michael@mergington.edu", p)

	outcome := d.DispatchSignupConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "")
	if outcome.Status != types.StatusSkipped || outcome.Reason != types.ReasonPreferences {
		t.Errorf("outcome = %+v, want skipped/preferences", outcome)
	}
	if len(ch.submitted) != 0 {
		t.Errorf("submitted = %d, want 0", len(ch.submitted))
	}
}

func TestDispatchUnregisterConfirmation_Subject(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	d.DispatchUnregisterConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "")
	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	if ch.submitted[0].Subject != "Unregistration Confirmed: Chess Club" {
		t.Errorf("subject = %q", ch.submitted[0].Subject)
	}
}

func TestDispatch_ChannelFailureSwallowed(t *testing.T) {
	d, _, ch := newTestDispatcher(t)
	ch.err = errors.New("queue full")

	outcome := d.DispatchSignupConfirmation(context.Background(), "michael@mergington.edu", chessClub(), "")
	if outcome.Status != types.StatusFailed || outcome.Reason != types.ReasonQueueFull {
		t.Errorf("outcome = %+v, want failed/%s", outcome, types.ReasonQueueFull)
	}
}

func TestDispatchActivityChange_SingleRequestToFilteredSet(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	p := types.DefaultPreferences("daniel@mergington.edu")
	p.ActivityChanges = false
	store.Put(context.Background(), "daniel@mergington.edu", p)

	outcome := d.DispatchActivityChange(context.Background(),
		[]string{"michael@mergington.edu", "daniel@mergington.edu"},
		"Chess Club", "Moved to Thursdays", "Thursdays, 3:30 PM - 5:00 PM")
	if outcome.Status != types.StatusSent {
		t.Fatalf("outcome = %+v, want sent", outcome)
	}

	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	req := ch.submitted[0]
	if len(req.Recipients) != 1 || req.Recipients[0] != "michael@mergington.edu" {
		t.Errorf("recipients = %v, want only michael", req.Recipients)
	}
	if req.Subject != "Important Update: Chess Club" {
		t.Errorf("subject = %q", req.Subject)
	}
	if req.Context["change_description"] != "Moved to Thursdays" {
		t.Errorf("context = %+v", req.Context)
	}
	if req.Context["new_schedule"] != "Thursdays, 3:30 PM - 5:00 PM" {
		t.Errorf("context = %+v", req.Context)
	}
	if req.Cc != "" {
		t.Errorf("cc = %q, broadcasts must not CC", req.Cc)
	}
}

func TestDispatchActivityChange_AllOptedOutSkips(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	for _, e := range []string{"michael@mergington.edu", "daniel@mergington.edu"} {
		p := types.DefaultPreferences(e)
		p.ActivityChanges = false
		store.Put(context.Background(), e, p)
	}

	outcome := d.DispatchActivityChange(context.Background(),
		[]string{"michael@mergington.edu", "daniel@mergington.edu"},
		"Chess Club", "Moved to Thursdays", "")
	if outcome.Status != types.StatusSkipped || outcome.Reason != types.ReasonNoRecipients {
		t.Errorf("outcome = %+v, want skipped/%s", outcome, types.ReasonNoRecipients)
	}
	if len(ch.submitted) != 0 {
		t.Errorf("submitted = %d, want 0", len(ch.submitted))
	}
}

func TestDispatchNewActivityAnnouncement_RefiltersRecipients(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	p := types.DefaultPreferences("olivia@mergington.edu")
	p.NewActivities = false
	store.Put(context.Background(), "olivia@mergington.edu", p)

	recipients := []string{"michael@mergington.edu", "olivia@mergington.edu", "emma@mergington.edu"}
	summary := d.DispatchNewActivityAnnouncement(context.Background(), chessClub(), recipients)
	if summary.Total != 3 || summary.Queued != 2 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want total=3 queued=2 skipped=1", summary)
	}

	got := make([]string, 0, len(ch.submitted))
	for _, req := range ch.submitted {
		got = append(got, req.Recipients[0])
	}
	want := []string{"michael@mergington.edu", "emma@mergington.edu"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("recipients = %v, want %v", got, want)
	}
}

func TestDispatchNewActivityAnnouncement_AllOptedOutCountsSkipped(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	for _, e := range []string{"michael@mergington.edu", "emma@mergington.edu"} {
		p := types.DefaultPreferences(e)
		p.NewActivities = false
		store.Put(context.Background(), e, p)
	}

	summary := d.DispatchNewActivityAnnouncement(context.Background(), chessClub(),
		[]string{"michael@mergington.edu", "emma@mergington.edu"})
	if summary.Total != 2 || summary.Queued != 0 || summary.Skipped != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want total=2 skipped=2", summary)
	}
	if len(ch.submitted) != 0 {
		t.Errorf("submitted = %d, want 0", len(ch.submitted))
	}
}

func TestDispatchBatch_EmptyRecipientsIsCallerError(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	_, err := d.DispatchBatch(context.Background(), nil, "Hello", TemplateAnnouncement,
		map[string]any{"message": "hi all"})
	if err == nil {
		t.Fatal("expected error for empty recipient list")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeValidationEmptyRecipients {
		t.Errorf("err = %v, want %s", err, types.ErrCodeValidationEmptyRecipients)
	}
	if len(ch.submitted) != 0 {
		t.Errorf("channel contacted despite empty recipient list")
	}
}

func TestDispatchBatch_OneRequestPerRecipient(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	summary, err := d.DispatchBatch(context.Background(),
		[]string{"a@mergington.edu", "b@mergington.edu"}, "Announcement",
		TemplateAnnouncement, map[string]any{"message": "School fair next week"})
	if err != nil {
		t.Fatalf("DispatchBatch: %v", err)
	}
	if summary.Total != 2 || summary.Queued != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(ch.submitted) != 2 {
		t.Fatalf("submitted = %d, want 2", len(ch.submitted))
	}
	for _, req := range ch.submitted {
		if req.Template != TemplateAnnouncement {
			t.Errorf("template = %q", req.Template)
		}
		if req.Category != types.CategoryAnnouncement {
			t.Errorf("category = %q", req.Category)
		}
		if req.Context["message"] != "School fair next week" {
			t.Errorf("context = %+v", req.Context)
		}
	}
}

func TestDispatchBatch_NotGatedByPreferences(t *testing.T) {
	d, store, ch := newTestDispatcher(t)

	// Even a fully opted-out recipient receives administrative broadcasts.
	p := types.DefaultPreferences("a@mergington.edu")
	p.Enabled = false
	store.Put(context.Background(), "a@mergington.edu", p)

	summary, err := d.DispatchBatch(context.Background(),
		[]string{"a@mergington.edu"}, "Policy update",
		TemplateAnnouncement, map[string]any{"message": "New pickup rules"})
	if err != nil {
		t.Fatalf("DispatchBatch: %v", err)
	}
	if summary.Queued != 1 {
		t.Errorf("summary = %+v, want queued=1", summary)
	}
	if len(ch.submitted) != 1 {
		t.Errorf("submitted = %d, want 1", len(ch.submitted))
	}
}

func TestDispatchReminder_Subject(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	d.DispatchReminder(context.Background(), "michael@mergington.edu", chessClub(), "Friday, March 6 at 3:30 PM", "")
	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	req := ch.submitted[0]
	if req.Subject != "Reminder: Chess Club Coming Up!" {
		t.Errorf("subject = %q", req.Subject)
	}
	if req.Context["next_session"] != "Friday, March 6 at 3:30 PM" {
		t.Errorf("context = %+v", req.Context)
	}
}

func TestDispatchAttendance_AddressedToGuardian(t *testing.T) {
	d, _, ch := newTestDispatcher(t)

	d.DispatchAttendance(context.Background(), "parent.michael@example.com", "Michael",
		chessClub(), "2026-03-02", "Absent", "Missed two sessions")
	if len(ch.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(ch.submitted))
	}
	req := ch.submitted[0]
	if req.Recipients[0] != "parent.michael@example.com" {
		t.Errorf("recipients = %v", req.Recipients)
	}
	if req.Subject != "Attendance Notification: Michael - Chess Club" {
		t.Errorf("subject = %q", req.Subject)
	}
	if req.Context["attendance_status"] != "Absent" || req.Context["note"] != "Missed two sessions" {
		t.Errorf("context = %+v", req.Context)
	}
}

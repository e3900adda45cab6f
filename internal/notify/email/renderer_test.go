package email

import (
	"strings"
	"testing"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRendererParsesAllTemplates(t *testing.T) {
	r := newTestRenderer(t)

	for _, name := range []string{
		"signup_confirmation",
		"unregister_confirmation",
		"activity_change",
		"new_activity",
		"reminder",
		"attendance_notification",
		"weekly_digest",
		"announcement",
	} {
		if !r.Has(name) {
			t.Errorf("expected template %q to be registered", name)
		}
	}
	if r.Has("base") {
		t.Error("base layout must not be addressable directly")
	}
}

func TestRenderSignupConfirmation(t *testing.T) {
	r := newTestRenderer(t)

	body, err := r.Render("signup_confirmation", "Confirmed: Chess Club Registration", map[string]any{
		"student_name":  "Michael",
		"activity_name": "Chess Club",
		"schedule":      "Fridays, 3:30 PM - 5:00 PM",
		"description":   "Learn strategies and compete in chess tournaments",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Confirmed: Chess Club Registration",
		"Michael",
		"Chess Club",
		"Fridays, 3:30 PM - 5:00 PM",
		"Mergington High School",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered body missing %q", want)
		}
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	r := newTestRenderer(t)

	body, err := r.Render("activity_change", "Important Update: Chess Club", map[string]any{
		"activity_name":      "Chess Club",
		"change_description": "<script>alert('x')</script>",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("template context must be HTML-escaped")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r := newTestRenderer(t)
	if _, err := r.Render("no_such_template", "Subject", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestRenderOptionalFieldsOmitted(t *testing.T) {
	r := newTestRenderer(t)

	body, err := r.Render("new_activity", "New Activity Available: Robotics", map[string]any{
		"activity_name": "Robotics",
		"schedule":      "Wednesdays, 4:00 PM",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "Sign up in the student portal") {
		t.Error("portal link should be omitted without portal_url")
	}
}

func TestRedactEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john@gmail.com", "j***@gmail.com"},
		{"m@mergington.edu", "m***@mergington.edu"},
		{"@mergington.edu", "***@mergington.edu"},
		{"not-an-email", "***"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := RedactEmail(tc.in); got != tc.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactEmails(t *testing.T) {
	got := RedactEmails([]string{"amy@mergington.edu", "bob@mergington.edu"})
	if got[0] != "a***@mergington.edu" || got[1] != "b***@mergington.edu" {
		t.Errorf("unexpected redaction: %v", got)
	}
}

package types

// Preferences holds the per-recipient notification settings. The zero value
// is NOT a usable record; use DefaultPreferences to create one.
type Preferences struct {
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency" validate:"omitempty,oneof=immediate daily weekly disabled"`

	// Per-category toggles. Field names mirror the wire format.
	SignupConfirmation     bool `json:"signup_confirmation"`
	UnregisterConfirmation bool `json:"unregister_confirmation"`
	ActivityChanges        bool `json:"activity_changes"`
	Reminders              bool `json:"reminders"`
	WeeklyDigest           bool `json:"weekly_digest"`
	NewActivities          bool `json:"new_activities"`
	Attendance             bool `json:"attendance_notifications"`

	// DigestOnly suppresses everything except the weekly digest.
	DigestOnly bool `json:"digest_only"`

	// Parent CC settings. ParentEmail is optional; CC only happens when
	// both ParentCcEnabled is set and ParentEmail is non-empty.
	ParentEmail     string `json:"parent_email,omitempty" validate:"omitempty,email"`
	ParentCcEnabled bool   `json:"parent_cc_enabled"`
}

// DefaultPreferences returns the all-defaults record for a recipient:
// every category enabled, immediate frequency, no parent CC.
func DefaultPreferences(email string) Preferences {
	return Preferences{
		Email:                  email,
		Enabled:                true,
		Frequency:              FrequencyImmediate,
		SignupConfirmation:     true,
		UnregisterConfirmation: true,
		ActivityChanges:        true,
		Reminders:              true,
		WeeklyDigest:           true,
		NewActivities:          true,
		Attendance:             true,
	}
}

// CategoryEnabled returns the per-category toggle for the given category.
// Unknown categories default to true so new notification kinds are not
// silently dropped for existing recipients.
func (p Preferences) CategoryEnabled(c Category) bool {
	switch c {
	case CategorySignupConfirmation:
		return p.SignupConfirmation
	case CategoryUnregisterConfirmation:
		return p.UnregisterConfirmation
	case CategoryActivityChanges:
		return p.ActivityChanges
	case CategoryReminders:
		return p.Reminders
	case CategoryWeeklyDigest:
		return p.WeeklyDigest
	case CategoryNewActivities:
		return p.NewActivities
	case CategoryAttendance:
		return p.Attendance
	default:
		return true
	}
}

// Activity is a school extracurricular activity with its enrollment roster.
type Activity struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns the remaining enrollment capacity.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// BatchSummary reports the outcome of a bulk dispatch operation. Skipped
// counts recipients suppressed by preferences, so an all-opted-out audience
// is distinguishable from deliveries that failed to queue.
type BatchSummary struct {
	Total   int `json:"total_recipients"`
	Queued  int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

package types

// Category identifies the kind of notification email being sent. The
// per-category toggles in Preferences are keyed by these values.
type Category string

const (
	CategorySignupConfirmation     Category = "signup_confirmation"
	CategoryUnregisterConfirmation Category = "unregister_confirmation"
	CategoryActivityChanges        Category = "activity_changes"
	CategoryReminders              Category = "reminders"
	CategoryWeeklyDigest           Category = "weekly_digest"
	CategoryNewActivities          Category = "new_activities"
	CategoryAttendance             Category = "attendance"

	// CategoryAnnouncement labels administrative batch broadcasts. It has no
	// preference toggle and is never gated.
	CategoryAnnouncement Category = "announcement"
)

// AllCategories lists every known category in a stable order. Used for
// iteration in tests and preference serialization.
var AllCategories = []Category{
	CategorySignupConfirmation,
	CategoryUnregisterConfirmation,
	CategoryActivityChanges,
	CategoryReminders,
	CategoryWeeklyDigest,
	CategoryNewActivities,
	CategoryAttendance,
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategorySignupConfirmation, CategoryUnregisterConfirmation,
		CategoryActivityChanges, CategoryReminders, CategoryWeeklyDigest,
		CategoryNewActivities, CategoryAttendance:
		return true
	}
	return false
}

// Frequency controls how often a recipient wants notification email.
// FrequencyDisabled acts as a kill switch equivalent to Enabled=false.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyDisabled  Frequency = "disabled"
)

// Valid reports whether the frequency is one of the known values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly, FrequencyDisabled:
		return true
	}
	return false
}

// OutcomeStatus categorizes the result of a dispatch or delivery attempt.
type OutcomeStatus string

const (
	StatusSent    OutcomeStatus = "sent"
	StatusFailed  OutcomeStatus = "failed"
	StatusSkipped OutcomeStatus = "skipped"
)

package scheduler

import (
	"context"

	"mergington/internal/prefs"
	"mergington/internal/roster"
	"mergington/internal/types"
)

// ReminderService computes the daily reminder audience: enrolled
// participants who still accept the reminders category.
type ReminderService struct {
	prefs     prefs.Store
	evaluator *prefs.Evaluator
	roster    roster.Store
	clock     types.Clock
	logger    types.Logger
}

func NewReminderService(
	prefsStore prefs.Store,
	evaluator *prefs.Evaluator,
	rosterStore roster.Store,
	clock types.Clock,
	logger types.Logger,
) *ReminderService {
	return &ReminderService{
		prefs:     prefsStore,
		evaluator: evaluator,
		roster:    rosterStore,
		clock:     clock,
		logger:    logger,
	}
}

// RunDailyReminders logs the reminder trigger per activity and returns the
// total number of participant reminders that would be sent.
func (s *ReminderService) RunDailyReminders(ctx context.Context) (int, error) {
	activities, err := s.roster.List(ctx)
	if err != nil {
		s.logger.Error("daily reminders roster lookup failed", "error", err.Error())
		return 0, err
	}

	total := 0
	for name, activity := range activities {
		eligible := 0
		for _, participant := range activity.Participants {
			if s.evaluator.ShouldSend(ctx, participant, types.CategoryReminders) {
				eligible++
			}
		}
		total += eligible
		s.logger.Info("daily reminder triggered",
			"activity", name,
			"participants", len(activity.Participants),
			"eligible", eligible,
		)
	}

	s.logger.Info("daily reminders complete",
		"triggered_at", s.clock.Now().Format("2006-01-02T15:04:05Z07:00"),
		"reminders", total,
	)
	return total, nil
}

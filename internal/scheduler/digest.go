// Package scheduler holds the periodic notification triggers: the weekly
// activity digest and the daily session reminders. The triggers currently
// log their eligible audience and return counts; actual digest content
// assembly is tracked separately.
package scheduler

import (
	"context"

	"mergington/internal/prefs"
	"mergington/internal/roster"
	"mergington/internal/types"
)

// DigestService computes the weekly digest audience. Eligible recipients
// are those with weekly_digest enabled, which includes digest-only users.
type DigestService struct {
	prefs  prefs.Store
	roster roster.Store
	clock  types.Clock
	logger types.Logger
}

func NewDigestService(prefsStore prefs.Store, rosterStore roster.Store, clock types.Clock, logger types.Logger) *DigestService {
	return &DigestService{
		prefs:  prefsStore,
		roster: rosterStore,
		clock:  clock,
		logger: logger,
	}
}

// RunWeeklyDigest logs the digest trigger and returns the number of
// recipients who would receive it.
func (s *DigestService) RunWeeklyDigest(ctx context.Context) (int, error) {
	recipients, err := s.prefs.ListEnabled(ctx, types.CategoryWeeklyDigest)
	if err != nil {
		s.logger.Error("weekly digest audience lookup failed", "error", err.Error())
		return 0, err
	}

	names, err := s.roster.Names(ctx)
	if err != nil {
		s.logger.Error("weekly digest roster lookup failed", "error", err.Error())
		return 0, err
	}

	s.logger.Info("weekly digest triggered",
		"triggered_at", s.clock.Now().Format("2006-01-02T15:04:05Z07:00"),
		"recipients", len(recipients),
		"activities", names,
	)
	return len(recipients), nil
}

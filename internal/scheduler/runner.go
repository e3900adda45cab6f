package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"mergington/internal/types"
)

// Runner fires the digest and reminder triggers on their configured
// cadence: the digest on a fixed weekday and time, reminders every day at a
// fixed time, both in the school's timezone.
type Runner struct {
	digest    *DigestService
	reminders *ReminderService
	logger    types.Logger

	location    *time.Location
	digestDay   time.Weekday
	digestAt    clockTime
	remindersAt clockTime

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type clockTime struct {
	hour   int
	minute int
}

// NewRunner parses the cadence configuration. digestDay is a weekday name
// such as "Monday"; digestTime and reminderTime are "HH:MM" in the given
// timezone.
func NewRunner(
	digest *DigestService,
	reminders *ReminderService,
	timezone, digestDay, digestTime, reminderTime string,
	logger types.Logger,
) (*Runner, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", timezone, err)
	}

	day, err := parseWeekday(digestDay)
	if err != nil {
		return nil, err
	}

	digestAt, err := parseClockTime(digestTime)
	if err != nil {
		return nil, fmt.Errorf("invalid digest time: %w", err)
	}
	remindersAt, err := parseClockTime(reminderTime)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder time: %w", err)
	}

	return &Runner{
		digest:      digest,
		reminders:   reminders,
		logger:      logger,
		location:    location,
		digestDay:   day,
		digestAt:    digestAt,
		remindersAt: remindersAt,
	}, nil
}

// Start launches the trigger loops. Call Stop to shut them down.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go r.loop(ctx, "weekly digest", r.nextDigest, func(ctx context.Context) {
		if _, err := r.digest.RunWeeklyDigest(ctx); err != nil {
			r.logger.Error("weekly digest run failed", "error", err.Error())
		}
	})
	go r.loop(ctx, "daily reminders", r.nextReminders, func(ctx context.Context) {
		if _, err := r.reminders.RunDailyReminders(ctx); err != nil {
			r.logger.Error("daily reminders run failed", "error", err.Error())
		}
	})
}

// Stop cancels the trigger loops and waits for them to exit.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, next func(time.Time) time.Time, run func(context.Context)) {
	defer r.wg.Done()

	for {
		fireAt := next(time.Now().In(r.location))
		r.logger.Info("trigger scheduled", "trigger", name, "at", fireAt.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(fireAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			run(ctx)
		}
	}
}

// nextDigest returns the next occurrence of the digest weekday and time
// strictly after now.
func (r *Runner) nextDigest(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), r.digestAt.hour, r.digestAt.minute, 0, 0, r.location)
	daysAhead := (int(r.digestDay) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// nextReminders returns the next daily reminder time strictly after now.
func (r *Runner) nextReminders(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), r.remindersAt.hour, r.remindersAt.minute, 0, 0, r.location)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", name)
}

func parseClockTime(s string) (clockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return clockTime{}, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return clockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return clockTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return clockTime{hour: hour, minute: minute}, nil
}

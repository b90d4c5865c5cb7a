package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/fittrack/fittrack/internal/schedule"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

// milestoneThresholds are weekly completed-workout counts worth an
// achievement notification.
var milestoneThresholds = []int{5, 10}

type sweepSchedulesRepo interface {
	ListDueReminders(ctx context.Context, date time.Time, timeFrom, timeTo string) ([]schedule.ScheduledWorkout, error)
	MarkPastDueMissed(ctx context.Context, cutoff time.Time) (int64, error)
}

type sweepGuardsRepo interface {
	ReminderExists(ctx context.Context, scheduleID int64) (bool, error)
	HighestMilestone(ctx context.Context, userID int64) (int, error)
	SetHighestMilestone(ctx context.Context, userID int64, milestone int) error
}

type completionsRepo interface {
	CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	UserIDsWithCompletionsSince(ctx context.Context, since time.Time) ([]int64, error)
}

type userNotifier interface {
	NotifyUser(ctx context.Context, userID int64, title, message, ntype string, relatedID int64, relatedType string) error
}

// Sweeper runs the periodic background passes: upcoming workout
// reminders, past-due schedule entries, and achievement milestones.
// A failed pass logs and waits for the next tick, it never crashes
// the loop.
type Sweeper struct {
	schedules      sweepSchedulesRepo
	guards         sweepGuardsRepo
	completions    completionsRepo
	notifier       userNotifier
	metricsManager *metrics.Manager

	interval    time.Duration
	lookahead   time.Duration
	missedGrace time.Duration

	now func() time.Time
}

type NewSweeperParams struct {
	Schedules      sweepSchedulesRepo
	Guards         sweepGuardsRepo
	Completions    completionsRepo
	Notifier       userNotifier
	MetricsManager *metrics.Manager
	Interval       time.Duration
	Lookahead      time.Duration
	MissedGrace    time.Duration
}

func NewSweeper(params NewSweeperParams) *Sweeper {
	return &Sweeper{
		schedules:      params.Schedules,
		guards:         params.Guards,
		completions:    params.Completions,
		notifier:       params.Notifier,
		metricsManager: params.MetricsManager,
		interval:       params.Interval,
		lookahead:      params.Lookahead,
		missedGrace:    params.MissedGrace,
		now:            time.Now,
	}
}

// Run blocks, ticking until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Debugf(
		"sweeper starting: interval %s, lookahead %s, missed grace %s",
		s.interval, s.lookahead, s.missedGrace,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugln("sweeper stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs all sweep passes once.
func (s *Sweeper) Tick(ctx context.Context) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sweeper.tick")
	defer span.End()

	start := s.now()
	defer func() {
		s.metricsManager.HistSweepDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.SweepUpcomingReminders(ctx); err != nil {
		log.Errorf("sweep upcoming reminders: %s", err)
		s.metricsManager.CounterSweepErrors.Inc()
	}
	if err := s.SweepMissedSchedules(ctx); err != nil {
		log.Errorf("sweep missed schedules: %s", err)
		s.metricsManager.CounterSweepErrors.Inc()
	}
	if err := s.SweepAchievements(ctx); err != nil {
		log.Errorf("sweep achievements: %s", err)
		s.metricsManager.CounterSweepErrors.Inc()
	}
}

// SweepUpcomingReminders finds reminder-enabled schedule entries due
// within the lookahead window and notifies their owners, at most
// once per entry no matter how many ticks observe it.
func (s *Sweeper) SweepUpcomingReminders(ctx context.Context) error {
	now := s.now()
	timeFrom := now.Format("15:04")
	timeTo := now.Add(s.lookahead).Format("15:04")
	if timeTo < timeFrom {
		// window crosses midnight, check the rest of today only
		timeTo = "23:59"
	}

	due, err := s.schedules.ListDueReminders(ctx, pkg.DateOnly(now), timeFrom, timeTo)
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}

	for _, sw := range due {
		sent, err := s.remindOnce(ctx, sw)
		if err != nil {
			log.Errorf("remind for schedule %d: %s", sw.ID, err)
			s.metricsManager.CounterSweepErrors.Inc()
			continue
		}
		if sent {
			s.metricsManager.CounterRemindersSent.Inc()
		}
	}
	return nil
}

func (s *Sweeper) remindOnce(ctx context.Context, sw schedule.ScheduledWorkout) (bool, error) {
	exists, err := s.guards.ReminderExists(ctx, sw.ID)
	if err != nil {
		return false, fmt.Errorf("check reminder exists: %w", err)
	}
	if exists {
		return false, nil
	}

	dayLabel := sw.DayName
	if dayLabel == "" {
		dayLabel = fmt.Sprintf("Day %d", sw.DayNumber)
	}

	if err := s.notifier.NotifyUser(
		ctx, sw.UserID,
		"Workout reminder",
		fmt.Sprintf("%s - %s at %s", sw.PlanName, dayLabel, sw.ScheduledTime),
		TypeWorkoutReminder, sw.ID, "WorkoutSchedule",
	); err != nil {
		return false, fmt.Errorf("notify user %d: %w", sw.UserID, err)
	}
	return true, nil
}

// SweepMissedSchedules flips still-scheduled entries older than the
// grace period to missed.
func (s *Sweeper) SweepMissedSchedules(ctx context.Context) error {
	cutoff := s.now().Add(-s.missedGrace)
	flipped, err := s.schedules.MarkPastDueMissed(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("mark past due missed: %w", err)
	}
	if flipped > 0 {
		log.Debugf("marked %d scheduled workouts as missed", flipped)
	}
	return nil
}

// SweepAchievements notifies users crossing weekly completion
// milestones. The persisted high-water mark makes each threshold fire
// once even if the count jumps straight past it.
func (s *Sweeper) SweepAchievements(ctx context.Context) error {
	since := s.now().Add(-7 * 24 * time.Hour)

	userIDs, err := s.completions.UserIDsWithCompletionsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list users with recent completions: %w", err)
	}

	for _, userID := range userIDs {
		if err := s.sweepUserAchievements(ctx, userID, since); err != nil {
			log.Errorf("sweep achievements for user %d: %s", userID, err)
			s.metricsManager.CounterSweepErrors.Inc()
		}
	}
	return nil
}

func (s *Sweeper) sweepUserAchievements(ctx context.Context, userID int64, since time.Time) error {
	count, err := s.completions.CountCompletedSince(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("count completions: %w", err)
	}

	highest, err := s.guards.HighestMilestone(ctx, userID)
	if err != nil {
		return fmt.Errorf("get highest milestone: %w", err)
	}

	for _, threshold := range milestoneThresholds {
		if count < threshold || threshold <= highest {
			continue
		}

		if err := s.notifier.NotifyUser(
			ctx, userID,
			"Achievement unlocked",
			fmt.Sprintf("you completed %d workouts this week, keep it up!", threshold),
			TypeAchievement, 0, "",
		); err != nil {
			return fmt.Errorf("notify user: %w", err)
		}

		highest = threshold
		if err := s.guards.SetHighestMilestone(ctx, userID, highest); err != nil {
			return fmt.Errorf("set highest milestone: %w", err)
		}
	}
	return nil
}

package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/fittrack/fittrack/internal/schedule"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweepSchedules struct {
	schedules []schedule.ScheduledWorkout
}

func (f *fakeSweepSchedules) ListDueReminders(
	_ context.Context, date time.Time, timeFrom, timeTo string,
) ([]schedule.ScheduledWorkout, error) {
	due := make([]schedule.ScheduledWorkout, 0)
	for _, sw := range f.schedules {
		if sw.Status != schedule.StatusScheduled || !sw.ReminderEnabled {
			continue
		}
		if !sw.ScheduledDate.Equal(date) {
			continue
		}
		if sw.ScheduledTime >= timeFrom && sw.ScheduledTime <= timeTo {
			due = append(due, sw)
		}
	}
	return due, nil
}

func (f *fakeSweepSchedules) MarkPastDueMissed(_ context.Context, cutoff time.Time) (int64, error) {
	var flipped int64
	for i := range f.schedules {
		sw := &f.schedules[i]
		if sw.Status != schedule.StatusScheduled {
			continue
		}
		slotTime, err := time.Parse("15:04", sw.ScheduledTime)
		if err != nil {
			continue
		}
		slot := sw.ScheduledDate.Add(
			time.Duration(slotTime.Hour())*time.Hour + time.Duration(slotTime.Minute())*time.Minute,
		)
		if slot.Before(cutoff) {
			sw.Status = schedule.StatusMissed
			flipped++
		}
	}
	return flipped, nil
}

type fakeGuards struct {
	reminders  map[int64]bool
	milestones map[int64]int
}

func newFakeGuards() *fakeGuards {
	return &fakeGuards{reminders: map[int64]bool{}, milestones: map[int64]int{}}
}

func (f *fakeGuards) ReminderExists(_ context.Context, scheduleID int64) (bool, error) {
	return f.reminders[scheduleID], nil
}

func (f *fakeGuards) HighestMilestone(_ context.Context, userID int64) (int, error) {
	return f.milestones[userID], nil
}

func (f *fakeGuards) SetHighestMilestone(_ context.Context, userID int64, milestone int) error {
	f.milestones[userID] = milestone
	return nil
}

type fakeCompletions struct {
	counts map[int64]int
}

func (f *fakeCompletions) CountCompletedSince(_ context.Context, userID int64, _ time.Time) (int, error) {
	return f.counts[userID], nil
}

func (f *fakeCompletions) UserIDsWithCompletionsSince(_ context.Context, _ time.Time) ([]int64, error) {
	userIDs := make([]int64, 0, len(f.counts))
	for id := range f.counts {
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}

type sentNotification struct {
	userID               int64
	title, message, typ  string
	relatedID            int64
	relatedType          string
}

type recordingUserNotifier struct {
	guards *fakeGuards
	sent   []sentNotification
}

func (r *recordingUserNotifier) NotifyUser(
	_ context.Context, userID int64, title, message, ntype string, relatedID int64, relatedType string,
) error {
	r.sent = append(r.sent, sentNotification{userID, title, message, ntype, relatedID, relatedType})
	if ntype == TypeWorkoutReminder {
		// mirrors the real flow: the created row is what ReminderExists finds
		r.guards.reminders[relatedID] = true
	}
	return nil
}

func newTestSweeper(schedules *fakeSweepSchedules, completions *fakeCompletions) (*Sweeper, *recordingUserNotifier, *fakeGuards) {
	guards := newFakeGuards()
	notifier := &recordingUserNotifier{guards: guards}
	s := NewSweeper(NewSweeperParams{
		Schedules:      schedules,
		Guards:         guards,
		Completions:    completions,
		Notifier:       notifier,
		MetricsManager: metrics.NewTestManager(),
		Interval:       time.Minute,
		Lookahead:      30 * time.Minute,
		MissedGrace:    2 * time.Hour,
	})
	return s, notifier, guards
}

func TestSweepUpcomingReminders_ExactlyOnce(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	schedules := &fakeSweepSchedules{schedules: []schedule.ScheduledWorkout{
		{
			ID: 1, UserID: 5, ScheduledDate: date, ScheduledTime: "18:00",
			ReminderEnabled: true, Status: schedule.StatusScheduled,
			PlanName: "Foundation", DayName: "Day 3",
		},
		{
			// reminder disabled, never picked up
			ID: 2, UserID: 5, ScheduledDate: date, ScheduledTime: "18:05",
			ReminderEnabled: false, Status: schedule.StatusScheduled,
		},
		{
			// outside the window
			ID: 3, UserID: 5, ScheduledDate: date, ScheduledTime: "21:00",
			ReminderEnabled: true, Status: schedule.StatusScheduled,
		},
	}}
	s, notifier, _ := newTestSweeper(schedules, &fakeCompletions{counts: map[int64]int{}})

	s.now = func() time.Time { return time.Date(2025, 6, 1, 17, 45, 0, 0, time.UTC) }
	require.NoError(t, s.SweepUpcomingReminders(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(5), notifier.sent[0].userID)
	assert.Equal(t, TypeWorkoutReminder, notifier.sent[0].typ)
	assert.Equal(t, int64(1), notifier.sent[0].relatedID)
	assert.Equal(t, "WorkoutSchedule", notifier.sent[0].relatedType)
	assert.Contains(t, notifier.sent[0].message, "Foundation")
	assert.Contains(t, notifier.sent[0].message, "18:00")

	// a minute later the same entry is still in the window, but the
	// reminder must not repeat
	s.now = func() time.Time { return time.Date(2025, 6, 1, 17, 46, 0, 0, time.UTC) }
	require.NoError(t, s.SweepUpcomingReminders(context.Background()))
	assert.Len(t, notifier.sent, 1)
}

func TestSweepMissedSchedules_OnlyPastDue(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	schedules := &fakeSweepSchedules{schedules: []schedule.ScheduledWorkout{
		{ID: 1, ScheduledDate: date, ScheduledTime: "08:00", Status: schedule.StatusScheduled},
		{ID: 2, ScheduledDate: date, ScheduledTime: "19:00", Status: schedule.StatusScheduled},
		{ID: 3, ScheduledDate: date, ScheduledTime: "07:00", Status: schedule.StatusCompleted},
	}}
	s, _, _ := newTestSweeper(schedules, &fakeCompletions{counts: map[int64]int{}})

	// 18:00 with a two hour grace: only the 08:00 entry is past due
	s.now = func() time.Time { return time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC) }
	require.NoError(t, s.SweepMissedSchedules(context.Background()))

	assert.Equal(t, schedule.StatusMissed, schedules.schedules[0].Status)
	assert.Equal(t, schedule.StatusScheduled, schedules.schedules[1].Status)
	// completed stays completed
	assert.Equal(t, schedule.StatusCompleted, schedules.schedules[2].Status)
}

func TestSweepAchievements_HighWaterMark(t *testing.T) {
	completions := &fakeCompletions{counts: map[int64]int{42: 7}}
	s, notifier, guards := newTestSweeper(&fakeSweepSchedules{}, completions)

	require.NoError(t, s.SweepAchievements(context.Background()))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, TypeAchievement, notifier.sent[0].typ)
	assert.Equal(t, 5, guards.milestones[42])

	// same count again: milestone 5 already fired, nothing new
	require.NoError(t, s.SweepAchievements(context.Background()))
	assert.Len(t, notifier.sent, 1)

	// count jumps past 10: only the unnotified threshold fires
	completions.counts[42] = 12
	require.NoError(t, s.SweepAchievements(context.Background()))
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, 10, guards.milestones[42])
}

func TestSweepAchievements_CountJumpsPastBoth(t *testing.T) {
	completions := &fakeCompletions{counts: map[int64]int{9: 11}}
	s, notifier, guards := newTestSweeper(&fakeSweepSchedules{}, completions)

	// both thresholds unnotified and below the count: both fire in one pass
	require.NoError(t, s.SweepAchievements(context.Background()))
	assert.Len(t, notifier.sent, 2)
	assert.Equal(t, 10, guards.milestones[9])
}

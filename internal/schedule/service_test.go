package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fittrack/fittrack/internal/enrollment"
	"github.com/fittrack/fittrack/internal/schedule"
	"github.com/fittrack/fittrack/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchedulesRepo struct {
	schedules map[int64]*schedule.ScheduledWorkout
	nextID    int64
}

func newFakeSchedulesRepo() *fakeSchedulesRepo {
	return &fakeSchedulesRepo{schedules: map[int64]*schedule.ScheduledWorkout{}, nextID: 1}
}

func (f *fakeSchedulesRepo) Create(_ context.Context, sw schedule.ScheduledWorkout) (*schedule.ScheduledWorkout, error) {
	sw.ID = f.nextID
	sw.Status = schedule.StatusScheduled
	sw.CreatedAt = time.Now()
	f.nextID++
	f.schedules[sw.ID] = &sw
	return &sw, nil
}

func (f *fakeSchedulesRepo) Get(_ context.Context, id int64) (*schedule.ScheduledWorkout, error) {
	sw, ok := f.schedules[id]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	copied := *sw
	return &copied, nil
}

func (f *fakeSchedulesRepo) ListForDate(_ context.Context, userID int64, date time.Time) ([]schedule.ScheduledWorkout, error) {
	schedules := make([]schedule.ScheduledWorkout, 0)
	for _, sw := range f.schedules {
		if sw.UserID == userID && sw.ScheduledDate.Equal(date) {
			schedules = append(schedules, *sw)
		}
	}
	return schedules, nil
}

func (f *fakeSchedulesRepo) ListUpcoming(_ context.Context, userID int64, from time.Time, limit int) ([]schedule.ScheduledWorkout, error) {
	schedules := make([]schedule.ScheduledWorkout, 0)
	for _, sw := range f.schedules {
		if sw.UserID == userID && !sw.ScheduledDate.Before(from) && sw.Status == schedule.StatusScheduled {
			schedules = append(schedules, *sw)
		}
		if len(schedules) == limit {
			break
		}
	}
	return schedules, nil
}

func (f *fakeSchedulesRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	sw, ok := f.schedules[id]
	if !ok {
		return schedule.ErrScheduleNotFound
	}
	sw.Status = status
	return nil
}

func (f *fakeSchedulesRepo) Delete(_ context.Context, userID, id int64) error {
	sw, ok := f.schedules[id]
	if !ok || sw.UserID != userID {
		return schedule.ErrScheduleNotFound
	}
	delete(f.schedules, id)
	return nil
}

type fakeEnrollments struct {
	enrollments map[[2]int64]*enrollment.Enrollment
}

func (f *fakeEnrollments) GetByUserAndPlan(_ context.Context, userID, planID int64) (*enrollment.Enrollment, error) {
	e, ok := f.enrollments[[2]int64{userID, planID}]
	if !ok {
		return nil, enrollment.ErrEnrollmentNotFound
	}
	return e, nil
}

type fakeDays struct {
	days map[int64]*workout.Day
}

func (f *fakeDays) GetDay(_ context.Context, id int64) (*workout.Day, error) {
	d, ok := f.days[id]
	if !ok {
		return nil, workout.ErrDayNotFound
	}
	return d, nil
}

type recordingCompleter struct {
	completed []enrollment.CompleteDayParams
	err       error
}

func (r *recordingCompleter) CompleteDay(
	_ context.Context, params enrollment.CompleteDayParams,
) (*enrollment.Enrollment, bool, error) {
	if r.err != nil {
		return nil, false, r.err
	}
	r.completed = append(r.completed, params)
	return &enrollment.Enrollment{ID: params.EnrollmentID}, false, nil
}

func newTestService() (*schedule.Service, *fakeSchedulesRepo, *recordingCompleter) {
	repo := newFakeSchedulesRepo()
	enrollments := &fakeEnrollments{enrollments: map[[2]int64]*enrollment.Enrollment{
		{1, 7}: {ID: 11, UserID: 1, WorkoutPlanID: 7, IsActive: true},
		{2, 7}: {ID: 12, UserID: 2, WorkoutPlanID: 7, IsActive: false},
	}}
	days := &fakeDays{days: map[int64]*workout.Day{
		103: {ID: 103, WorkoutPlanID: 7, DayNumber: 3, Name: "Day 3"},
	}}
	completer := &recordingCompleter{}
	return schedule.NewService(repo, enrollments, days, completer), repo, completer
}

func TestSchedule_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sw, err := svc.Schedule(ctx, schedule.ScheduleParams{
		UserID:          1,
		WorkoutPlanID:   7,
		WorkoutDayID:    103,
		Date:            date,
		Time:            "18:00",
		ReminderEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusScheduled, sw.Status)

	listed, err := svc.ListForDate(ctx, 1, date)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "18:00", listed[0].ScheduledTime)
	assert.True(t, listed[0].ReminderEnabled)
	assert.Equal(t, int64(103), listed[0].WorkoutDayID)
}

func TestSchedule_RequiresActiveEnrollment(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// no enrollment at all
	_, err := svc.Schedule(ctx, schedule.ScheduleParams{
		UserID: 3, WorkoutPlanID: 7, WorkoutDayID: 103, Date: date, Time: "18:00",
	})
	assert.ErrorIs(t, err, schedule.ErrNoActiveEnrollment)

	// enrollment exists but inactive
	_, err = svc.Schedule(ctx, schedule.ScheduleParams{
		UserID: 2, WorkoutPlanID: 7, WorkoutDayID: 103, Date: date, Time: "18:00",
	})
	assert.ErrorIs(t, err, schedule.ErrNoActiveEnrollment)
}

func TestUpdateStatus_CompletedLogsDay(t *testing.T) {
	svc, repo, completer := newTestService()
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sw, err := svc.Schedule(ctx, schedule.ScheduleParams{
		UserID: 1, WorkoutPlanID: 7, WorkoutDayID: 103, Date: date, Time: "18:00",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, 1, sw.ID, schedule.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, updated.Status)

	// completion went through the shared enrollment path, scoped to the caller
	require.Len(t, completer.completed, 1)
	assert.Equal(t, int64(1), completer.completed[0].UserID)
	assert.Equal(t, int64(11), completer.completed[0].EnrollmentID)
	assert.Equal(t, int64(103), completer.completed[0].WorkoutDayID)

	// completed is terminal
	_, err = svc.UpdateStatus(ctx, 1, sw.ID, schedule.StatusMissed)
	assert.ErrorIs(t, err, schedule.ErrStatusFinal)

	// not the owner -> not found
	_, err = svc.UpdateStatus(ctx, 2, sw.ID, schedule.StatusCompleted)
	assert.ErrorIs(t, err, schedule.ErrScheduleNotFound)

	// the day was logged exactly once through all of that
	assert.Len(t, completer.completed, 1)
	assert.Equal(t, schedule.StatusCompleted, repo.schedules[sw.ID].Status)
}

func TestUpdateStatus_CompletionFailureKeepsScheduled(t *testing.T) {
	svc, repo, completer := newTestService()
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sw, err := svc.Schedule(ctx, schedule.ScheduleParams{
		UserID: 1, WorkoutPlanID: 7, WorkoutDayID: 103, Date: date, Time: "18:00",
	})
	require.NoError(t, err)

	completer.err = errors.New("db gone")
	_, err = svc.UpdateStatus(ctx, 1, sw.ID, schedule.StatusCompleted)
	require.Error(t, err)
	// the entry went back to scheduled, so the retry is clean and the
	// day ends up logged once
	assert.Equal(t, schedule.StatusScheduled, repo.schedules[sw.ID].Status)
	assert.Empty(t, completer.completed)

	completer.err = nil
	updated, err := svc.UpdateStatus(ctx, 1, sw.ID, schedule.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, updated.Status)
	assert.Len(t, completer.completed, 1)
}

func TestDelete_OwnerScoped(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sw, err := svc.Schedule(ctx, schedule.ScheduleParams{
		UserID: 1, WorkoutPlanID: 7, WorkoutDayID: 103, Date: date, Time: "07:30",
	})
	require.NoError(t, err)

	// someone else's delete does nothing
	assert.ErrorIs(t, svc.Delete(ctx, 2, sw.ID), schedule.ErrScheduleNotFound)
	require.NoError(t, svc.Delete(ctx, 1, sw.ID))
}

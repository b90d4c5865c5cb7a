package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittrack/fittrack/internal/enrollment"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/workout"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoActiveEnrollment = errors.New("no active enrollment for that workout plan")
	ErrStatusFinal        = errors.New("scheduled workout status is final")
	ErrInvalidStatus      = errors.New("invalid schedule status")
)

const upcomingLimit = 5

type schedulesRepo interface {
	Create(ctx context.Context, sw ScheduledWorkout) (*ScheduledWorkout, error)
	Get(ctx context.Context, id int64) (*ScheduledWorkout, error)
	ListForDate(ctx context.Context, userID int64, date time.Time) ([]ScheduledWorkout, error)
	ListUpcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]ScheduledWorkout, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, userID, id int64) error
}

type enrollmentsRepo interface {
	GetByUserAndPlan(ctx context.Context, userID, workoutPlanID int64) (*enrollment.Enrollment, error)
}

type daysRepo interface {
	GetDay(ctx context.Context, id int64) (*workout.Day, error)
}

// dayCompleter is enrollment's CompleteDay path, shared so marking a
// schedule entry completed applies the exact same progress rule.
type dayCompleter interface {
	CompleteDay(ctx context.Context, params enrollment.CompleteDayParams) (*enrollment.Enrollment, bool, error)
}

type Service struct {
	repo        schedulesRepo
	enrollments enrollmentsRepo
	days        daysRepo
	completer   dayCompleter

	now func() time.Time
}

func NewService(
	repo schedulesRepo,
	enrollments enrollmentsRepo,
	days daysRepo,
	completer dayCompleter,
) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		days:        days,
		completer:   completer,
		now:         time.Now,
	}
}

type ScheduleParams struct {
	UserID          int64
	WorkoutPlanID   int64
	WorkoutDayID    int64
	Date            time.Time
	Time            string
	ReminderEnabled bool
}

// Schedule places a workout day on the calendar. Requires an active
// enrollment for the plan. Double-booking the same slot is allowed.
func (s *Service) Schedule(ctx context.Context, params ScheduleParams) (*ScheduledWorkout, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "schedule.schedule")
	defer span.End()

	e, err := s.enrollments.GetByUserAndPlan(ctx, params.UserID, params.WorkoutPlanID)
	if err != nil {
		if errors.Is(err, enrollment.ErrEnrollmentNotFound) {
			return nil, ErrNoActiveEnrollment
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if !e.IsActive {
		return nil, ErrNoActiveEnrollment
	}

	day, err := s.days.GetDay(ctx, params.WorkoutDayID)
	if err != nil {
		return nil, fmt.Errorf("get day %d: %w", params.WorkoutDayID, err)
	}
	if day.WorkoutPlanID != params.WorkoutPlanID {
		return nil, workout.ErrDayNotFound
	}

	if _, err := time.Parse("15:04", params.Time); err != nil {
		return nil, fmt.Errorf("invalid time %q: %w", params.Time, err)
	}

	return s.repo.Create(ctx, ScheduledWorkout{
		UserID:          params.UserID,
		UserWorkoutID:   e.ID,
		WorkoutDayID:    params.WorkoutDayID,
		ScheduledDate:   params.Date,
		ScheduledTime:   params.Time,
		ReminderEnabled: params.ReminderEnabled,
	})
}

func (s *Service) ListForDate(ctx context.Context, userID int64, date time.Time) ([]ScheduledWorkout, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "schedule.listfordate")
	defer span.End()

	return s.repo.ListForDate(ctx, userID, date)
}

func (s *Service) ListUpcoming(ctx context.Context, userID int64) ([]ScheduledWorkout, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "schedule.listupcoming")
	defer span.End()

	today := pkg.DateOnly(s.now())
	return s.repo.ListUpcoming(ctx, userID, today, upcomingLimit)
}

func (s *Service) Delete(ctx context.Context, userID, scheduleID int64) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "schedule.delete")
	defer span.End()

	return s.repo.Delete(ctx, userID, scheduleID)
}

// UpdateStatus transitions a scheduled entry to completed or missed.
// Completed and missed are terminal. Completing also logs the day on
// the owning enrollment via the shared completion path.
func (s *Service) UpdateStatus(ctx context.Context, userID, scheduleID int64, status string) (*ScheduledWorkout, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "schedule.updatestatus")
	defer span.End()

	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	sw, err := s.repo.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sw.UserID != userID {
		return nil, ErrScheduleNotFound
	}
	if sw.Status != StatusScheduled {
		return nil, ErrStatusFinal
	}
	if status == StatusScheduled {
		return sw, nil
	}

	// the status flips before the day is logged: once the entry leaves
	// scheduled, a retry hits the terminal-status check above and the
	// same day cannot be counted twice
	if err := s.repo.UpdateStatus(ctx, scheduleID, status); err != nil {
		return nil, err
	}

	if status == StatusCompleted {
		if _, _, err := s.completer.CompleteDay(ctx, enrollment.CompleteDayParams{
			UserID:       userID,
			EnrollmentID: sw.UserWorkoutID,
			WorkoutDayID: sw.WorkoutDayID,
		}); err != nil {
			// put the entry back so the caller can retry cleanly
			if revertErr := s.repo.UpdateStatus(ctx, scheduleID, StatusScheduled); revertErr != nil {
				log.Errorf("revert schedule %d to scheduled: %s", scheduleID, revertErr)
			}
			return nil, fmt.Errorf("complete day: %w", err)
		}
	}

	sw.Status = status
	return sw, nil
}

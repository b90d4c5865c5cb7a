package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/workout"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

var ErrEnrollmentInactive = errors.New("enrollment is not active")

type enrollmentsRepo interface {
	Create(ctx context.Context, userID, workoutPlanID int64) (*Enrollment, error)
	Get(ctx context.Context, id int64) (*Enrollment, error)
	ListForUser(ctx context.Context, userID int64, activeOnly bool) ([]Enrollment, error)
	UpdateState(ctx context.Context, id int64, s ProgressState, lastCompletedAt time.Time) error
	Reset(ctx context.Context, id int64) error
	DeleteByUserAndPlan(ctx context.Context, userID, workoutPlanID int64) error
	AddHistory(ctx context.Context, h HistoryEntry) (*HistoryEntry, error)
}

type plansRepo interface {
	GetPlan(ctx context.Context, id int64) (*workout.Plan, error)
	GetDay(ctx context.Context, id int64) (*workout.Day, error)
	CountDays(ctx context.Context, planID int64) (int, error)
}

type adminNotifier interface {
	NotifyAdmin(ctx context.Context, title, message, ntype string, relatedID int64, relatedType string) error
}

type Service struct {
	repo     enrollmentsRepo
	plans    plansRepo
	notifier adminNotifier

	// swapped out in tests
	now func() time.Time
}

func NewService(repo enrollmentsRepo, plans plansRepo, notifier adminNotifier) *Service {
	return &Service{
		repo:     repo,
		plans:    plans,
		notifier: notifier,
		now:      time.Now,
	}
}

// Enroll adds a workout plan to the user's active list.
func (s *Service) Enroll(ctx context.Context, userID, workoutPlanID int64) (*Enrollment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "enrollment.enroll")
	defer span.End()

	plan, err := s.plans.GetPlan(ctx, workoutPlanID)
	if err != nil {
		return nil, fmt.Errorf("get plan %d: %w", workoutPlanID, err)
	}

	e, err := s.repo.Create(ctx, userID, workoutPlanID)
	if err != nil {
		return nil, err
	}
	e.PlanName = plan.Name

	// best effort, never fails the enroll
	if err := s.notifier.NotifyAdmin(
		ctx, "Workout plan added",
		fmt.Sprintf("user %d added workout plan %q to their list", userID, plan.Name),
		"workout_added", e.ID, "UserWorkout",
	); err != nil {
		log.Errorf("enroll, notify admin: %s", err)
	}

	return e, nil
}

type CompleteDayParams struct {
	UserID         int64
	EnrollmentID   int64
	WorkoutDayID   int64
	Duration       int
	CaloriesBurned int
	IsRestDay      bool
}

// CompleteDay logs one finished day and recomputes the enrollment's
// progress. The returned bool reports whether the whole program just
// got completed.
func (s *Service) CompleteDay(ctx context.Context, params CompleteDayParams) (*Enrollment, bool, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "enrollment.completeday")
	defer span.End()

	e, err := s.repo.Get(ctx, params.EnrollmentID)
	if err != nil {
		return nil, false, err
	}
	if e.UserID != params.UserID {
		// don't leak other users' enrollments
		return nil, false, ErrEnrollmentNotFound
	}
	if !e.IsActive {
		return nil, false, ErrEnrollmentInactive
	}

	day, err := s.plans.GetDay(ctx, params.WorkoutDayID)
	if err != nil {
		return nil, false, fmt.Errorf("get day %d: %w", params.WorkoutDayID, err)
	}
	if day.WorkoutPlanID != e.WorkoutPlanID {
		return nil, false, workout.ErrDayNotFound
	}

	totalDays, err := s.plans.CountDays(ctx, e.WorkoutPlanID)
	if err != nil {
		return nil, false, fmt.Errorf("count days for plan %d: %w", e.WorkoutPlanID, err)
	}

	completedAt := s.now()
	if _, err := s.repo.AddHistory(ctx, HistoryEntry{
		UserWorkoutID:  e.ID,
		WorkoutDayID:   day.ID,
		Completed:      !params.IsRestDay,
		Duration:       params.Duration,
		CaloriesBurned: params.CaloriesBurned,
		CompletedAt:    completedAt,
	}); err != nil {
		return nil, false, fmt.Errorf("add history: %w", err)
	}

	newState := RecomputeProgress(e.State(), totalDays, day.DayNumber)
	if err := s.repo.UpdateState(ctx, e.ID, newState, completedAt); err != nil {
		return nil, false, fmt.Errorf("update state: %w", err)
	}

	e.Progress = newState.Progress
	e.CurrentDay = newState.CurrentDay
	e.CompletedWorkouts = newState.CompletedWorkouts
	e.IsActive = newState.IsActive
	e.LastCompletedAt = &completedAt

	programComplete := !newState.IsActive
	if programComplete {
		log.Debugf("user %d completed workout plan %d", e.UserID, e.WorkoutPlanID)
	}
	return e, programComplete, nil
}

// Restart resets progress on a (typically completed) enrollment,
// keeping history. Only the owner can restart.
func (s *Service) Restart(ctx context.Context, userID, enrollmentID int64) (*Enrollment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "enrollment.restart")
	defer span.End()

	e, err := s.repo.Get(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrEnrollmentNotFound
	}

	if err := s.repo.Reset(ctx, enrollmentID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, enrollmentID)
}

// Remove takes the plan off the user's list entirely.
func (s *Service) Remove(ctx context.Context, userID, workoutPlanID int64) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "enrollment.remove")
	defer span.End()

	if err := s.repo.DeleteByUserAndPlan(ctx, userID, workoutPlanID); err != nil {
		return err
	}

	if err := s.notifier.NotifyAdmin(
		ctx, "Workout plan removed",
		fmt.Sprintf("user %d removed workout plan %d from their list", userID, workoutPlanID),
		"workout_removed", workoutPlanID, "WorkoutPlan",
	); err != nil {
		log.Errorf("remove enrollment, notify admin: %s", err)
	}
	return nil
}

func (s *Service) ListActive(ctx context.Context, userID int64) ([]Enrollment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "enrollment.listactive")
	defer span.End()

	enrollments, err := s.repo.ListForUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range enrollments {
		if enrollments[i].LastCompletedAt != nil {
			enrollments[i].LastCompleted = pkg.DayLabel(*enrollments[i].LastCompletedAt, now)
		}
	}
	return enrollments, nil
}

func (s *Service) ListCompleted(ctx context.Context, userID int64) ([]Enrollment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "enrollment.listcompleted")
	defer span.End()

	return s.repo.ListForUser(ctx, userID, false)
}

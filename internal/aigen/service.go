package aigen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fittrack/fittrack/internal/exercise"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/workout"

	log "github.com/sirupsen/logrus"
)

const (
	defaultSets     = 3
	defaultReps     = 10
	defaultRestTime = 60
)

type planGenerator interface {
	GenerateWorkoutPlan(ctx context.Context, prompt string) (*GeneratedPlan, error)
}

type plansRepo interface {
	AddPlan(ctx context.Context, p workout.Plan) (*workout.Plan, error)
	AddDay(ctx context.Context, d workout.Day) (*workout.Day, error)
	AddDayExercise(ctx context.Context, de workout.DayExercise) (*workout.DayExercise, error)
}

type exercisesRepo interface {
	GetByName(ctx context.Context, name string) (*exercise.Exercise, error)
	Add(ctx context.Context, e exercise.Exercise) (*exercise.Exercise, error)
}

type adminNotifier interface {
	NotifyAdmin(ctx context.Context, title, message, notificationType string, relatedID int64, relatedType string) error
}

// Service turns a model-generated plan into catalog rows. Exercises
// already present in the catalog are reused by name, unknown ones are
// created on the fly.
type Service struct {
	generator planGenerator
	plans     plansRepo
	exercises exercisesRepo
	notifier  adminNotifier
}

func NewService(
	generator planGenerator,
	plans plansRepo,
	exercises exercisesRepo,
	notifier adminNotifier,
) *Service {
	return &Service{
		generator: generator,
		plans:     plans,
		exercises: exercises,
		notifier:  notifier,
	}
}

func (s *Service) Generate(ctx context.Context, prompt string) (*workout.Plan, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "aigen.generate")
	defer span.End()

	generated, err := s.generator.GenerateWorkoutPlan(ctx, prompt)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.AddPlan(ctx, workout.Plan{
		Name:          generated.Name,
		Level:         normalizedLevel(generated.Level),
		DurationWeeks: generated.DurationWeeks,
		Goal:          generated.Goal,
		Equipment:     generated.Equipment,
		EstCalories:   generated.EstCalories,
		IsActive:      true,
	})
	if err != nil {
		return nil, err
	}

	for _, genDay := range generated.Days {
		day, err := s.plans.AddDay(ctx, workout.Day{
			WorkoutPlanID: plan.ID,
			DayNumber:     genDay.DayNumber,
			Name:          genDay.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("add day %d: %w", genDay.DayNumber, err)
		}

		for _, genEx := range genDay.Exercises {
			ex, err := s.resolveExercise(ctx, genEx)
			if err != nil {
				return nil, fmt.Errorf("resolve exercise %q: %w", genEx.Name, err)
			}

			de := workout.DayExercise{
				WorkoutDayID: day.ID,
				ExerciseID:   ex.ID,
				Sets:         genEx.Sets,
				Reps:         genEx.Reps,
				RestTime:     genEx.RestTime,
			}
			if de.Sets < 1 {
				de.Sets = defaultSets
			}
			if de.Reps < 1 {
				de.Reps = defaultReps
			}
			if de.RestTime < 1 {
				de.RestTime = defaultRestTime
			}
			added, err := s.plans.AddDayExercise(ctx, de)
			if err != nil {
				return nil, fmt.Errorf("add prescription for %q: %w", genEx.Name, err)
			}
			added.ExerciseName = ex.Name
			day.Exercises = append(day.Exercises, *added)
		}

		plan.Days = append(plan.Days, *day)
	}

	if err := s.notifier.NotifyAdmin(
		ctx,
		"New workout",
		fmt.Sprintf("AI generated workout plan created: %s", plan.Name),
		"new_workout",
		plan.ID, "WorkoutPlan",
	); err != nil {
		log.Errorf("notify admin about generated plan %d: %s", plan.ID, err)
	}

	return plan, nil
}

func (s *Service) resolveExercise(ctx context.Context, genEx GeneratedExercise) (*exercise.Exercise, error) {
	existing, err := s.exercises.GetByName(ctx, genEx.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, exercise.ErrExerciseNotFound) {
		return nil, err
	}

	created, err := s.exercises.Add(ctx, exercise.Exercise{
		Name:         genEx.Name,
		MuscleGroups: genEx.MuscleGroups,
		Difficulty:   normalizedLevel(genEx.Difficulty),
		Instructions: genEx.Instructions,
		IsActive:     true,
	})
	if err != nil {
		// lost a race against a concurrent insert, reread it
		if errors.Is(err, exercise.ErrExerciseExists) {
			return s.exercises.GetByName(ctx, genEx.Name)
		}
		return nil, err
	}
	return created, nil
}

func normalizedLevel(level string) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "beginner", "intermediate", "advanced":
		return l
	default:
		return "beginner"
	}
}

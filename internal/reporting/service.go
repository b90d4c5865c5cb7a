package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"
)

type reportingRepo interface {
	PlanAddedEvents(ctx context.Context, since time.Time) ([]Activity, error)
	PlanCreatedEvents(ctx context.Context, since time.Time) ([]Activity, error)
	PlanCompletedEvents(ctx context.Context, since time.Time) ([]Activity, error)
	PlanRestartedEvents(ctx context.Context, since time.Time) ([]Activity, error)
	UserCreatedAts(ctx context.Context) ([]time.Time, error)
	PlanPopularity(ctx context.Context, recentSince time.Time) ([]PlanPopularity, error)
}

type Service struct {
	repo reportingRepo

	now func() time.Time
}

func NewService(repo reportingRepo) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// RecentActivities merges the four event kinds into one feed, newest
// first, truncated to limit. Sorting happens on the event timestamps
// themselves, the humanized labels are display-only.
func (s *Service) RecentActivities(ctx context.Context, limit, windowDays int) ([]Activity, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "reporting.recentactivities")
	defer span.End()

	now := s.now()
	since := now.AddDate(0, 0, -windowDays)

	var activities []Activity
	for _, query := range []func(context.Context, time.Time) ([]Activity, error){
		s.repo.PlanAddedEvents,
		s.repo.PlanCreatedEvents,
		s.repo.PlanCompletedEvents,
		s.repo.PlanRestartedEvents,
	} {
		events, err := query(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("query activities: %w", err)
		}
		activities = append(activities, events...)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].OccurredAt.After(activities[j].OccurredAt)
	})

	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}

	for i := range activities {
		activities[i].TimeAgo = pkg.TimeAgo(activities[i].OccurredAt, now)
	}
	return activities, nil
}

// UserGrowth produces evenly spaced checkpoints over the trailing
// window, each holding the cumulative user count at that date.
func (s *Service) UserGrowth(ctx context.Context, days, intervalDays int) ([]GrowthPoint, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "reporting.usergrowth")
	defer span.End()

	if days < 1 {
		days = 30
	}
	if intervalDays < 1 {
		intervalDays = 1
	}

	createdAts, err := s.repo.UserCreatedAts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user created ats: %w", err)
	}

	now := s.now()
	points := make([]GrowthPoint, 0, days/intervalDays+1)
	for offset := days; offset >= 0; offset -= intervalDays {
		checkpoint := now.AddDate(0, 0, -offset)

		// createdAts are sorted, the count is the upper bound index
		count := sort.Search(len(createdAts), func(i int) bool {
			return createdAts[i].After(checkpoint)
		})
		points = append(points, GrowthPoint{Date: checkpoint, Users: count})
	}
	return points, nil
}

// PopularWorkoutPlans ranks plans by enrollment count and flags a
// plan trending up when its recent week exceeds 10% of its total.
func (s *Service) PopularWorkoutPlans(ctx context.Context) ([]PlanPopularity, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "reporting.popularplans")
	defer span.End()

	weekAgo := s.now().AddDate(0, 0, -7)
	rankings, err := s.repo.PlanPopularity(ctx, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("get plan popularity: %w", err)
	}

	for i := range rankings {
		if float64(rankings[i].RecentWeek) > 0.1*float64(rankings[i].Enrollments) {
			rankings[i].Trend = TrendUp
		} else {
			rankings[i].Trend = TrendDown
		}
	}
	return rankings, nil
}

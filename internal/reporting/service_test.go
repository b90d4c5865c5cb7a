package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReportingRepo struct {
	added, created, completed, restarted []Activity
	userCreatedAts                       []time.Time
	popularity                           []PlanPopularity
}

func (f *fakeReportingRepo) PlanAddedEvents(_ context.Context, _ time.Time) ([]Activity, error) {
	return f.added, nil
}

func (f *fakeReportingRepo) PlanCreatedEvents(_ context.Context, _ time.Time) ([]Activity, error) {
	return f.created, nil
}

func (f *fakeReportingRepo) PlanCompletedEvents(_ context.Context, _ time.Time) ([]Activity, error) {
	return f.completed, nil
}

func (f *fakeReportingRepo) PlanRestartedEvents(_ context.Context, _ time.Time) ([]Activity, error) {
	return f.restarted, nil
}

func (f *fakeReportingRepo) UserCreatedAts(_ context.Context) ([]time.Time, error) {
	return f.userCreatedAts, nil
}

func (f *fakeReportingRepo) PlanPopularity(_ context.Context, _ time.Time) ([]PlanPopularity, error) {
	return f.popularity, nil
}

func TestRecentActivities_MergedAndSorted(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	at := func(hoursAgo int) time.Time { return now.Add(-time.Duration(hoursAgo) * time.Hour) }

	repo := &fakeReportingRepo{
		added:     []Activity{{Kind: ActivityPlanAdded, PlanName: "A", OccurredAt: at(3)}},
		created:   []Activity{{Kind: ActivityPlanCreated, PlanName: "B", OccurredAt: at(1)}},
		completed: []Activity{{Kind: ActivityPlanCompleted, PlanName: "C", OccurredAt: at(2)}},
		restarted: []Activity{{Kind: ActivityPlanRestarted, PlanName: "D", OccurredAt: at(4)}},
	}
	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	activities, err := svc.RecentActivities(context.Background(), 3, 7)
	require.NoError(t, err)

	// newest first, truncated to the limit
	require.Len(t, activities, 3)
	assert.Equal(t, "B", activities[0].PlanName)
	assert.Equal(t, "C", activities[1].PlanName)
	assert.Equal(t, "A", activities[2].PlanName)
	assert.Equal(t, "1 hour ago", activities[0].TimeAgo)
}

func TestUserGrowth_CumulativeStepFunction(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeReportingRepo{userCreatedAts: []time.Time{
		now.AddDate(0, 0, -9),
		now.AddDate(0, 0, -5),
		now.AddDate(0, 0, -5),
		now.AddDate(0, 0, -1),
	}}
	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	points, err := svc.UserGrowth(context.Background(), 10, 5)
	require.NoError(t, err)

	// checkpoints at -10, -5 and 0 days
	require.Len(t, points, 3)
	assert.Equal(t, 0, points[0].Users)
	assert.Equal(t, 3, points[1].Users)
	assert.Equal(t, 4, points[2].Users)

	// cumulative counts never decrease
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Users, points[i-1].Users)
	}
}

func TestPopularWorkoutPlans_Trend(t *testing.T) {
	repo := &fakeReportingRepo{popularity: []PlanPopularity{
		{WorkoutPlanID: 1, Name: "Hot", Enrollments: 50, RecentWeek: 20},
		{WorkoutPlanID: 2, Name: "Stale", Enrollments: 100, RecentWeek: 5},
		{WorkoutPlanID: 3, Name: "Empty", Enrollments: 0, RecentWeek: 0},
	}}
	svc := NewService(repo)

	rankings, err := svc.PopularWorkoutPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, rankings, 3)
	assert.Equal(t, TrendUp, rankings[0].Trend)
	assert.Equal(t, TrendDown, rankings[1].Trend)
	assert.Equal(t, TrendDown, rankings[2].Trend)
}

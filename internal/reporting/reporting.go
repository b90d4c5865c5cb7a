package reporting

import "time"

const (
	ActivityPlanAdded     = "plan_added"
	ActivityPlanCreated   = "plan_created"
	ActivityPlanCompleted = "plan_completed"
	ActivityPlanRestarted = "plan_restarted"

	TrendUp   = "up"
	TrendDown = "down"
)

// Activity is one row in the admin recent-activity feed.
type Activity struct {
	Kind       string    `json:"kind"`
	UserName   string    `json:"userName,omitempty"`
	PlanName   string    `json:"planName"`
	OccurredAt time.Time `json:"occurredAt"`
	TimeAgo    string    `json:"timeAgo"`
}

// GrowthPoint is one checkpoint of the cumulative user count.
type GrowthPoint struct {
	Date  time.Time `json:"date"`
	Users int       `json:"users"`
}

// PlanPopularity ranks one plan by enrollments. Trend is a
// heuristic: up when the recent week holds more than 10% of all
// enrollments.
type PlanPopularity struct {
	WorkoutPlanID int64  `json:"workoutPlanId"`
	Name          string `json:"name"`
	Enrollments   int    `json:"enrollments"`
	RecentWeek    int    `json:"recentWeek"`
	Trend         string `json:"trend"`
}

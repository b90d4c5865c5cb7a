package schedule

import "time"

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusMissed    = "missed"
)

// ScheduledWorkout is a calendar placement of one workout day.
type ScheduledWorkout struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	UserWorkoutID   int64     `json:"userWorkoutId"`
	WorkoutDayID    int64     `json:"workoutDayId"`
	ScheduledDate   time.Time `json:"scheduledDate"`
	ScheduledTime   string    `json:"scheduledTime"`
	ReminderEnabled bool      `json:"reminderEnabled"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`

	// read-time annotations
	PlanName  string `json:"planName,omitempty"`
	DayName   string `json:"dayName,omitempty"`
	DayNumber int    `json:"dayNumber,omitempty"`
}

func ValidStatus(status string) bool {
	switch status {
	case StatusScheduled, StatusCompleted, StatusMissed:
		return true
	}
	return false
}

package enrollment

import "time"

// Enrollment is a user's relationship to one workout plan.
type Enrollment struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"userId"`
	WorkoutPlanID     int64      `json:"workoutPlanId"`
	Progress          float64    `json:"progress"`
	CurrentDay        int        `json:"currentDay"`
	IsActive          bool       `json:"isActive"`
	CompletedWorkouts int        `json:"completedWorkouts"`
	LastCompletedAt   *time.Time `json:"lastCompletedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	// read-time annotations, not stored
	PlanName      string `json:"planName,omitempty"`
	TotalDays     int    `json:"totalDays,omitempty"`
	LastCompleted string `json:"lastCompleted,omitempty"`
}

func (e *Enrollment) State() ProgressState {
	return ProgressState{
		Progress:          e.Progress,
		CurrentDay:        e.CurrentDay,
		CompletedWorkouts: e.CompletedWorkouts,
		IsActive:          e.IsActive,
	}
}

// HistoryEntry is one append-only day completion log row.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	UserWorkoutID  int64     `json:"userWorkoutId"`
	WorkoutDayID   int64     `json:"workoutDayId"`
	Completed      bool      `json:"completed"`
	Duration       int       `json:"duration"`
	CaloriesBurned int       `json:"caloriesBurned"`
	CompletedAt    time.Time `json:"completedAt"`
}

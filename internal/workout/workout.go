package workout

import "time"

type Plan struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Level         string    `json:"level"`
	DurationWeeks int       `json:"durationWeeks"`
	Goal          string    `json:"goal"`
	Equipment     []string  `json:"equipment"`
	EstCalories   int       `json:"estCalories"`
	ImagePath     string    `json:"imagePath"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// populated on detail reads only
	Days []Day `json:"days,omitempty"`
}

type Day struct {
	ID            int64  `json:"id"`
	WorkoutPlanID int64  `json:"workoutPlanId"`
	DayNumber     int    `json:"dayNumber"`
	Name          string `json:"name"`

	Exercises []DayExercise `json:"exercises,omitempty"`
}

// DayExercise is one prescription: an exercise with its
// sets/reps/rest within a particular workout day.
type DayExercise struct {
	ID           int64  `json:"id"`
	WorkoutDayID int64  `json:"workoutDayId"`
	ExerciseID   int64  `json:"exerciseId"`
	ExerciseName string `json:"exerciseName"`
	Sets         int    `json:"sets"`
	Reps         int    `json:"reps"`
	RestTime     int    `json:"restTime"`
}

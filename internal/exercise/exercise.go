package exercise

import "time"

type Exercise struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	MuscleGroups       []string  `json:"muscleGroups"`
	Difficulty         string    `json:"difficulty"`
	Instructions       string    `json:"instructions"`
	Equipment          []string  `json:"equipment"`
	ImagePath          string    `json:"imagePath"`
	VideoPath          string    `json:"videoPath"`
	EstCalories        int       `json:"estCalories"`
	EstDurationSeconds int       `json:"estDurationSeconds"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

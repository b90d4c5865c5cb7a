package user

import "time"

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Name         string     `json:"name"`
	HeightCm     *float64   `json:"heightCm,omitempty"`
	WeightKg     *float64   `json:"weightKg,omitempty"`
	FitnessGoal  string     `json:"fitnessGoal"`
	FitnessLevel string     `json:"fitnessLevel"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

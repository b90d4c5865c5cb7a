package enrollment

// ProgressState is the mutable slice of an enrollment touched by a
// day completion. Kept separate so the recompute rule lives in one
// place and stays trivially testable.
type ProgressState struct {
	Progress          float64
	CurrentDay        int
	CompletedWorkouts int
	IsActive          bool
}

// RecomputeProgress applies one completed day to the enrollment state.
//
// The current-day pointer only ever moves forward: completing an
// earlier day out of order never regresses it. Progress is clamped to
// [0, 100] and the enrollment flips inactive exactly when it reaches
// 100.
func RecomputeProgress(s ProgressState, totalDays, completedDayNumber int) ProgressState {
	s.CompletedWorkouts++

	if totalDays > 0 {
		s.Progress = float64(s.CompletedWorkouts) / float64(totalDays) * 100
		if s.Progress > 100 {
			s.Progress = 100
		}
	}

	if completedDayNumber > s.CurrentDay {
		s.CurrentDay = completedDayNumber
	}

	if s.Progress >= 100 {
		s.IsActive = false
	}

	return s
}

package models

// CheckIn is one recorded completion event. At most one row exists per
// (user, habit, calendar date); repeated completions on the same date
// update that row rather than inserting another.
type CheckIn struct {
	UserID     string `json:"user_id"`
	HabitName  string `json:"habit_name"`
	Date       string `json:"check_date"` // YYYY-MM-DD
	Time       string `json:"check_time"` // HH:MM:SS
	Repetition int    `json:"repetition"`
	Streak     int    `json:"streak"`
}

// HabitStreak is an aggregate row pairing a habit with a streak value.
type HabitStreak struct {
	HabitName string `json:"habit_name"`
	Streak    int    `json:"streak"`
}

// HabitRepetitions is an aggregate row pairing a habit with its total
// recorded repetitions.
type HabitRepetitions struct {
	HabitName   string `json:"habit_name"`
	Repetitions int    `json:"repetitions"`
}

package storage

import "github.com/julianstephens/habitual/internal/models"

// PredefinedHabits are the shared stress-reduction templates inserted at
// init. They have no owner and are never mutated; checking one creates a
// per-user copy.
func PredefinedHabits() []models.Habit {
	return []models.Habit{
		{Name: "PMR", Description: "Progressive Muscle Relaxation: Relaxing each muscle group.", Category: "Relaxing", CreatedDate: "2025-04-01", Interval: models.IntervalDaily},
		{Name: "Meditation", Description: "Reduce stress by observing one's body, thoughts, and feelings without judging them.", Category: "Relaxing", CreatedDate: "2025-04-01", Interval: models.IntervalWeekly},
		{Name: "Journaling", Description: "It is a method to channel negative thoughts by positively reviewing the day.", Category: "Cognitive", CreatedDate: "2025-04-01", Interval: models.IntervalDaily},
		{Name: "Week Planning", Description: "Reduce stress by carefully planning appointments for the next week.", Category: "Cognitive", CreatedDate: "2025-04-01", Interval: models.IntervalWeekly},
		{Name: "Yoga", Description: "Combining movement with mindfulness and breathing techniques.", Category: "Physical", CreatedDate: "2025-04-01", Interval: models.IntervalDaily},
		{Name: "Jogging", Description: "Physical activity by running.", Category: "Physical", CreatedDate: "2025-04-01", Interval: models.IntervalWeekly},
	}
}

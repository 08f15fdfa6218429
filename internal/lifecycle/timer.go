package lifecycle

import (
	"math"
	"time"

	"github.com/opsdesk-api/internal/models"
)

// RoundHours converts a duration to hours rounded to two decimals
func RoundHours(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Round(d.Hours()*100) / 100
}

// CloseEntry stops an open time entry. Closed entries are left alone.
func CloseEntry(e *models.TimeEntry, now time.Time) bool {
	if e.EndTime != nil {
		return false
	}
	hours := RoundHours(now.Sub(e.StartTime))
	e.EndTime = &now
	e.Hours = &hours
	return true
}

// TimerStartAction returns the task action implied by starting a timer on a
// task in status s. An empty action means the task is already in progress.
func TimerStartAction(s models.GlobalTaskStatus) (TaskAction, error) {
	switch s {
	case models.GlobalTaskTodo:
		return ActionStart, nil
	case models.GlobalTaskBlocked:
		return ActionResume, nil
	case models.GlobalTaskInProgress:
		return "", nil
	}
	return "", invalid("task", "start timer on", s)
}

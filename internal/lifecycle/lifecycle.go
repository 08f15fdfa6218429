// Package lifecycle holds the status machines of jobs, job tasks, global
// tasks, staff check-ins and task timers. Functions here mutate the record
// in memory and report the side effects; persistence is left to callers.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/opsdesk-api/internal/models"
)

// ErrInvalidTransition is returned when an action is not legal from the
// record's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// TaskAction is a user-initiated status change on a task
type TaskAction string

const (
	ActionStart    TaskAction = "start"
	ActionComplete TaskAction = "complete"
	ActionBlock    TaskAction = "block"
	ActionResume   TaskAction = "resume"
)

// ValidTaskActions lists the actions accepted on task routes
var ValidTaskActions = map[TaskAction]bool{
	ActionStart:    true,
	ActionComplete: true,
	ActionBlock:    true,
	ActionResume:   true,
}

func invalid(entity string, action any, from any) error {
	return fmt.Errorf("%w: cannot %v %s in status %v", ErrInvalidTransition, action, entity, from)
}

// The two task tables evolved separately and keep their own vocabularies.
// These tables translate between them; nothing in this package applies them
// implicitly.
var globalToJobTaskStatus = map[models.GlobalTaskStatus]models.JobTaskStatus{
	models.GlobalTaskTodo:       models.JobTaskNotStarted,
	models.GlobalTaskInProgress: models.JobTaskInProgress,
	models.GlobalTaskDone:       models.JobTaskCompleted,
	models.GlobalTaskBlocked:    models.JobTaskBlocked,
}

var globalToJobTaskPriority = map[models.GlobalTaskPriority]models.JobTaskPriority{
	models.GlobalPriorityLow:    models.JobPriorityLow,
	models.GlobalPriorityMedium: models.JobPriorityNormal,
	models.GlobalPriorityHigh:   models.JobPriorityHigh,
	models.GlobalPriorityUrgent: models.JobPriorityCritical,
}

// JobTaskStatusFor maps a global task status onto the job task vocabulary
func JobTaskStatusFor(s models.GlobalTaskStatus) (models.JobTaskStatus, bool) {
	v, ok := globalToJobTaskStatus[s]
	return v, ok
}

// GlobalTaskStatusFor maps a job task status onto the global task vocabulary
func GlobalTaskStatusFor(s models.JobTaskStatus) (models.GlobalTaskStatus, bool) {
	for g, j := range globalToJobTaskStatus {
		if j == s {
			return g, true
		}
	}
	return "", false
}

// JobTaskPriorityFor maps a global task priority onto the job task vocabulary
func JobTaskPriorityFor(p models.GlobalTaskPriority) (models.JobTaskPriority, bool) {
	v, ok := globalToJobTaskPriority[p]
	return v, ok
}

// GlobalTaskPriorityFor maps a job task priority onto the global task vocabulary
func GlobalTaskPriorityFor(p models.JobTaskPriority) (models.GlobalTaskPriority, bool) {
	for g, j := range globalToJobTaskPriority {
		if j == p {
			return g, true
		}
	}
	return "", false
}

package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsdesk-api/internal/models"
)

type jobTaskEdge struct {
	from    []models.JobTaskStatus
	to      models.JobTaskStatus
	logType models.LogType
}

var jobTaskEdges = map[TaskAction]jobTaskEdge{
	ActionStart:    {[]models.JobTaskStatus{models.JobTaskNotStarted}, models.JobTaskInProgress, models.LogTypeStart},
	ActionComplete: {[]models.JobTaskStatus{models.JobTaskInProgress}, models.JobTaskCompleted, models.LogTypeComplete},
	ActionBlock:    {[]models.JobTaskStatus{models.JobTaskInProgress}, models.JobTaskBlocked, models.LogTypeBlock},
	ActionResume:   {[]models.JobTaskStatus{models.JobTaskBlocked}, models.JobTaskInProgress, models.LogTypeStart},
}

// ApplyJobTask moves a job task through action and returns the log entry
// that must be stored with it. Every successful transition yields exactly
// one log.
func ApplyJobTask(task *models.JobTask, action TaskAction, actor, note string, now time.Time) (*models.TaskLog, error) {
	edge, ok := jobTaskEdges[action]
	if !ok || !containsStatus(edge.from, task.Status) {
		return nil, invalid("job task", action, task.Status)
	}

	task.Status = edge.to
	task.UpdatedAt = now

	return &models.TaskLog{
		TaskID:    task.ID,
		StaffName: actor,
		LogType:   edge.logType,
		Notes:     transitionNote(action, string(edge.to), note),
		CreatedAt: now,
	}, nil
}

type globalTaskEdge struct {
	from []models.GlobalTaskStatus
	to   models.GlobalTaskStatus
}

var globalTaskEdges = map[TaskAction]globalTaskEdge{
	ActionStart:    {[]models.GlobalTaskStatus{models.GlobalTaskTodo}, models.GlobalTaskInProgress},
	ActionComplete: {[]models.GlobalTaskStatus{models.GlobalTaskInProgress}, models.GlobalTaskDone},
	ActionBlock:    {[]models.GlobalTaskStatus{models.GlobalTaskTodo, models.GlobalTaskInProgress}, models.GlobalTaskBlocked},
	ActionResume:   {[]models.GlobalTaskStatus{models.GlobalTaskBlocked}, models.GlobalTaskInProgress},
}

// ApplyGlobalTask moves a global task through action
func ApplyGlobalTask(task *models.GlobalTask, action TaskAction, now time.Time) error {
	edge, ok := globalTaskEdges[action]
	if !ok {
		return invalid("task", action, task.Status)
	}
	for _, s := range edge.from {
		if s == task.Status {
			task.Status = edge.to
			task.UpdatedAt = now
			return nil
		}
	}
	return invalid("task", action, task.Status)
}

// ValidateManualLog checks a user-written log entry. Status-bearing log
// types are reserved for transitions.
func ValidateManualLog(entry *models.TaskLog) error {
	switch entry.LogType {
	case models.LogTypeProgress:
		return nil
	case models.LogTypeNote:
		if strings.TrimSpace(entry.Notes) == "" {
			return fmt.Errorf("note log requires notes")
		}
		return nil
	}
	return fmt.Errorf("log type %q cannot be added manually", entry.LogType)
}

func transitionNote(action TaskAction, to, note string) string {
	msg := "Status changed to " + to
	if action == ActionResume {
		msg = "Resumed: " + strings.ToLower(msg[:1]) + msg[1:]
	}
	if note = strings.TrimSpace(note); note != "" {
		msg += ": " + note
	}
	return msg
}

func containsStatus(list []models.JobTaskStatus, s models.JobTaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

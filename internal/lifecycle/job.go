package lifecycle

import (
	"errors"
	"time"

	"github.com/opsdesk-api/internal/models"
)

// ErrEndBeforeStart rejects a time correction that would end a job before it started
var ErrEndBeforeStart = errors.New("end_time is before start_time")

// JobAction is a user-initiated status change on a job
type JobAction string

const (
	JobStart    JobAction = "start"
	JobComplete JobAction = "complete"
	JobCancel   JobAction = "cancel"
)

// JobPolicy tunes the job machine
type JobPolicy struct {
	// StrictCompletion rejects completing a job that was never started
	StrictCompletion bool
}

// JobChange reports what a job transition wrote
type JobChange struct {
	From models.JobStatus
	To   models.JobStatus
	// SkippedStart is set when a scheduled job was completed directly
	SkippedStart bool
}

// ApplyJob performs action on job at time now. start_time is written only
// on start and end_time only on complete.
func ApplyJob(job *models.Job, action JobAction, now time.Time, policy JobPolicy) (JobChange, error) {
	change := JobChange{From: job.Status}

	switch action {
	case JobStart:
		if job.Status != models.JobStatusScheduled {
			return change, invalid("job", action, job.Status)
		}
		job.Status = models.JobStatusInProgress
		job.StartTime = &now

	case JobComplete:
		switch job.Status {
		case models.JobStatusInProgress:
		case models.JobStatusScheduled:
			if policy.StrictCompletion {
				return change, invalid("job", action, job.Status)
			}
			change.SkippedStart = true
		default:
			return change, invalid("job", action, job.Status)
		}
		job.Status = models.JobStatusComplete
		job.EndTime = &now

	case JobCancel:
		if job.Status != models.JobStatusScheduled && job.Status != models.JobStatusInProgress {
			return change, invalid("job", action, job.Status)
		}
		job.Status = models.JobStatusCancelled

	default:
		return change, invalid("job", action, job.Status)
	}

	change.To = job.Status
	return change, nil
}

// IsTerminalJob reports whether no action leaves the status
func IsTerminalJob(s models.JobStatus) bool {
	return s == models.JobStatusComplete || s == models.JobStatusCancelled
}

// CorrectJobTimes overwrites the recorded start and end times. Nil values
// leave the field untouched. Status never changes.
func CorrectJobTimes(job *models.Job, start, end *time.Time) error {
	newStart, newEnd := job.StartTime, job.EndTime
	if start != nil {
		newStart = start
	}
	if end != nil {
		newEnd = end
	}
	if newStart != nil && newEnd != nil && newEnd.Before(*newStart) {
		return ErrEndBeforeStart
	}
	job.StartTime, job.EndTime = newStart, newEnd
	return nil
}

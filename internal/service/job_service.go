package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/metrics"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

// jobService is the concrete implementation of JobService
type jobService struct {
	jobs   repository.JobRepository
	staff  repository.StaffTimeRepository
	wrapup repository.WrapupRepository
	policy lifecycle.JobPolicy
	now    func() time.Time
	log    zerolog.Logger
}

func newJobService(
	jobs repository.JobRepository,
	staff repository.StaffTimeRepository,
	wrapup repository.WrapupRepository,
	policy lifecycle.JobPolicy,
	now func() time.Time,
	log zerolog.Logger,
) *jobService {
	return &jobService{
		jobs:   jobs,
		staff:  staff,
		wrapup: wrapup,
		policy: policy,
		now:    now,
		log:    log.With().Str("service", "job").Logger(),
	}
}

// Create stores a new scheduled job
func (s *jobService) Create(ctx context.Context, req *models.CreateJobRequest) (*models.Job, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	job := &models.Job{
		ID:            uuid.New().String(),
		Title:         strings.TrimSpace(req.Title),
		LeadID:        req.LeadID,
		ScheduledDate: req.ScheduledDate,
		Status:        models.JobStatusScheduled,
		SiteAddress:   req.SiteAddress,
		SiteNotes:     req.SiteNotes,
		CreatedAt:     s.now().UTC(),
		AssignedTo:    req.AssignedTo,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().Str("job_id", job.ID).Msg("Job created")
	return job, nil
}

// Get returns one job
func (s *jobService) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return job, nil
}

// Authorize returns the job when user may work on it. Users without the
// all-jobs capability only reach jobs they are assigned to.
func (s *jobService) Authorize(ctx context.Context, user *models.User, id string) (*models.Job, error) {
	scope := access.ScopeFor(user)
	if scope.Denied {
		return nil, ErrForbidden
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assignedTo(job, scope) {
		return nil, ErrForbidden
	}
	return job, nil
}

func assignedTo(job *models.Job, scope access.DataScope) bool {
	return scope.JobsAssignedTo == "" || slices.Contains(job.AssignedTo, scope.JobsAssignedTo)
}

// List returns jobs matching the filter
func (s *jobService) List(ctx context.Context, filter models.JobFilter) ([]*models.Job, error) {
	return s.jobs.List(ctx, filter)
}

// Transition applies a job action. Cancelling needs the assign-jobs
// capability; starting and completing are open to anyone on the job.
func (s *jobService) Transition(ctx context.Context, user *models.User, id string, action lifecycle.JobAction) (*models.Job, error) {
	if action == lifecycle.JobCancel && !access.Has(user, func(c access.CapabilitySet) bool { return c.CanAssignJobs }) {
		return nil, ErrForbidden
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := lifecycle.ApplyJob(job, action, s.now().UTC(), s.policy)
	if err != nil {
		metrics.ObserveTransition("job", string(action), err, true)
		return nil, err
	}

	err = s.jobs.Update(ctx, job)
	metrics.ObserveTransition("job", string(action), err, false)
	if err != nil {
		return nil, err
	}

	event := s.log.Info()
	if change.SkippedStart {
		event = s.log.Warn().Bool("skipped_start", true)
	}
	event.
		Str("job_id", id).
		Str("from", string(change.From)).
		Str("to", string(change.To)).
		Msg("Job status changed")

	return job, nil
}

// CorrectTimes overwrites recorded job times for managers
func (s *jobService) CorrectTimes(ctx context.Context, user *models.User, id string, req *models.EditJobTimesRequest) (*models.Job, error) {
	if !access.Has(user, func(c access.CapabilitySet) bool { return c.CanAssignJobs }) {
		return nil, ErrForbidden
	}
	if req.StartTime == nil && req.EndTime == nil {
		return nil, fmt.Errorf("%w: start_time or end_time is required", ErrValidation)
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CorrectJobTimes(job, req.StartTime, req.EndTime); err != nil {
		if errors.Is(err, lifecycle.ErrEndBeforeStart) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", id).
		Str("user_id", user.ID).
		Msg("Job times corrected")

	return job, nil
}

// CheckIn records arrival of a staff member. A repeat is a no-op and
// reports changed=false.
func (s *jobService) CheckIn(ctx context.Context, jobID, staffName string) (*models.StaffTime, bool, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, false, err
	}

	existing, err := s.staff.Get(ctx, jobID, staffName)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	st, changed := lifecycle.CheckIn(existing, jobID, staffName, now)
	if !changed {
		s.log.Debug().Str("job_id", jobID).Str("staff", staffName).Msg("Repeated check-in ignored")
		return st, false, nil
	}
	if st.ID == "" {
		st.ID = uuid.New().String()
	}

	if err := s.staff.Save(ctx, st); err != nil {
		return nil, false, err
	}
	if st.CheckIn != nil && !st.CheckIn.Equal(now) {
		s.log.Debug().Str("job_id", jobID).Str("staff", staffName).Msg("Concurrent check-in kept the earlier time")
		return st, false, nil
	}

	s.log.Info().Str("job_id", jobID).Str("staff", staffName).Msg("Staff checked in")
	return st, true, nil
}

// CheckOut records departure. Without a check-in, or when already checked
// out, nothing changes.
func (s *jobService) CheckOut(ctx context.Context, jobID, staffName string) (*models.StaffTime, bool, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, false, err
	}

	existing, err := s.staff.Get(ctx, jobID, staffName)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	if !lifecycle.CheckOut(existing, now) {
		s.log.Debug().Str("job_id", jobID).Str("staff", staffName).Msg("Check-out ignored")
		return existing, false, nil
	}

	if err := s.staff.Save(ctx, existing); err != nil {
		return nil, false, err
	}
	if existing.CheckOut != nil && !existing.CheckOut.Equal(now) {
		return existing, false, nil
	}

	s.log.Info().Str("job_id", jobID).Str("staff", staffName).Msg("Staff checked out")
	return existing, true, nil
}

// StaffTimes lists check-in rows of a job
func (s *jobService) StaffTimes(ctx context.Context, jobID string) ([]*models.StaffTime, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.staff.ListByJob(ctx, jobID)
}

// Wrapup returns the saved checklist, or the unchecked default list when
// nothing was saved yet.
func (s *jobService) Wrapup(ctx context.Context, jobID string) ([]*models.WrapupItem, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}

	items, err := s.wrapup.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	defaults := make([]*models.WrapupItem, 0, len(models.DefaultWrapupItems))
	for _, name := range models.DefaultWrapupItems {
		defaults = append(defaults, &models.WrapupItem{JobID: jobID, Item: name})
	}
	return defaults, nil
}

// SaveWrapup replaces the checklist of a job
func (s *jobService) SaveWrapup(ctx context.Context, jobID string, req *models.SaveWrapupRequest) ([]*models.WrapupItem, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.Items))
	items := make([]*models.WrapupItem, 0, len(req.Items))
	for _, in := range req.Items {
		name := strings.TrimSpace(in.Item)
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate checklist item %q", ErrValidation, name)
		}
		seen[name] = true
		items = append(items, &models.WrapupItem{
			ID:      uuid.New().String(),
			JobID:   jobID,
			Item:    name,
			Checked: in.Checked,
		})
	}

	if err := s.wrapup.Replace(ctx, jobID, items); err != nil {
		return nil, err
	}
	return items, nil
}

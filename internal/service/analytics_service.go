package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

const (
	week       = 7 * 24 * time.Hour
	month      = 30 * 24 * time.Hour
	staleAfter = 7 * 24 * time.Hour
)

// analyticsService is the concrete implementation of AnalyticsService
type analyticsService struct {
	leads     repository.LeadRepository
	jobs      repository.JobRepository
	tasks     repository.TaskRepository
	proposals repository.ProposalRepository
	now       func() time.Time
	log       zerolog.Logger
}

func newAnalyticsService(repos *repository.Repositories, now func() time.Time, log zerolog.Logger) *analyticsService {
	return &analyticsService{
		leads:     repos.Lead,
		jobs:      repos.Job,
		tasks:     repos.Task,
		proposals: repos.Proposal,
		now:       now,
		log:       log.With().Str("service", "analytics").Logger(),
	}
}

// LeadAnalytics summarizes every lead: status counts, creation windows,
// stale qualified leads and the win rate.
func (s *analyticsService) LeadAnalytics(ctx context.Context) (*models.LeadAnalytics, error) {
	leads, err := s.leads.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return summarizeLeads(leads, s.now().UTC()), nil
}

func summarizeLeads(leads []*models.Lead, now time.Time) *models.LeadAnalytics {
	out := &models.LeadAnalytics{
		Total:       len(leads),
		ByStatus:    make(map[models.LeadStatus]int, len(models.ValidLeadStatuses)),
		GeneratedAt: now,
	}
	for status := range models.ValidLeadStatuses {
		out.ByStatus[status] = 0
	}

	for _, lead := range leads {
		out.ByStatus[lead.CurrentStatus]++

		age := now.Sub(lead.CreatedAt)
		if age <= week {
			out.CreatedThisWeek++
		}
		if age <= month {
			out.CreatedThisMonth++
		}

		if lead.CurrentStatus == models.LeadStatusQualified {
			last := lead.CreatedAt
			if lead.LastStatusChange != nil {
				last = *lead.LastStatusChange
			}
			if now.Sub(last) >= staleAfter {
				out.Stale++
			}
		}
	}

	if out.Total > 0 {
		rate := float64(out.ByStatus[models.LeadStatusWon]) / float64(out.Total) * 100
		out.ConversionRate = math.Round(rate*10) / 10
	}
	return out
}

// Dashboard returns the headline counts, restricted to what the user may see
func (s *analyticsService) Dashboard(ctx context.Context, user *models.User) (*models.DashboardKPIs, error) {
	scope := access.ScopeFor(user)
	if scope.Denied {
		return nil, ErrForbidden
	}

	var kpis models.DashboardKPIs
	var err error

	if kpis.TotalLeads, err = s.leads.Count(ctx, scope.LeadsAssignedTo); err != nil {
		return nil, err
	}
	kpis.ActiveJobs, err = s.jobs.Count(ctx, models.JobFilter{
		Status:     models.JobStatusInProgress,
		AssignedTo: scope.JobsAssignedTo,
	})
	if err != nil {
		return nil, err
	}
	kpis.CompletedTasks, err = s.tasks.Count(ctx, models.TaskFilter{
		Status:     models.GlobalTaskDone,
		AssignedTo: scope.TasksAssignedTo,
	})
	if err != nil {
		return nil, err
	}
	if kpis.OpenProposals, err = s.proposals.CountOpen(ctx, scope.ProposalsCreatedBy); err != nil {
		return nil, err
	}

	s.log.Debug().Str("user_id", user.ID).Interface("kpis", kpis).Msg("Dashboard computed")
	return &kpis, nil
}

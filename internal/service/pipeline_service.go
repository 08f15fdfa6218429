package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/repository"
)

// pipelineService is the concrete implementation of PipelineService
type pipelineService struct {
	leads     repository.LeadRepository
	proposals repository.ProposalRepository
	now       func() time.Time
	log       zerolog.Logger
}

func newPipelineService(leads repository.LeadRepository, proposals repository.ProposalRepository, now func() time.Time, log zerolog.Logger) *pipelineService {
	return &pipelineService{
		leads:     leads,
		proposals: proposals,
		now:       now,
		log:       log.With().Str("service", "pipeline").Logger(),
	}
}

// ListLeads returns the leads visible under scope
func (s *pipelineService) ListLeads(ctx context.Context, scope access.DataScope) ([]*models.Lead, error) {
	if scope.Denied {
		return nil, ErrForbidden
	}
	return s.leads.List(ctx, scope.LeadsAssignedTo)
}

// ListProposals returns the latest proposal versions visible under scope
func (s *pipelineService) ListProposals(ctx context.Context, scope access.DataScope) ([]*models.Proposal, error) {
	if scope.Denied {
		return nil, ErrForbidden
	}
	return s.proposals.List(ctx, scope.ProposalsCreatedBy)
}

// CreateRevision copies a proposal into a new draft version that becomes
// the latest one.
func (s *pipelineService) CreateRevision(ctx context.Context, proposalID, userID string) (*models.Proposal, error) {
	base, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, ErrNotFound
	}
	if !base.IsLatest {
		return nil, fmt.Errorf("%w: only the latest version can be revised", ErrConflict)
	}

	createdBy := userID
	rev := &models.Proposal{
		ID:        uuid.New().String(),
		LeadID:    base.LeadID,
		Title:     base.Title,
		Status:    models.ProposalStatusDraft,
		Version:   base.Version + 1,
		IsLatest:  true,
		CreatedBy: &createdBy,
		CreatedAt: s.now().UTC(),
	}

	if err := s.proposals.CreateRevision(ctx, base, rev); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, fmt.Errorf("%w: proposal was revised concurrently", ErrConflict)
		}
		return nil, err
	}

	s.log.Info().
		Str("proposal_id", base.ID).
		Str("revision_id", rev.ID).
		Int("version", rev.Version).
		Msg("Proposal revision created")

	return rev, nil
}

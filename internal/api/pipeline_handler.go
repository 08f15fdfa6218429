package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

// PipelineHandler handles leads, proposals, analytics and dashboard endpoints
type PipelineHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewPipelineHandler creates a new PipelineHandler
func NewPipelineHandler(services *service.Services, log zerolog.Logger) *PipelineHandler {
	return &PipelineHandler{
		services: services,
		log:      log.With().Str("handler", "pipeline").Logger(),
	}
}

// ListLeads handles GET /v1/leads
func (h *PipelineHandler) ListLeads(c *gin.Context) {
	leads, err := h.services.Pipeline.ListLeads(c.Request.Context(), access.ScopeFor(auth.CurrentUser(c)))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// ListProposals handles GET /v1/proposals
func (h *PipelineHandler) ListProposals(c *gin.Context) {
	proposals, err := h.services.Pipeline.ListProposals(c.Request.Context(), access.ScopeFor(auth.CurrentUser(c)))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if proposals == nil {
		proposals = []*models.Proposal{}
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// CreateRevision handles POST /v1/proposals/:id/revisions
func (h *PipelineHandler) CreateRevision(c *gin.Context) {
	rev, err := h.services.Pipeline.CreateRevision(c.Request.Context(), c.Param("id"), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, rev)
}

// LeadAnalytics handles GET /v1/analytics/leads
func (h *PipelineHandler) LeadAnalytics(c *gin.Context) {
	summary, err := h.services.Analytics.LeadAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Dashboard handles GET /v1/dashboard
func (h *PipelineHandler) Dashboard(c *gin.Context) {
	kpis, err := h.services.Analytics.Dashboard(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}

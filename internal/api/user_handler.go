package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/models"
	"github.com/opsdesk-api/internal/service"
)

// UserHandler handles profile and user administration endpoints
type UserHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(services *service.Services, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		services: services,
		log:      log.With().Str("handler", "user").Logger(),
	}
}

// Me handles GET /v1/me
func (h *UserHandler) Me(c *gin.Context) {
	user := auth.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"capabilities": access.EffectiveCapabilities(user),
		"navigation":   access.NavigationFor(user),
		"field_worker": access.IsFieldWorker(user.Role),
	})
}

// ListUsers handles GET /v1/users?role=&active=&search=
func (h *UserHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{
		Role:   models.Role(c.Query("role")),
		Search: c.Query("search"),
	}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active must be true or false"})
			return
		}
		filter.Active = &active
	}

	users, err := h.services.User.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser handles POST /v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.services.User.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateRole handles PATCH /v1/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.services.User.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetActive handles PATCH /v1/users/:id/active. Users cannot deactivate
// themselves.
func (h *UserHandler) SetActive(c *gin.Context) {
	var req models.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id := c.Param("id")
	if !*req.Active && auth.CurrentUser(c).ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate your own account"})
		return
	}

	user, err := h.services.User.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

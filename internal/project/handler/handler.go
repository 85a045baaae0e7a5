package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/middleware"
	"github.com/000hen/changelogs.cc/internal/models"
	"github.com/000hen/changelogs.cc/internal/project"
)

type Handler struct {
	projects *project.Service
}

func NewHandler(projects *project.Service) *Handler {
	return &Handler{projects: projects}
}

// RegisterRoutes expects g to be behind GinRequireAuth.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/dashboard", h.dashboard)
	g.POST("/api/projects", h.create)
	g.GET("/api/projects/:slug", h.get)
	g.GET("/api/projects/:slug/collaborators", h.collaborators)
	g.POST("/api/projects/:slug/collaborators", h.invite)
	g.PATCH("/api/projects/:slug/collaborators/:id", h.updateRole)
	g.DELETE("/api/projects/:slug/collaborators/:id", h.removeCollaborator)
	g.DELETE("/api/projects/:slug/invitations/:id", h.cancelInvitation)
}

type createRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
}

type inviteRequest struct {
	Email string      `json:"email" binding:"required"`
	Role  models.Role `json:"role" binding:"required"`
}

type roleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// actor parses the session user. A session always carries a user UUID, so a
// parse failure means the cookie predates the current id format.
func actor(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.UserID(c))
	if err != nil {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) dashboard(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	d, err := h.projects.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) create(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), userID, project.CreateInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// pathID parses the :id segment. Anything that is not a UUID cannot name a
// row, so it is answered like a missing one.
func pathID(c *gin.Context, missing error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, missing)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) get(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	access, err := h.projects.Get(c.Request.Context(), userID, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, access)
}

func (h *Handler) collaborators(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	roster, err := h.projects.Collaborators(c.Request.Context(), userID, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

func (h *Handler) invite(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.projects.Invite(c.Request.Context(), userID, c.Param("slug"), req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) updateRole(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, project.ErrCollaboratorMissing)
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	collab, err := h.projects.UpdateRole(c.Request.Context(), userID, c.Param("slug"), id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *Handler) removeCollaborator(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, project.ErrCollaboratorMissing)
	if !ok {
		return
	}

	if err := h.projects.RemoveCollaborator(c.Request.Context(), userID, c.Param("slug"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) cancelInvitation(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, project.ErrInvitationMissing)
	if !ok {
		return
	}

	if err := h.projects.CancelInvitation(c.Request.Context(), userID, c.Param("slug"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound),
		errors.Is(err, project.ErrCollaboratorMissing),
		errors.Is(err, project.ErrInvitationMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, project.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, project.ErrSlugTaken),
		errors.Is(err, project.ErrAlreadyCollaborator),
		errors.Is(err, project.ErrAlreadyInvited):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, project.ErrInvalidName),
		errors.Is(err, project.ErrInvalidSlug),
		errors.Is(err, project.ErrInvalidEmail),
		errors.Is(err, project.ErrInvalidRole),
		errors.Is(err, project.ErrSelfInvite):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("project request failed", map[string]any{
			"path":  c.FullPath(),
			"error": err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

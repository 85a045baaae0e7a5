package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/middleware"
	"github.com/000hen/changelogs.cc/internal/session"
	"github.com/000hen/changelogs.cc/internal/store"
)

type Handler struct {
	directory *Directory
	sessions  *session.Manager
}

func NewHandler(directory *Directory, sessions *session.Manager) *Handler {
	return &Handler{directory: directory, sessions: sessions}
}

// RegisterRoutes expects g to be behind GinRequireAuth.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserID(c)

	user, err := h.directory.Get(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		// Valid cookie for a user that no longer exists.
		h.sessions.ClearSession(c.Writer)
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}
	if err != nil {
		logger.Error("failed to load current user", map[string]any{
			"user_id": userID,
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

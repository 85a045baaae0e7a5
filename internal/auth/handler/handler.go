package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/000hen/changelogs.cc/internal/auth"
	"github.com/000hen/changelogs.cc/internal/auth/provider"
	"github.com/000hen/changelogs.cc/internal/auth/resolver"
	"github.com/000hen/changelogs.cc/internal/auth/token"
	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/metrics"
	"github.com/000hen/changelogs.cc/internal/session"
)

const (
	DashboardPath = "/dashboard"
	HomePath      = "/"
)

// Fixed client-facing messages. Provider detail only goes to the log.
const (
	msgInvalidState   = "Invalid auth state"
	msgAuthFailed     = "Authentication failed"
	msgNoUserInfo     = "Failed to get user info"
	msgUnavailable    = "Authentication unavailable"
	msgSessionFailure = "Failed to create session"
)

type Handler struct {
	provider provider.Provider
	sessions *session.Manager
	resolver resolver.Resolver
}

func NewHandler(
	p provider.Provider,
	sessions *session.Manager,
	resolver resolver.Resolver,
) *Handler {
	return &Handler{
		provider: p,
		sessions: sessions,
		resolver: resolver,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/auth/login", h.login)
	r.GET("/auth/callback", h.callback)
	r.GET("/auth/logout", h.logout)
}

func (h *Handler) login(c *gin.Context) {
	ls, err := newLoginState()
	if err != nil {
		logger.Error("failed to generate login state", map[string]any{"error": err})
		metrics.LoginAttempt(metrics.OutcomeUnavailable)
		c.String(http.StatusInternalServerError, msgUnavailable)
		return
	}

	authURL, err := h.provider.AuthorizationURL(c.Request.Context(), ls.State, ls.Nonce)
	if err != nil {
		logger.Error("failed to build authorization url", map[string]any{"error": err})
		metrics.LoginAttempt(metrics.OutcomeUnavailable)
		c.String(http.StatusInternalServerError, msgUnavailable)
		return
	}

	if err := h.sessions.IssueLoginState(c.Writer, c.Request, ls); err != nil {
		logger.Error("failed to issue login state", map[string]any{"error": err})
		metrics.LoginAttempt(metrics.OutcomeUnavailable)
		c.String(http.StatusInternalServerError, msgUnavailable)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	ctx := c.Request.Context()

	ls, ok := h.sessions.ReadLoginState(c.Request)
	if !ok {
		metrics.LoginAttempt(metrics.OutcomeInvalidState)
		c.String(http.StatusBadRequest, msgInvalidState)
		return
	}

	tokens, err := h.provider.ExchangeCode(ctx, c.Request.URL, ls.State, ls.Nonce)
	if err != nil {
		logger.Warn("oidc code exchange failed", map[string]any{
			"error": err,
			"ip":    c.ClientIP(),
		})
		metrics.LoginAttempt(metrics.OutcomeExchangeFailed)
		c.String(http.StatusBadRequest, msgAuthFailed)
		return
	}

	identity := h.identity(ctx, tokens)
	if identity == nil || identity.Subject == "" || identity.Email == "" {
		metrics.LoginAttempt(metrics.OutcomeNoIdentity)
		c.String(http.StatusBadRequest, msgNoUserInfo)
		return
	}

	user, err := h.resolver.Resolve(ctx, identity)
	if err != nil {
		logger.Error("account resolution failed", map[string]any{
			"subject": identity.Subject,
			"error":   err,
		})
		metrics.LoginAttempt(metrics.OutcomeResolveFailed)
		c.String(http.StatusBadRequest, msgAuthFailed)
		return
	}

	if err := h.sessions.IssueSession(c.Writer, c.Request, user.ID.String()); err != nil {
		logger.Error("failed to issue session", map[string]any{
			"user_id": user.ID.String(),
			"error":   err,
		})
		metrics.LoginAttempt(metrics.OutcomeSessionFailed)
		c.String(http.StatusInternalServerError, msgSessionFailure)
		return
	}
	h.sessions.ClearLoginState(c.Writer)

	logger.Info("login succeeded", map[string]any{
		"user_id": user.ID.String(),
		"ip":      c.ClientIP(),
	})
	metrics.LoginAttempt(metrics.OutcomeSuccess)

	c.Redirect(http.StatusFound, DashboardPath)
}

// identity parses the verified id_token and fills a missing email from the
// userinfo endpoint. It returns nil when no usable identity exists.
func (h *Handler) identity(ctx context.Context, tokens *auth.TokenResponse) *auth.Identity {
	identity := token.Parse(tokens)
	if identity != nil && identity.Email != "" {
		return identity
	}
	if tokens.AccessToken == "" {
		return identity
	}

	logger.Debug("id_token lacks email, querying userinfo", map[string]any{
		"has_id_token": identity != nil,
	})
	info, err := h.provider.FetchUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		logger.Warn("userinfo fallback failed", map[string]any{"error": err})
		return identity
	}

	if identity == nil {
		if info.Subject == "" {
			return nil
		}
		identity = &auth.Identity{Subject: info.Subject}
	}
	// Userinfo for another subject must not be merged in.
	if info.Subject != identity.Subject {
		logger.Debug("userinfo subject mismatch, ignoring", map[string]any{
			"subject": identity.Subject,
		})
		return identity
	}

	identity.Email = info.Email
	if identity.Name == "" {
		identity.Name = info.Name
	}
	if identity.Picture == "" {
		identity.Picture = info.Picture
	}
	return identity
}

// logout is idempotent.
func (h *Handler) logout(c *gin.Context) {
	h.sessions.ClearSession(c.Writer)
	c.Redirect(http.StatusFound, HomePath)
}

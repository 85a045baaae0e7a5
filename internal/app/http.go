package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "github.com/000hen/changelogs.cc/internal/auth/handler"
	"github.com/000hen/changelogs.cc/internal/auth/provider"
	"github.com/000hen/changelogs.cc/internal/auth/provider/oidc"
	"github.com/000hen/changelogs.cc/internal/auth/resolver"
	"github.com/000hen/changelogs.cc/internal/config"
	"github.com/000hen/changelogs.cc/internal/metrics"
	"github.com/000hen/changelogs.cc/internal/middleware"
	"github.com/000hen/changelogs.cc/internal/project"
	projecthandler "github.com/000hen/changelogs.cc/internal/project/handler"
	"github.com/000hen/changelogs.cc/internal/session"
	"github.com/000hen/changelogs.cc/internal/users"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	oidcClient, err := oidc.New(oidc.Config{
		Issuer:       cfg.OIDCIssuer,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	})
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	router, err := newRouter(cfg, infra, oidcClient)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	return router, infra.Close, nil
}

// newRouter wires handlers onto a fresh engine. Discovery is lazy, so an
// unreachable provider only fails login requests.
func newRouter(cfg config.Config, infra *Infra, idp provider.Provider) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessions, err := session.NewManager(cfg.SessionSecret, session.CookieOptions{
		Secure: cfg.IsProduction(),
	})
	if err != nil {
		return nil, err
	}

	identityResolver := resolver.NewStoreResolver(infra.Store, infra.Cache)
	authHandler := authhandler.NewHandler(idp, sessions, identityResolver)
	authMiddleware := middleware.NewAuthMiddleware(sessions)

	directory := users.NewDirectory(infra.Store, infra.Cache, cfg.CacheTTL)
	projects := project.NewService(infra.Store, infra.Cache, cfg.CacheTTL)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Gin())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ----------------------------
	// Protected Routes
	// ----------------------------

	protected := router.Group("/")
	protected.Use(middleware.GinRequireAuth(authMiddleware))

	projecthandler.NewHandler(projects).RegisterRoutes(protected)
	users.NewHandler(directory, sessions).RegisterRoutes(protected.Group("/api"))

	return router, nil
}

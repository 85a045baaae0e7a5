package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/000hen/changelogs.cc/internal/auth/provider/oidc"
	"github.com/000hen/changelogs.cc/internal/auth/provider/oidc/oidctest"
	"github.com/000hen/changelogs.cc/internal/cache"
	"github.com/000hen/changelogs.cc/internal/config"
	"github.com/000hen/changelogs.cc/internal/session"
	"github.com/000hen/changelogs.cc/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) (*gin.Engine, *oidctest.Server) {
	t.Helper()
	idp := oidctest.NewServer()
	t.Cleanup(idp.Close)

	cfg := config.Config{
		Environment:   "test",
		BaseURL:       "http://app.test",
		SessionSecret: "app-test-secret",
		CacheTTL:      time.Minute,
	}

	client, err := oidc.New(oidc.Config{
		Issuer:       idp.URL,
		ClientID:     idp.ClientID,
		ClientSecret: idp.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	})
	require.NoError(t, err)

	infra := &Infra{Store: memory.New(), Cache: cache.NewMemory(time.Minute)}
	router, err := newRouter(cfg, infra, client)
	require.NoError(t, err)
	return router, idp
}

type browser struct {
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := testRouter(t)
	b := &browser{router: router, cookies: map[string]*http.Cookie{}}

	rec := b.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = b.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "changelogs_http_requests_total"))
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	router, _ := testRouter(t)
	b := &browser{router: router, cookies: map[string]*http.Cookie{}}

	for _, path := range []string{"/dashboard", "/api/me"} {
		rec := b.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/auth/login", rec.Header().Get("Location"), path)
	}
}

func TestLoginThenBrowseThenLogout(t *testing.T) {
	router, idp := testRouter(t)
	idp.SetClaims(map[string]any{"sub": "u1", "email": "e@test.com", "name": "Eve"})
	b := &browser{router: router, cookies: map[string]*http.Cookie{}}

	rec := b.get("/auth/login")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, b.cookies, session.StateCookieName)

	noRedirect := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := noRedirect.Get(rec.Header().Get("Location"))
	require.NoError(t, err)
	resp.Body.Close()
	cb, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	rec = b.get(cb.RequestURI())
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Contains(t, b.cookies, session.CookieName)
	assert.NotContains(t, b.cookies, session.StateCookieName)

	rec = b.get("/api/me")
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "e@test.com", me["email"])
	assert.Equal(t, "Eve", me["name"])

	rec = b.get("/dashboard")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = b.get("/auth/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.NotContains(t, b.cookies, session.CookieName)

	rec = b.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
}

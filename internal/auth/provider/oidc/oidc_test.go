package oidc

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/000hen/changelogs.cc/internal/auth"
	"github.com/000hen/changelogs.cc/internal/auth/provider/oidc/oidctest"
)

const redirectURL = "http://app.test/auth/callback"

func newClient(t *testing.T) (*Client, *oidctest.Server) {
	t.Helper()
	idp := oidctest.NewServer()
	t.Cleanup(idp.Close)

	c, err := New(Config{
		Issuer:       idp.URL,
		ClientID:     idp.ClientID,
		ClientSecret: idp.ClientSecret,
		RedirectURL:  redirectURL,
	})
	require.NoError(t, err)
	return c, idp
}

func callback(code, state string) *url.URL {
	u, _ := url.Parse(redirectURL)
	q := u.Query()
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{Issuer: "https://idp.test"})
	assert.Error(t, err)
}

func TestDiscoverIsCached(t *testing.T) {
	c, _ := newClient(t)

	first, err := c.Discover(context.Background())
	require.NoError(t, err)
	second, err := c.Discover(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestDiscoverFailureIsConfigurationErrorAndNotCached(t *testing.T) {
	c, err := New(Config{
		Issuer:       "http://127.0.0.1:1",
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  redirectURL,
	})
	require.NoError(t, err)

	_, err = c.Discover(context.Background())
	assert.ErrorIs(t, err, auth.ErrConfiguration)
	assert.Nil(t, c.resolved)
}

func TestAuthorizationURL(t *testing.T) {
	c, idp := newClient(t)

	raw, err := c.AuthorizationURL(context.Background(), "S1", "N1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, idp.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "S1", q.Get("state"))
	assert.Equal(t, "N1", q.Get("nonce"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, redirectURL, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, idp.ClientID, q.Get("client_id"))
}

func TestExchangeCodeSuccess(t *testing.T) {
	c, idp := newClient(t)
	code := idp.IssueCode("N1", map[string]any{"sub": "u1", "email": "e@test.com"})

	tokens, err := c.ExchangeCode(context.Background(), callback(code, "S1"), "S1", "N1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.IDToken)
	assert.Equal(t, "access-"+code, tokens.AccessToken)
}

func TestExchangeCodeRejectsStateMismatch(t *testing.T) {
	c, idp := newClient(t)
	code := idp.IssueCode("N1", map[string]any{"sub": "u1"})

	_, err := c.ExchangeCode(context.Background(), callback(code, "S2"), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)

	_, err = c.ExchangeCode(context.Background(), callback(code, ""), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)
}

func TestExchangeCodeRejectsNonceMismatch(t *testing.T) {
	c, idp := newClient(t)
	code := idp.IssueCode("other-nonce", map[string]any{"sub": "u1"})

	_, err := c.ExchangeCode(context.Background(), callback(code, "S1"), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)
	assert.Contains(t, err.Error(), "nonce")
}

func TestExchangeCodeProviderErrors(t *testing.T) {
	c, idp := newClient(t)

	u := callback("", "S1")
	q := u.Query()
	q.Set("error", "access_denied")
	u.RawQuery = q.Encode()
	_, err := c.ExchangeCode(context.Background(), u, "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)

	_, err = c.ExchangeCode(context.Background(), callback("", "S1"), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)

	_, err = c.ExchangeCode(context.Background(), callback("unknown-code", "S1"), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)

	idp.SetOmitIDToken(true)
	code := idp.IssueCode("N1", map[string]any{"sub": "u1"})
	_, err = c.ExchangeCode(context.Background(), callback(code, "S1"), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)
}

func TestExchangeCodeRejectsForeignAudience(t *testing.T) {
	c, idp := newClient(t)
	code := idp.IssueCode("N1", map[string]any{"sub": "u1", "aud": "someone-else"})

	_, err := c.ExchangeCode(context.Background(), callback(code, "S1"), "S1", "N1")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)
}

func TestFetchUserInfo(t *testing.T) {
	c, idp := newClient(t)
	idp.SetUserInfo(map[string]any{
		"sub":     "u1",
		"email":   "e@test.com",
		"name":    "Eve",
		"picture": "https://img.test/eve.png",
	})

	info, err := c.FetchUserInfo(context.Background(), "access-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", info.Subject)
	assert.Equal(t, "e@test.com", info.Email)
	assert.Equal(t, "Eve", info.Name)
	assert.Equal(t, "https://img.test/eve.png", info.Picture)
}

func TestFetchUserInfoFailure(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.FetchUserInfo(context.Background(), "access-token")
	assert.ErrorIs(t, err, auth.ErrAuthExchange)
}

// Package oidc implements provider.Provider against any OpenID Connect issuer
// using discovery.
package oidc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/000hen/changelogs.cc/internal/auth"
	"github.com/000hen/changelogs.cc/internal/auth/provider"
	"github.com/000hen/changelogs.cc/internal/logger"
)

// DefaultTimeout bounds every provider round trip (discovery, token, JWKS,
// userinfo).
const DefaultTimeout = 10 * time.Second

type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// HTTPClient overrides the transport; DefaultTimeout applies when nil.
	HTTPClient *http.Client
}

// ProviderConfig is the resolved discovery result. It is immutable once built.
type ProviderConfig struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   *oauth2.Config
}

// Endpoint returns the discovered authorization and token endpoints.
func (p *ProviderConfig) Endpoint() oauth2.Endpoint {
	return p.oauth2.Endpoint
}

type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	resolved *ProviderConfig
}

func New(cfg Config) (*Client, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("oidc: config missing required fields")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{cfg: cfg, httpClient: hc}, nil
}

func (c *Client) withClient(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, c.httpClient)
}

// Discover resolves the provider configuration once per process. Failures
// are not cached, so a later request retries discovery.
func (c *Client) Discover(ctx context.Context) (*ProviderConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved != nil {
		return c.resolved, nil
	}

	p, err := oidc.NewProvider(c.withClient(ctx), c.cfg.Issuer)
	if err != nil {
		logger.Error("oidc discovery failed", map[string]any{
			"issuer": c.cfg.Issuer,
			"error":  err,
		})
		return nil, fmt.Errorf("%w: %v", auth.ErrConfiguration, err)
	}

	c.resolved = &ProviderConfig{
		provider: p,
		verifier: p.Verifier(&oidc.Config{ClientID: c.cfg.ClientID}),
		oauth2: &oauth2.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			RedirectURL:  c.cfg.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes: []string{
				oidc.ScopeOpenID,
				"email",
				"profile",
			},
		},
	}

	logger.Info("oidc provider discovered", map[string]any{
		"issuer":   c.cfg.Issuer,
		"auth_url": c.resolved.oauth2.Endpoint.AuthURL,
	})

	return c.resolved, nil
}

// AuthorizationURL builds the authorization request carrying state and nonce.
func (c *Client) AuthorizationURL(ctx context.Context, state, nonce string) (string, error) {
	pc, err := c.Discover(ctx)
	if err != nil {
		return "", err
	}

	return pc.oauth2.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

func exchangeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", auth.ErrAuthExchange, fmt.Sprintf(format, args...))
}

// ExchangeCode validates the callback query, exchanges the code and verifies
// the id_token (signature, issuer, audience, expiry, nonce).
func (c *Client) ExchangeCode(
	ctx context.Context,
	callbackURL *url.URL,
	expectedState string,
	expectedNonce string,
) (*auth.TokenResponse, error) {

	q := callbackURL.Query()

	if errParam := q.Get("error"); errParam != "" {
		return nil, exchangeErr("provider returned %s: %s", errParam, q.Get("error_description"))
	}

	state := q.Get("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, exchangeErr("state mismatch")
	}

	code := q.Get("code")
	if code == "" {
		return nil, exchangeErr("callback missing code")
	}

	pc, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}

	ctx = c.withClient(ctx)

	token, err := pc.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeErr("token endpoint: %v", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, exchangeErr("provider did not return id_token")
	}

	idToken, err := pc.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, exchangeErr("id_token verification: %v", err)
	}

	if expectedNonce == "" || subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(expectedNonce)) != 1 {
		return nil, exchangeErr("nonce mismatch")
	}

	return &auth.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		IDToken:     rawIDToken,
		Expiry:      token.Expiry,
	}, nil
}

func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error) {
	pc, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}

	info, err := pc.provider.UserInfo(
		c.withClient(ctx),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)
	if err != nil {
		return nil, exchangeErr("userinfo: %v", err)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, exchangeErr("userinfo claims: %v", err)
	}

	return &auth.UserInfo{
		Subject: info.Subject,
		Email:   info.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

var _ provider.Provider = (*Client)(nil)

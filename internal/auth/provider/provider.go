package provider

import (
	"context"
	"net/url"

	"github.com/000hen/changelogs.cc/internal/auth"
)

// Provider is the identity provider contract the login orchestrator drives.
// Implementations return identity facts only and must not create users or
// sessions.
type Provider interface {
	// AuthorizationURL returns the URL the browser is redirected to. state
	// and nonce are generated by the caller and bound to a state cookie.
	AuthorizationURL(ctx context.Context, state, nonce string) (string, error)

	// ExchangeCode validates the callback against the expected state,
	// exchanges its code and checks the returned id_token nonce.
	ExchangeCode(
		ctx context.Context,
		callbackURL *url.URL,
		expectedState string,
		expectedNonce string,
	) (*auth.TokenResponse, error)

	// FetchUserInfo is the supplementary userinfo lookup.
	FetchUserInfo(ctx context.Context, accessToken string) (*auth.UserInfo, error)
}

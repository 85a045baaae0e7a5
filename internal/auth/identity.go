package auth

import "time"

// Identity is the normalized external identity produced from one callback.
// It lives only for the duration of that request.
type Identity struct {
	Subject string // provider-scoped stable identifier (sub)
	Email   string
	Name    string // optional
	Picture string // optional
}

// TokenResponse is what the provider returned from the code exchange, after
// the id_token was verified and its nonce checked.
type TokenResponse struct {
	AccessToken string
	TokenType   string
	IDToken     string
	Expiry      time.Time
}

// UserInfo is the subset of the provider's userinfo response we consume.
type UserInfo struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Package token extracts identity claims from an id_token WITHOUT verifying
// its signature.
//
// Trust boundary: Parse may only be given a token response obtained from the
// server-to-server code exchange, after the provider client verified the
// id_token. Never pass a token that arrived from the browser or any other
// client-controlled channel.
package token

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/000hen/changelogs.cc/internal/auth"
)

// idClaims reads the payload only. Registered claim types are not enforced.
type idClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

var parser = jwt.NewParser()

// Parse returns the identity carried by resp's id_token, or nil when the
// token is absent or structurally malformed.
func Parse(resp *auth.TokenResponse) *auth.Identity {
	if resp == nil || resp.IDToken == "" {
		return nil
	}
	parts := strings.Split(resp.IDToken, ".")
	if len(parts) != 3 {
		return nil
	}

	// Header and signature are not looked at.
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}

	var claims idClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}

	return &auth.Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}
}

package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/000hen/changelogs.cc/internal/auth"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

var header = segment(`{"alg":"RS256","typ":"JWT"}`)

func TestParseExtractsClaims(t *testing.T) {
	payload := segment(`{"sub":"u1","email":"e@test.com","name":"Eve","picture":"https://img.test/e.png","nonce":"N1"}`)

	id := Parse(&auth.TokenResponse{IDToken: header + "." + payload + ".c2lnbmF0dXJl"})
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.Subject)
	assert.Equal(t, "e@test.com", id.Email)
	assert.Equal(t, "Eve", id.Name)
	assert.Equal(t, "https://img.test/e.png", id.Picture)
}

func TestParseOptionalClaimsMissing(t *testing.T) {
	payload := segment(`{"sub":"u1","email":"e@test.com"}`)

	id := Parse(&auth.TokenResponse{IDToken: header + "." + payload + ".sig"})
	require.NotNil(t, id)
	assert.Empty(t, id.Name)
	assert.Empty(t, id.Picture)
}

func TestParseIgnoresSignature(t *testing.T) {
	payload := segment(`{"sub":"u1","email":"e@test.com"}`)

	id := Parse(&auth.TokenResponse{IDToken: header + "." + payload + ".not-a-real-signature"})
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.Subject)
}

func TestParseRejectsMalformed(t *testing.T) {
	payload := segment(`{"sub":"u1","email":"e@test.com"}`)

	cases := map[string]*auth.TokenResponse{
		"nil response":     nil,
		"no id_token":      {AccessToken: "at"},
		"two segments":     {IDToken: header + "." + payload},
		"four segments":    {IDToken: header + "." + payload + ".sig.extra"},
		"payload not b64":  {IDToken: header + ".***." + "sig"},
		"payload not json": {IDToken: header + "." + segment("not json") + ".sig"},
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, Parse(resp))
		})
	}
}

func TestParseReadsOnlyPayload(t *testing.T) {
	payload := segment(`{"sub":"u1","email":"e@test.com","aud":42,"exp":"tomorrow"}`)

	cases := map[string]string{
		"header not json": "not-a-header",
		"header empty":    "",
		"unknown alg":     segment(`{"alg":"none"}`),
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			id := Parse(&auth.TokenResponse{IDToken: h + "." + payload + ".sig"})
			require.NotNil(t, id)
			assert.Equal(t, "u1", id.Subject)
			assert.Equal(t, "e@test.com", id.Email)
		})
	}
}

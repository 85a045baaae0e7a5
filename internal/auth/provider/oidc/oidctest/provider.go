// Package oidctest runs an in-process OpenID Connect provider for tests. It
// serves discovery, JWKS, an authorization endpoint that redirects straight
// back with a code, a token endpoint issuing RS256 id_tokens and userinfo.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const keyID = "oidctest-key"

// Grant is what the provider remembers between /authorize and /token.
type Grant struct {
	Nonce  string
	Claims map[string]any
}

type Server struct {
	*httptest.Server

	ClientID     string
	ClientSecret string

	key *rsa.PrivateKey

	mu          sync.Mutex
	claims      map[string]any
	userInfo    map[string]any
	tokenError  string
	omitIDToken bool
	grants      map[string]Grant
}

func NewServer() *Server {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}

	s := &Server{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		key:          key,
		claims:       map[string]any{},
		grants:       map[string]Grant{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", s.discovery)
	mux.HandleFunc("/keys", s.jwks)
	mux.HandleFunc("/authorize", s.authorize)
	mux.HandleFunc("/token", s.token)
	mux.HandleFunc("/userinfo", s.userinfo)

	s.Server = httptest.NewServer(mux)
	return s
}

// SetClaims sets the claims added to every id_token issued through /authorize.
func (s *Server) SetClaims(claims map[string]any) {
	s.mu.Lock()
	s.claims = claims
	s.mu.Unlock()
}

// SetUserInfo sets the document served from /userinfo for any bearer token.
func (s *Server) SetUserInfo(info map[string]any) {
	s.mu.Lock()
	s.userInfo = info
	s.mu.Unlock()
}

// SetTokenError makes /token answer 400 with this OAuth error code.
func (s *Server) SetTokenError(code string) {
	s.mu.Lock()
	s.tokenError = code
	s.mu.Unlock()
}

// SetOmitIDToken makes /token answer without an id_token.
func (s *Server) SetOmitIDToken(omit bool) {
	s.mu.Lock()
	s.omitIDToken = omit
	s.mu.Unlock()
}

// IssueCode registers an authorization code whose id_token will carry nonce
// and claims.
func (s *Server) IssueCode(nonce string, claims map[string]any) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	code := hex.EncodeToString(b)

	s.mu.Lock()
	s.grants[code] = Grant{Nonce: nonce, Claims: claims}
	s.mu.Unlock()

	return code
}

func (s *Server) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                s.URL,
		"authorization_endpoint":                s.URL + "/authorize",
		"token_endpoint":                        s.URL + "/token",
		"jwks_uri":                              s.URL + "/keys",
		"userinfo_endpoint":                     s.URL + "/userinfo",
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
	})
}

func (s *Server) jwks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.key.PublicKey,
		KeyID:     keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirect.String() == "" {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	claims := make(map[string]any, len(s.claims))
	for k, v := range s.claims {
		claims[k] = v
	}
	s.mu.Unlock()

	code := s.IssueCode(q.Get("nonce"), claims)

	rq := redirect.Query()
	rq.Set("code", code)
	rq.Set("state", q.Get("state"))
	redirect.RawQuery = rq.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	s.mu.Lock()
	tokenErr := s.tokenError
	omit := s.omitIDToken
	grant, ok := s.grants[r.PostForm.Get("code")]
	delete(s.grants, r.PostForm.Get("code"))
	s.mu.Unlock()

	if tokenErr != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": tokenErr})
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	resp := map[string]any{
		"access_token": "access-" + r.PostForm.Get("code"),
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if !omit {
		idToken, err := s.SignIDToken(grant.Nonce, grant.Claims)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
			return
		}
		resp["id_token"] = idToken
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) userinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	info := s.userInfo
	s.mu.Unlock()

	if info == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// SignIDToken issues an RS256 id_token for this issuer and client. Registered
// claims can be overridden through claims.
func (s *Server) SignIDToken(nonce string, claims map[string]any) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: s.key, KeyID: keyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	body := map[string]any{
		"iss": s.URL,
		"aud": s.ClientID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if nonce != "" {
		body["nonce"] = nonce
	}
	for k, v := range claims {
		body[k] = v
	}

	return jwt.Signed(signer).Claims(body).Serialize()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

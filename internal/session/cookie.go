// Package session binds requests to users and login attempts through signed,
// encrypted client-held cookies. There is no server-side session table.
package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"github.com/000hen/changelogs.cc/internal/auth"
)

const (
	CookieName      = "__session"
	StateCookieName = "__auth_state"

	SessionTTL = 30 * 24 * time.Hour
	StateTTL   = 10 * time.Minute
)

const (
	userIDKey = "userId"
	stateKey  = "state"
	nonceKey  = "nonce"
)

// CookieOptions defines how both cookies are issued.
type CookieOptions struct {
	Secure bool
	Domain string
}

// LoginState is the anti-forgery pair for one login attempt.
type LoginState struct {
	State string
	Nonce string
}

type Manager struct {
	sessions *sessions.CookieStore
	states   *sessions.CookieStore
}

func NewManager(secret string, opts CookieOptions) (*Manager, error) {
	return newManager(secret, opts, SessionTTL, StateTTL)
}

func newManager(secret string, opts CookieOptions, sessionTTL, stateTTL time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session: secret must not be empty")
	}

	hashKey, err := deriveKey(secret, "changelogs.cc cookie signing", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "changelogs.cc cookie encryption", 32)
	if err != nil {
		return nil, err
	}

	return &Manager{
		sessions: newStore(hashKey, blockKey, opts, sessionTTL),
		states:   newStore(hashKey, blockKey, opts, stateTTL),
	}, nil
}

// deriveKey expands the configured secret into independent HMAC and AES keys.
func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}
	return key, nil
}

func newStore(hashKey, blockKey []byte, opts CookieOptions, ttl time.Duration) *sessions.CookieStore {
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Sets both the cookie Max-Age and the signed timestamp window.
	store.MaxAge(int(ttl.Seconds()))
	return store
}

// IssueSession sets the session cookie carrying only userID.
func (m *Manager) IssueSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := m.sessions.New(r, CookieName)
	sess.Values = map[any]any{userIDKey: userID}

	if err := m.sessions.Save(r, w, sess); err != nil {
		return fmt.Errorf("session: issue: %w", err)
	}
	return nil
}

// ReadSession returns the user bound to the request. Absent, expired and
// tampered cookies all report false.
func (m *Manager) ReadSession(r *http.Request) (string, bool) {
	sess, err := m.sessions.New(r, CookieName)
	if err != nil || sess.IsNew {
		return "", false
	}

	userID, ok := sess.Values[userIDKey].(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// RequireSession is ReadSession for protected routes.
func (m *Manager) RequireSession(r *http.Request) (string, error) {
	userID, ok := m.ReadSession(r)
	if !ok {
		return "", auth.ErrUnauthenticated
	}
	return userID, nil
}

func (m *Manager) ClearSession(w http.ResponseWriter) {
	expireCookie(w, CookieName, m.sessions.Options)
}

// IssueLoginState sets the short-lived state cookie for one login attempt.
func (m *Manager) IssueLoginState(w http.ResponseWriter, r *http.Request, ls LoginState) error {
	sess, _ := m.states.New(r, StateCookieName)
	sess.Values = map[any]any{stateKey: ls.State, nonceKey: ls.Nonce}

	if err := m.states.Save(r, w, sess); err != nil {
		return fmt.Errorf("session: issue login state: %w", err)
	}
	return nil
}

// ReadLoginState reports false unless both state and nonce are present.
func (m *Manager) ReadLoginState(r *http.Request) (LoginState, bool) {
	sess, err := m.states.New(r, StateCookieName)
	if err != nil || sess.IsNew {
		return LoginState{}, false
	}

	state, _ := sess.Values[stateKey].(string)
	nonce, _ := sess.Values[nonceKey].(string)
	if state == "" || nonce == "" {
		return LoginState{}, false
	}
	return LoginState{State: state, Nonce: nonce}, true
}

func (m *Manager) ClearLoginState(w http.ResponseWriter) {
	expireCookie(w, StateCookieName, m.states.Options)
}

// expireCookie issues an immediately expiring cookie with the same attributes.
func expireCookie(w http.ResponseWriter, name string, base *sessions.Options) {
	opts := *base
	opts.MaxAge = -1
	http.SetCookie(w, sessions.NewCookie(name, "", &opts))
}

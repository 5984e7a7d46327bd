// Package session holds the authenticated account's bearer token as an
// explicit object passed to the components that need it, replacing ambient
// global token storage so the billing engine stays testable without a
// browser-storage stub.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNoSession is returned when a token is requested but none is set.
var ErrNoSession = errors.New("session: not authenticated")

// TokenSource yields the bearer token attached to backend requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Session is the explicit per-account session object. It is safe for
// concurrent use; screens read it while auth flows replace the token.
type Session struct {
	mu        sync.RWMutex
	token     string
	accountID uuid.UUID
	onExpired func()
}

// New returns a session for the given account with the given bearer token.
func New(accountID uuid.UUID, token string) *Session {
	return &Session{accountID: accountID, token: token}
}

// Token implements TokenSource.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

// AccountID returns the authenticated account's identifier.
func (s *Session) AccountID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

// SetToken replaces the bearer token after a refresh or re-login.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// OnExpired registers the callback invoked when the backend rejects the
// session (401). The application typically navigates to login here.
func (s *Session) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpired = fn
}

// Expire clears the token and fires the registered callback once.
func (s *Session) Expire() {
	s.mu.Lock()
	s.token = ""
	fn := s.onExpired
	s.onExpired = nil
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

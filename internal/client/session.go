package client

import (
	"errors"
	"io"
	"log/slog"
	"serwer-kart/internal/storage"
	"strings"
	"sync"
)

const sessionKey = "session_token"

type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged in"
	}
	return "logged out"
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Save(key string, data io.Reader) error
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// Session holds the bearer token. There is no refresh: an expired token is
// noticed on the next call that comes back 401, which logs the session out.
type Session struct {
	mu    sync.RWMutex
	token string
	store TokenStore
}

// NewSession restores a previously saved token from store, if any. A nil
// store keeps the token in memory only.
func NewSession(store TokenStore) (*Session, error) {
	s := &Session{store: store}
	if store == nil {
		return s, nil
	}

	rc, err := store.Get(sessionKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s, nil
		}
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	s.token = strings.TrimSpace(string(raw))
	return s, nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return LoggedOut
	}
	return LoggedIn
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) logIn(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Save(sessionKey, strings.NewReader(token)); err != nil {
			return err
		}
	}
	s.token = token
	return nil
}

// LogOut clears the token in memory and in the store.
func (s *Session) LogOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if s.store != nil {
		return s.store.Delete(sessionKey)
	}
	return nil
}

func (s *Session) invalidate() {
	if err := s.LogOut(); err != nil {
		slog.Warn("failed to clear stored session token", "error", err)
	}
}

// Package session holds the process-wide access token used by the store clients.
package session

import (
	"errors"
	"io/fs"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/model"
)

// Accessor is the read-only view injected into clients.
type Accessor interface {
	// CurrentToken returns the bearer token, or false when signed out or expired.
	CurrentToken() (string, bool)
}

// Persister keeps a token across process restarts.
type Persister interface {
	Save(tok model.UserToken) error
	// Load returns an error wrapping fs.ErrNotExist when nothing is stored.
	Load() (model.UserToken, error)
	Remove() error
}

// Store is the process-wide session cache. It is populated at sign-in or
// startup and cleared at sign-out or when a store call is rejected as
// unauthorized. A nil Persister keeps the session in memory only.
type Store struct {
	mu      sync.RWMutex
	tok     *model.UserToken
	persist Persister
	log     *zap.Logger
	now     func() time.Time
}

// NewStore constructs an empty Store.
func NewStore(p Persister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{persist: p, log: log, now: time.Now}
}

// Set replaces the session. A token without an explicit expiry takes the
// exp claim of the JWT, when present.
func (s *Store) Set(tok model.UserToken) error {
	if tok.ExpiresAt.IsZero() {
		tok.ExpiresAt = ExpiryFromJWT(tok.Token)
	}
	if s.persist != nil {
		if err := s.persist.Save(tok); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.tok = &tok
	s.mu.Unlock()
	return nil
}

// Clear drops the session from memory and from the persister.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.tok = nil
	s.mu.Unlock()
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Remove(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Current returns the cached session unless it is missing or expired.
func (s *Store) Current() (model.UserToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil || s.tok.Token == "" {
		return model.UserToken{}, false
	}
	if !s.tok.ExpiresAt.IsZero() && !s.now().Before(s.tok.ExpiresAt) {
		return model.UserToken{}, false
	}
	return *s.tok, true
}

// CurrentToken implements Accessor.
func (s *Store) CurrentToken() (string, bool) {
	tok, ok := s.Current()
	return tok.Token, ok
}

// Restore loads a persisted session. A corrupted record is discarded.
func (s *Store) Restore() (model.UserToken, bool) {
	if s.persist == nil {
		return model.UserToken{}, false
	}
	tok, err := s.persist.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return model.UserToken{}, false
	}
	if err != nil {
		s.log.Error("failed to restore session, resetting", zap.Error(err))
		if cerr := s.Clear(); cerr != nil {
			s.log.Warn("clear session", zap.Error(cerr))
		}
		return model.UserToken{}, false
	}
	s.mu.Lock()
	s.tok = &tok
	s.mu.Unlock()
	return s.Current()
}

// ExpiryFromJWT reads the exp claim without verifying the signature.
// It returns the zero time when the token is not a JWT or has no exp.
func ExpiryFromJWT(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

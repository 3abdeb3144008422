package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
)

// AuthService signs the user in and out of the process-wide session.
type AuthService interface {
	// SignIn exchanges credentials for a token and stores it in the session.
	SignIn(ctx context.Context, username, password string) (model.AuthUser, error)
	// SignOut drops the stored session.
	SignOut() error
	// Current returns the signed-in user, if any.
	Current() (model.AuthUser, bool)
}

// SessionWriter is the part of the session store owned by sign-in/out.
type SessionWriter interface {
	Set(tok model.UserToken) error
	Clear() error
	Current() (model.UserToken, bool)
}

type AuthServiceImpl struct {
	repo    repository.AuthRepository
	session SessionWriter
	log     *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(repo repository.AuthRepository, session SessionWriter, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{repo: repo, session: session, log: log}
}

// SignIn authenticates and refreshes the session. A failed sign-in leaves
// any previous session in place.
func (s *AuthServiceImpl) SignIn(ctx context.Context, username, password string) (model.AuthUser, error) {
	if username == "" || password == "" {
		return model.AuthUser{}, fmt.Errorf("%w: empty username/password", errs.ErrInvalidInput)
	}
	tok, err := s.repo.SignIn(ctx, username, password)
	if err != nil {
		if errors.Is(err, errs.ErrBadRequest) {
			// the token endpoint answers bad credentials with 400
			return model.AuthUser{}, errs.ErrUnauthorized
		}
		return model.AuthUser{}, err
	}
	if err := s.session.Set(tok); err != nil {
		return model.AuthUser{}, fmt.Errorf("store session: %w", err)
	}
	s.log.Info("signed in", zap.String("user_id", tok.User.ID.String()))
	return tok.User, nil
}

func (s *AuthServiceImpl) SignOut() error {
	return s.session.Clear()
}

func (s *AuthServiceImpl) Current() (model.AuthUser, bool) {
	tok, ok := s.session.Current()
	if !ok {
		return model.AuthUser{}, false
	}
	return tok.User, true
}

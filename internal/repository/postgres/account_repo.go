package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/crypto"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/limiter"
	"github.com/and161185/bookshelf/internal/model"
)

// SessionTTL is the lifetime of a token issued by AccountRepo.SignIn.
const SessionTTL = 30 * 24 * time.Hour

// AccountRepo stores local accounts and implements repository.AuthRepository
// for the direct database mode.
type AccountRepo struct {
	db    *DB
	limit limiter.SignIn
	host  []byte
	log   *zap.Logger
	now   func() time.Time
}

// NewAccountRepo constructs an account repository. limit may be nil;
// host identifies the machine signing in.
func NewAccountRepo(db *DB, limit limiter.SignIn, host string, log *zap.Logger) *AccountRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountRepo{db: db, limit: limit, host: limiter.HashHost(host), log: log, now: time.Now}
}

const selectAccount = `
SELECT id, username, name, pwd_hash, salt, created_at
FROM users WHERE username=$1`

// Create registers a local account with a hashed password.
func (r *AccountRepo) Create(ctx context.Context, username, name, password string) (model.Account, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Account{}, err
	}
	hash, salt, err := crypto.HashPassword(password)
	if err != nil {
		return model.Account{}, err
	}
	a := model.Account{ID: id, Username: username, Name: name, PwdHash: hash, Salt: salt}

	const q = `
INSERT INTO users (id, username, name, pwd_hash, salt)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	err = r.db.Pool.QueryRow(ctx, q, a.ID, a.Username, a.Name, a.PwdHash, a.Salt).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return model.Account{}, fmt.Errorf("%w: username %q is taken", errs.ErrBadRequest, username)
	}
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// GetByUsername selects an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	var a model.Account
	err := r.db.Pool.QueryRow(ctx, selectAccount, username).
		Scan(&a.ID, &a.Username, &a.Name, &a.PwdHash, &a.Salt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// SignIn verifies the password and issues an opaque local token.
// Wrong credentials and lockouts are both reported as errs.ErrBadRequest.
func (r *AccountRepo) SignIn(ctx context.Context, username, password string) (model.UserToken, error) {
	if r.limit != nil {
		ok, wait, err := r.limit.Allow(ctx, username, r.host)
		if err != nil {
			return model.UserToken{}, err
		}
		if !ok {
			return model.UserToken{}, fmt.Errorf("%w: too many attempts, retry in %s", errs.ErrBadRequest, wait.Round(time.Second))
		}
	}

	a, err := r.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.UserToken{}, err
	}
	if err != nil || !crypto.VerifyPassword(password, a.Salt, a.PwdHash) {
		r.recordFailure(ctx, username)
		return model.UserToken{}, fmt.Errorf("%w: invalid credentials", errs.ErrBadRequest)
	}

	if r.limit != nil {
		if err := r.limit.Success(ctx, username, r.host); err != nil {
			r.log.Warn("reset sign-in attempts", zap.String("user", username), zap.Error(err))
		}
	}
	tok, err := crypto.NewToken()
	if err != nil {
		return model.UserToken{}, err
	}
	return model.UserToken{
		Token:     tok,
		User:      model.AuthUser{ID: a.ID, Name: a.Name, Roles: []string{"user"}},
		ExpiresAt: r.now().Add(SessionTTL),
	}, nil
}

func (r *AccountRepo) recordFailure(ctx context.Context, username string) {
	if r.limit == nil {
		return
	}
	blocked, dur, err := r.limit.Failure(ctx, username, r.host)
	if err != nil {
		r.log.Warn("record sign-in failure", zap.String("user", username), zap.Error(err))
		return
	}
	if blocked {
		r.log.Info("sign-in locked", zap.String("user", username), zap.Duration("for", dur))
	}
}

package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed SignIn limiter with a sliding window and lockout.
type PG struct {
	db       querier
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a limiter that blocks for blockFor after maxFails
// failures within window.
func NewPG(q querier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{db: q, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

// HashHost returns a stable digest of a host name so it is never stored raw.
func HashHost(host string) []byte {
	h := sha256.Sum256([]byte(host))
	return h[:]
}

func (l *PG) Allow(ctx context.Context, username string, hostHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM signin_attempts WHERE username=$1 AND host_hash=$2`
	var blockedUntil time.Time
	err := l.db.QueryRow(ctx, q, username, hostHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if now := l.now(); blockedUntil.After(now) {
		return false, blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *PG) Success(ctx context.Context, username string, hostHash []byte) error {
	const q = `
INSERT INTO signin_attempts (username, host_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,0,'epoch',now())
ON CONFLICT (username, host_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=now()`
	_, err := l.db.Exec(ctx, q, username, hostHash)
	return err
}

func (l *PG) Failure(ctx context.Context, username string, hostHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO signin_attempts (username, host_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (username, host_hash) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - signin_attempts.updated_at > $3::interval THEN 1 ELSE signin_attempts.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.db.QueryRow(ctx, q, username, hostHash, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}
	const upd = `UPDATE signin_attempts SET blocked_until=$3 WHERE username=$1 AND host_hash=$2`
	if _, err := l.db.Exec(ctx, upd, username, hostHash, l.now().Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}

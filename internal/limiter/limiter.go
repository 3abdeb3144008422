// Package limiter throttles sign-in attempts and outbound catalog requests.
package limiter

import (
	"context"
	"time"
)

// SignIn tracks failed sign-in attempts and temporary lockouts.
type SignIn interface {
	// Allow reports whether a sign-in is currently allowed and, if not, for how long.
	Allow(ctx context.Context, username string, hostHash []byte) (bool, time.Duration, error)
	// Success resets the counters after a successful sign-in.
	Success(ctx context.Context, username string, hostHash []byte) error
	// Failure records a failed attempt and may place a temporary block.
	Failure(ctx context.Context, username string, hostHash []byte) (bool, time.Duration, error)
}

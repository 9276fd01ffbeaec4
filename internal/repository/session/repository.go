package session

import (
	"context"
	"time"
)

// Revocation marks a signed-in token as no longer usable before it expires.
type Revocation struct {
	TokenID    string
	IdentityID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

type Repository interface {
	Revoke(ctx context.Context, r Revocation) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// PurgeExpired drops revocations whose tokens have expired anyway.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

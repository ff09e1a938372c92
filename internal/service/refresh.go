package service

import (
	"context"
	"time"
)

// RefreshStore keeps at most one live refresh token per username. Every entry
// carries its own expiry so abandoned tokens disappear without a sweep.
type RefreshStore interface {
	// Save replaces any token already stored for username.
	Save(ctx context.Context, username, token string, ttl time.Duration) error
	Exists(ctx context.Context, token string) (bool, error)
	// Get returns model.ErrRefreshNotFound when nothing is stored.
	Get(ctx context.Context, username string) (string, error)
	// DeleteByToken and DeleteByUsername are no-ops for absent entries.
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUsername(ctx context.Context, username string) error
}

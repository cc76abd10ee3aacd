// Package store persists per-table GameState and provides the coarse
// per-table lock Table session uses to serialise Leave and round
// transitions. The store is a serialisation surface, not an owner — the
// Table session above it is the sole owner of its GameState.
package store

import (
	"context"
	"time"

	"github.com/tonktable/tonkd/internal/rules"
)

// PlayerInfo is the per-table {userId -> profile} record the store keeps
// independently of in-round PlayerState, surviving across rounds.
type PlayerInfo struct {
	Username  string `json:"username"`
	IsAI      bool   `json:"isAI"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Store is the persistence + locking surface Table session depends on.
// Implementations: RedisStore (production, cross-process) and MemStore
// (single-process / tests).
type Store interface {
	// Save persists state under tableID, overwriting any prior value.
	Save(ctx context.Context, tableID string, state *rules.GameState) error
	// Load returns the persisted state for tableID, or (nil, nil) if
	// none exists.
	Load(ctx context.Context, tableID string) (*rules.GameState, error)
	// Delete removes any persisted state for tableID.
	Delete(ctx context.Context, tableID string) error

	// TryLock attempts to acquire tableID's lock for ttl, returning an
	// opaque owner token on success. The lock auto-expires after ttl
	// even if never explicitly released.
	TryLock(ctx context.Context, tableID string, ttl time.Duration) (token string, ok bool, err error)
	// Unlock releases tableID's lock if and only if token is still the
	// current holder; a stale token (lock already expired and
	// reacquired by someone else) is a silent no-op.
	Unlock(ctx context.Context, tableID, token string) error

	// SetPlayer upserts a table's {userId -> profile} entry.
	SetPlayer(ctx context.Context, tableID, userID string, info PlayerInfo) error
	// RemovePlayer deletes a table's {userId -> profile} entry.
	RemovePlayer(ctx context.Context, tableID, userID string) error
	// Players returns every profile currently recorded for tableID.
	Players(ctx context.Context, tableID string) (map[string]PlayerInfo, error)

	// MarkLeaving adds userID to tableID's "leaving at round end" set.
	MarkLeaving(ctx context.Context, tableID, userID string) error
	// ClearLeaving removes userID from tableID's leaving set, called once
	// the departure has been processed.
	ClearLeaving(ctx context.Context, tableID, userID string) error
	// LeavingSet returns every userID queued to leave at round end.
	LeavingSet(ctx context.Context, tableID string) (map[string]bool, error)
}

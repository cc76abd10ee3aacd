package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonktable/tonkd/internal/rules"
)

// RedisStore is the production Store backend, shared across processes.
// Grounded on the go-redis client usage in Pelentan-swarm-blackjack's
// gateway and observability-service (both depend on
// github.com/redis/go-redis/v9 for pub/sub and cache access); the lock
// here is an original SETNX/PX implementation in that same idiom, guarded
// by an owner token so a stale holder can never release a lock it no
// longer owns.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func stateKey(tableID string) string   { return fmt.Sprintf("tonk:table:%s:state", tableID) }
func lockKey(tableID string) string    { return fmt.Sprintf("tonk:table:%s:lock", tableID) }
func playersKey(tableID string) string { return fmt.Sprintf("tonk:table:%s:players", tableID) }
func leavingKey(tableID string) string { return fmt.Sprintf("tonk:table:%s:leaving", tableID) }

func (r *RedisStore) Save(ctx context.Context, tableID string, state *rules.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshal game state: %w", err)
	}
	if err := r.rdb.Set(ctx, stateKey(tableID), data, 0).Err(); err != nil {
		return fmt.Errorf("store: save game state: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, tableID string) (*rules.GameState, error) {
	data, err := r.rdb.Get(ctx, stateKey(tableID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load game state: %w", rules.ErrInternal)
	}

	var state rules.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("store: unmarshal game state: %w", rules.ErrInternal)
	}
	return &state, nil
}

func (r *RedisStore) Delete(ctx context.Context, tableID string) error {
	if err := r.rdb.Del(ctx, stateKey(tableID)).Err(); err != nil {
		return fmt.Errorf("store: delete game state: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) TryLock(ctx context.Context, tableID string, ttl time.Duration) (string, bool, error) {
	token, err := randomToken()
	if err != nil {
		return "", false, fmt.Errorf("store: generate lock token: %w", rules.ErrInternal)
	}

	ok, err := r.rdb.SetNX(ctx, lockKey(tableID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("store: acquire lock: %w", rules.ErrInternal)
	}
	return token, ok, nil
}

func (r *RedisStore) Unlock(ctx context.Context, tableID, token string) error {
	held, err := r.rdb.Get(ctx, lockKey(tableID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read lock owner: %w", rules.ErrInternal)
	}
	if held != token {
		// Lock already expired and was reacquired by someone else; not
		// ours to release.
		return nil
	}
	if err := r.rdb.Del(ctx, lockKey(tableID)).Err(); err != nil {
		return fmt.Errorf("store: release lock: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) SetPlayer(ctx context.Context, tableID, userID string, info PlayerInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("store: marshal player info: %w", err)
	}
	if err := r.rdb.HSet(ctx, playersKey(tableID), userID, data).Err(); err != nil {
		return fmt.Errorf("store: set player: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) RemovePlayer(ctx context.Context, tableID, userID string) error {
	if err := r.rdb.HDel(ctx, playersKey(tableID), userID).Err(); err != nil {
		return fmt.Errorf("store: remove player: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) Players(ctx context.Context, tableID string) (map[string]PlayerInfo, error) {
	raw, err := r.rdb.HGetAll(ctx, playersKey(tableID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: load players: %w", rules.ErrInternal)
	}

	out := make(map[string]PlayerInfo, len(raw))
	for userID, data := range raw {
		var info PlayerInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			return nil, fmt.Errorf("store: unmarshal player info for %s: %w", userID, rules.ErrInternal)
		}
		out[userID] = info
	}
	return out, nil
}

func (r *RedisStore) MarkLeaving(ctx context.Context, tableID, userID string) error {
	if err := r.rdb.SAdd(ctx, leavingKey(tableID), userID).Err(); err != nil {
		return fmt.Errorf("store: mark leaving: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) ClearLeaving(ctx context.Context, tableID, userID string) error {
	if err := r.rdb.SRem(ctx, leavingKey(tableID), userID).Err(); err != nil {
		return fmt.Errorf("store: clear leaving: %w", rules.ErrInternal)
	}
	return nil
}

func (r *RedisStore) LeavingSet(ctx context.Context, tableID string) (map[string]bool, error) {
	members, err := r.rdb.SMembers(ctx, leavingKey(tableID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: load leaving set: %w", rules.ErrInternal)
	}
	out := make(map[string]bool, len(members))
	for _, m := range members {
		out[m] = true
	}
	return out, nil
}


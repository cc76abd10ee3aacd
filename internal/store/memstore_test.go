package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonktable/tonkd/internal/rules"
)

func TestMemStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	state := &rules.GameState{TableID: "t1", BaseStake: 10, Status: rules.StatusInProgress}
	require.NoError(t, m.Save(ctx, "t1", state))

	loaded, err := m.Load(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, state, loaded)

	require.NoError(t, m.Delete(ctx, "t1"))
	loaded, err = m.Load(ctx, "t1")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestMemStoreLockExclusiveUntilUnlocked(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	token, ok, err := m.TryLock(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = m.TryLock(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "lock should be held")

	require.NoError(t, m.Unlock(ctx, "t1", token))

	_, ok, err = m.TryLock(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "lock should be free after unlock")
}

func TestMemStoreLockAutoExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	_, ok, err := m.TryLock(ctx, "t1", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	_, ok, err = m.TryLock(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lock should be reclaimable")
}

func TestMemStoreUnlockWithStaleTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	_, ok, err := m.TryLock(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Unlock(ctx, "t1", "not-the-real-token"))

	_, ok, err = m.TryLock(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "lock should still be held; stale unlock must not release it")
}

func TestMemStorePlayersAndLeavingSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	require.NoError(t, m.SetPlayer(ctx, "t1", "u1", PlayerInfo{Username: "alice"}))
	require.NoError(t, m.SetPlayer(ctx, "t1", "u2", PlayerInfo{Username: "bob", IsAI: true}))

	players, err := m.Players(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, players, 2)
	require.Equal(t, "alice", players["u1"].Username)

	require.NoError(t, m.RemovePlayer(ctx, "t1", "u1"))
	players, err = m.Players(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, players, 1)

	require.NoError(t, m.MarkLeaving(ctx, "t1", "u2"))
	leaving, err := m.LeavingSet(ctx, "t1")
	require.NoError(t, err)
	require.True(t, leaving["u2"])

	require.NoError(t, m.ClearLeaving(ctx, "t1", "u2"))
	leaving, err = m.LeavingSet(ctx, "t1")
	require.NoError(t, err)
	require.False(t, leaving["u2"])
}

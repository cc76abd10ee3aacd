package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TONK_MIN_WITHDRAWAL", "25")
	t.Setenv("TONK_LOCK_TTL", "5s")
	t.Setenv("TONK_REDIS_ADDR", "redis.internal:6379")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, int64(25), cfg.MinWithdrawalAmount)
	require.Equal(t, 5*time.Second, cfg.LockTTL)
	require.Equal(t, "redis.internal:6379", cfg.RedisAddr)
	require.Equal(t, Default().RoundTransitionDelay, cfg.RoundTransitionDelay)
}

func TestFromEnvRejectsMalformedDuration(t *testing.T) {
	t.Setenv("TONK_BOT_THINK_TIME", "not-a-duration")

	_, err := FromEnv()
	require.Error(t, err)
}

package table

import (
	"time"

	"github.com/tonktable/tonkd/internal/rules"
)

// Config holds the tunables a Table session needs, all overridable without
// code change via internal/config's environment loader.
type Config struct {
	BaseStake int64

	MinPlayers int
	MaxPlayers int

	// LockTTL bounds how long the per-table store lock may be held before
	// it auto-expires and the next actor proceeds on the assumption the
	// prior holder is dead.
	LockTTL time.Duration

	// RoundTransitionDelay is how long a finished round sits in
	// round-end before the next round is assembled, giving clients time
	// to render the outcome.
	RoundTransitionDelay time.Duration

	// BotThinkTime is the delay before a bot's turn is actually played,
	// so bot moves don't appear instantaneous.
	BotThinkTime time.Duration
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig(baseStake int64) Config {
	return Config{
		BaseStake:            baseStake,
		MinPlayers:           rules.MinPlayers,
		MaxPlayers:           rules.MaxPlayers,
		LockTTL:              10 * time.Second,
		RoundTransitionDelay: 30 * time.Second,
		BotThinkTime:         1 * time.Second,
	}
}

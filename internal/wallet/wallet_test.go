package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonktable/tonkd/internal/rules"
)

func TestComputePayoutsRegular(t *testing.T) {
	g := &rules.GameState{
		BaseStake:     10,
		Pot:           30,
		RoundEndedBy:  rules.RoundEndRegular,
		RoundWinnerID: "a",
		Players: []*rules.PlayerState{
			{UserID: "a"}, {UserID: "b"}, {UserID: "c"},
		},
	}
	p, err := ComputePayouts(g)
	require.NoError(t, err)
	require.Equal(t, int64(30), p.WinnerPayout)
	require.Empty(t, p.Penalties)
}

func TestComputePayoutsReem(t *testing.T) {
	g := &rules.GameState{
		BaseStake:     10,
		Pot:           30,
		RoundEndedBy:  rules.RoundEndReem,
		RoundWinnerID: "a",
		Players: []*rules.PlayerState{
			{UserID: "a"}, {UserID: "b"}, {UserID: "c"},
		},
	}
	p, err := ComputePayouts(g)
	require.NoError(t, err)
	require.Equal(t, int64(30+10*2), p.WinnerPayout)
	require.Equal(t, int64(10), p.Penalties["b"])
	require.Equal(t, int64(10), p.Penalties["c"])
}

func TestComputePayoutsAutoTriple(t *testing.T) {
	g := &rules.GameState{
		BaseStake:     10,
		Pot:           30,
		RoundEndedBy:  rules.RoundEndAutoTriple,
		RoundWinnerID: "a",
		Players: []*rules.PlayerState{
			{UserID: "a"}, {UserID: "b"}, {UserID: "c"},
		},
	}
	p, err := ComputePayouts(g)
	require.NoError(t, err)
	require.Equal(t, int64(30+3*10*2), p.WinnerPayout)
	require.Equal(t, int64(30), p.Penalties["b"])
}

func TestComputePayoutsCaughtDrop(t *testing.T) {
	g := &rules.GameState{
		BaseStake:              10,
		Pot:                    30,
		RoundEndedBy:           rules.RoundEndCaughtDrop,
		RoundWinnerID:          "b",
		CaughtDroppingPlayerID: "a",
		Players: []*rules.PlayerState{
			{UserID: "a"}, {UserID: "b"}, {UserID: "c"},
		},
	}
	p, err := ComputePayouts(g)
	require.NoError(t, err)
	require.Equal(t, int64(30+10), p.WinnerPayout)
	require.Equal(t, int64(10), p.Penalties["a"])
	require.Len(t, p.Penalties, 1)
}

// TestScenarioAutoTripleSettlement mirrors spec scenario 1: stake=10, two
// humans {100,100}, one bot; A auto-triples. A's wallet should land on
// 100 - 10 + (10 + 30*2) = 160; B's on 100 - 10 - 30 = 60.
func TestScenarioAutoTripleSettlement(t *testing.T) {
	ctx := context.Background()
	w := NewMemWallet(map[string]int64{"a": 100, "b": 100})

	locked, err := w.CollectAntes(ctx, "t1", 10, []AnteInput{
		{UserID: "a"}, {UserID: "b"}, {UserID: "bot1", IsAI: true},
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), locked["a"])
	require.Equal(t, int64(10), locked["bot1"])

	balA, _ := w.AvailableBalance(ctx, "a")
	balB, _ := w.AvailableBalance(ctx, "b")
	require.Equal(t, int64(90), balA)
	require.Equal(t, int64(90), balB)

	pot := int64(30) // 10 * 3 seats
	settlements := []PlayerSettlement{
		{UserID: "a", Stake: 10, Delta: 10 + 30*2},
		{UserID: "b", Stake: 10, Delta: -30},
		{UserID: "bot1", IsAI: true, Stake: 10, Delta: 0},
	}
	require.NoError(t, w.Settle(ctx, "t1", string(rules.RoundEndAutoTriple), pot, settlements))

	balA, _ = w.AvailableBalance(ctx, "a")
	balB, _ = w.AvailableBalance(ctx, "b")
	require.Equal(t, int64(160), balA)
	require.Equal(t, int64(60), balB)

	require.Len(t, w.Matches(), 1)
}

func TestCollectAntesInsufficientFundsAbortsWholeBatch(t *testing.T) {
	ctx := context.Background()
	w := NewMemWallet(map[string]int64{"a": 100, "b": 5})

	_, err := w.CollectAntes(ctx, "t1", 10, []AnteInput{{UserID: "a"}, {UserID: "b"}})
	require.Error(t, err)

	balA, _ := w.AvailableBalance(ctx, "a")
	require.Equal(t, int64(100), balA, "a must not be debited when the batch aborts")
}

func TestSettleNegativeBalanceAborts(t *testing.T) {
	ctx := context.Background()
	w := NewMemWallet(map[string]int64{"a": 5})

	err := w.Settle(ctx, "t1", "REGULAR", 0, []PlayerSettlement{{UserID: "a", Delta: -10}})
	require.Error(t, err)

	balA, _ := w.AvailableBalance(ctx, "a")
	require.Equal(t, int64(5), balA)
	require.Empty(t, w.Matches())
}

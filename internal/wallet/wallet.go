// Package wallet implements ante collection and round settlement: the one
// place real money moves. Every mutating operation commits atomically —
// all balance updates, transaction history appends, and the match record
// together, or none of them.
package wallet

import (
	"context"
	"fmt"

	"github.com/tonktable/tonkd/internal/rules"
)

// TransactionType classifies a Transaction row.
type TransactionType string

const (
	TransactionDeposit   TransactionType = "Deposit"
	TransactionWithdrawal TransactionType = "Withdrawal"
	TransactionWin       TransactionType = "Win"
	TransactionLoss      TransactionType = "Loss"
)

// PlayerSettlement is one seated player's share of a round's outcome, fed
// into Settle to produce per-wallet deltas and Match/Transaction rows.
type PlayerSettlement struct {
	UserID        string
	IsAI          bool
	Stake         int64
	BuyIn         int64
	FinalHandValue int
	// Delta is the net wallet change for this player: positive for the
	// winner, negative for penalised losers, zero otherwise.
	Delta int64
}

// Payouts is the result of ComputePayouts: the winner's total credit and
// the per-loser penalty amounts, keyed by userId.
type Payouts struct {
	WinnerID      string
	WinnerPayout  int64
	Penalties     map[string]int64
}

// ComputePayouts dispatches on roundEndedBy per §4.E's payout table.
func ComputePayouts(g *rules.GameState) (Payouts, error) {
	losers := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		if p.UserID != g.RoundWinnerID {
			losers = append(losers, p.UserID)
		}
	}

	switch g.RoundEndedBy {
	case rules.RoundEndRegular, rules.RoundEndDeckEmpty:
		return Payouts{WinnerID: g.RoundWinnerID, WinnerPayout: g.Pot, Penalties: map[string]int64{}}, nil

	case rules.RoundEndReem:
		penalties := make(map[string]int64, len(losers))
		for _, l := range losers {
			penalties[l] = g.BaseStake
		}
		payout := g.Pot + g.BaseStake*int64(len(losers))
		return Payouts{WinnerID: g.RoundWinnerID, WinnerPayout: payout, Penalties: penalties}, nil

	case rules.RoundEndAutoTriple:
		penalties := make(map[string]int64, len(losers))
		for _, l := range losers {
			penalties[l] = 3 * g.BaseStake
		}
		payout := g.Pot + 3*g.BaseStake*int64(len(losers))
		return Payouts{WinnerID: g.RoundWinnerID, WinnerPayout: payout, Penalties: penalties}, nil

	case rules.RoundEndCaughtDrop:
		penalties := map[string]int64{g.CaughtDroppingPlayerID: g.BaseStake}
		payout := g.Pot + g.BaseStake
		return Payouts{WinnerID: g.RoundWinnerID, WinnerPayout: payout, Penalties: penalties}, nil

	default:
		return Payouts{}, fmt.Errorf("wallet: cannot compute payouts for round end reason %q: %w", g.RoundEndedBy, rules.ErrInternal)
	}
}

// Wallet is the real-money boundary the rules engine and table session
// never touch directly. Implementations: PostgresWallet (production,
// transactional) and MemWallet (tests).
type Wallet interface {
	// AvailableBalance returns userID's current spendable balance.
	AvailableBalance(ctx context.Context, userID string) (int64, error)

	// CollectAntes reserves baseStake from every human player's balance
	// for gameState's round, failing the whole operation if any human
	// lacks funds. Bot antes inflate the pot without debiting any
	// wallet. Returns the per-userId locked amounts.
	CollectAntes(ctx context.Context, tableID string, baseStake int64, players []AnteInput) (map[string]int64, error)

	// Settle commits payouts for a finished round as one atomic
	// transaction: credits the winner, debits each penalised player,
	// appends a Transaction per affected wallet, and writes a Match
	// record. Aborts entirely (no partial writes) if any wallet would go
	// negative.
	Settle(ctx context.Context, tableID, matchWinType string, pot int64, settlements []PlayerSettlement) error
}

// AnteInput is one seated player's identity for ante collection.
type AnteInput struct {
	UserID string
	IsAI   bool
}

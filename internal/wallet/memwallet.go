package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/tonktable/tonkd/internal/rules"
)

// Match is an immutable settlement record, mirroring PostgresWallet's
// matches/match_players rows.
type Match struct {
	TableID  string
	WinType  string
	Pot      int64
	Players  []PlayerSettlement
}

// Transaction mirrors PostgresWallet's transactions rows.
type Transaction struct {
	UserID        string
	Type          TransactionType
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
}

// MemWallet is an in-memory Wallet for deterministic tests. Staged writes
// are computed against a scratch copy of balances and only committed once
// every player in the batch has been validated, giving the same
// all-or-nothing semantics as PostgresWallet's sql.Tx.
type MemWallet struct {
	mu           sync.Mutex
	balances     map[string]int64
	matches      []Match
	transactions []Transaction
}

// NewMemWallet seeds balances for a fixed set of users.
func NewMemWallet(initial map[string]int64) *MemWallet {
	balances := make(map[string]int64, len(initial))
	for k, v := range initial {
		balances[k] = v
	}
	return &MemWallet{balances: balances}
}

func (w *MemWallet) AvailableBalance(_ context.Context, userID string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	balance, ok := w.balances[userID]
	if !ok {
		return 0, fmt.Errorf("wallet: no wallet for %s: %w", userID, rules.ErrNotFound)
	}
	return balance, nil
}

func (w *MemWallet) CollectAntes(_ context.Context, tableID string, baseStake int64, players []AnteInput) (map[string]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	staged := make(map[string]int64, len(w.balances))
	for k, v := range w.balances {
		staged[k] = v
	}

	locked := make(map[string]int64, len(players))
	var newTxns []Transaction
	for _, p := range players {
		if p.IsAI {
			locked[p.UserID] = baseStake
			continue
		}

		balance, ok := staged[p.UserID]
		if !ok {
			return nil, fmt.Errorf("wallet: no wallet for %s: %w", p.UserID, rules.ErrNotFound)
		}
		if balance < baseStake {
			return nil, fmt.Errorf("wallet: %s has insufficient funds for ante: %w", p.UserID, rules.ErrInsufficientFunds)
		}

		newBalance := balance - baseStake
		staged[p.UserID] = newBalance
		newTxns = append(newTxns, Transaction{UserID: p.UserID, Type: TransactionLoss, Amount: baseStake, BalanceBefore: balance, BalanceAfter: newBalance})
		locked[p.UserID] = baseStake
	}

	w.balances = staged
	w.transactions = append(w.transactions, newTxns...)
	return locked, nil
}

func (w *MemWallet) Settle(_ context.Context, tableID, matchWinType string, pot int64, settlements []PlayerSettlement) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	staged := make(map[string]int64, len(w.balances))
	for k, v := range w.balances {
		staged[k] = v
	}

	var newTxns []Transaction
	for _, s := range settlements {
		if s.IsAI || s.Delta == 0 {
			continue
		}
		balance, ok := staged[s.UserID]
		if !ok {
			return fmt.Errorf("wallet: no wallet for %s: %w", s.UserID, rules.ErrNotFound)
		}
		newBalance := balance + s.Delta
		if newBalance < 0 {
			return fmt.Errorf("wallet: settlement would drive %s negative: %w", s.UserID, rules.ErrInsufficientFunds)
		}
		staged[s.UserID] = newBalance

		txType := TransactionWin
		amount := s.Delta
		if s.Delta < 0 {
			txType = TransactionLoss
			amount = -s.Delta
		}
		newTxns = append(newTxns, Transaction{UserID: s.UserID, Type: txType, Amount: amount, BalanceBefore: balance, BalanceAfter: newBalance})
	}

	w.balances = staged
	w.transactions = append(w.transactions, newTxns...)
	w.matches = append(w.matches, Match{TableID: tableID, WinType: matchWinType, Pot: pot, Players: settlements})
	return nil
}

// Matches returns every settled match recorded so far, for test assertions.
func (w *MemWallet) Matches() []Match {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Match, len(w.matches))
	copy(out, w.matches)
	return out
}

// Transactions returns every transaction recorded so far, for test
// assertions.
func (w *MemWallet) Transactions() []Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Transaction, len(w.transactions))
	copy(out, w.transactions)
	return out
}

package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tonktable/tonkd/internal/rules"
)

// PostgresWallet is the production Wallet, grounded on
// Pelentan-swarm-blackjack/bank-service/go/db.go's shape: a pooled
// *sql.DB, idempotent CREATE TABLE IF NOT EXISTS migrations, and every
// mutating method wrapped in tx.Begin()/defer tx.Rollback()/tx.Commit().
type PostgresWallet struct {
	pool *sql.DB
}

// NewPostgresWallet opens a connection pool against dsn and waits for it
// to become reachable.
func NewPostgresWallet(dsn string) (*PostgresWallet, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("wallet: open db: %w", err)
	}
	pool.SetMaxOpenConns(20)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)

	w := &PostgresWallet{pool: pool}
	if err := w.waitReady(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *PostgresWallet) waitReady() error {
	var lastErr error
	for i := 0; i < 30; i++ {
		err := w.pool.Ping()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("wallet: database unavailable: %w", lastErr)
}

// Migrate creates the wallet schema if it doesn't already exist.
func (w *PostgresWallet) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			user_id               VARCHAR(100) PRIMARY KEY,
			available_balance     BIGINT NOT NULL DEFAULT 0,
			pending_withdrawals   BIGINT NOT NULL DEFAULT 0,
			lifetime_deposits     BIGINT NOT NULL DEFAULT 0,
			lifetime_withdrawals  BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			table_id    VARCHAR(100) NOT NULL,
			win_type    VARCHAR(30)  NOT NULL,
			pot         BIGINT       NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id          UUID NOT NULL REFERENCES matches(id),
			user_id           VARCHAR(100) NOT NULL,
			stake             BIGINT NOT NULL,
			buy_in            BIGINT NOT NULL,
			final_hand_value  INT NOT NULL,
			payout            BIGINT NOT NULL,
			PRIMARY KEY (match_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id         VARCHAR(100) NOT NULL,
			type            VARCHAR(30)  NOT NULL,
			amount          BIGINT       NOT NULL,
			balance_before  BIGINT       NOT NULL,
			balance_after   BIGINT       NOT NULL,
			match_id        UUID REFERENCES matches(id),
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := w.pool.Exec(stmt); err != nil {
			return fmt.Errorf("wallet: migrate: %w", err)
		}
	}
	return nil
}

func (w *PostgresWallet) AvailableBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := w.pool.QueryRowContext(ctx,
		`SELECT available_balance FROM wallets WHERE user_id=$1`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("wallet: no wallet for %s: %w", userID, rules.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("wallet: read balance: %w", rules.ErrInternal)
	}
	return balance, nil
}

func (w *PostgresWallet) CollectAntes(ctx context.Context, tableID string, baseStake int64, players []AnteInput) (map[string]int64, error) {
	tx, err := w.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: begin ante tx: %w", rules.ErrInternal)
	}
	defer tx.Rollback()

	locked := make(map[string]int64, len(players))
	for _, p := range players {
		if p.IsAI {
			// Bot antes inflate the pot without debiting any wallet —
			// house-funded, per the preserved spec behaviour.
			locked[p.UserID] = baseStake
			continue
		}

		var balance int64
		err := tx.QueryRowContext(ctx,
			`SELECT available_balance FROM wallets WHERE user_id=$1 FOR UPDATE`, p.UserID,
		).Scan(&balance)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("wallet: no wallet for %s: %w", p.UserID, rules.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("wallet: read balance for ante: %w", rules.ErrInternal)
		}
		if balance < baseStake {
			return nil, fmt.Errorf("wallet: %s has insufficient funds for ante: %w", p.UserID, rules.ErrInsufficientFunds)
		}

		newBalance := balance - baseStake
		if _, err := tx.ExecContext(ctx,
			`UPDATE wallets SET available_balance=$1 WHERE user_id=$2`, newBalance, p.UserID,
		); err != nil {
			return nil, fmt.Errorf("wallet: debit ante: %w", rules.ErrInternal)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions(user_id, type, amount, balance_before, balance_after) VALUES ($1,$2,$3,$4,$5)`,
			p.UserID, TransactionLoss, baseStake, balance, newBalance,
		); err != nil {
			return nil, fmt.Errorf("wallet: record ante transaction: %w", rules.ErrInternal)
		}

		locked[p.UserID] = baseStake
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("wallet: commit ante tx: %w", rules.ErrInternal)
	}
	return locked, nil
}

// Settle resolves the Open Question on matchId threading by creating the
// Match row first inside the transaction and passing its id into every
// Transaction insert, rather than writing placeholder ids and updating
// them afterward.
func (w *PostgresWallet) Settle(ctx context.Context, tableID, matchWinType string, pot int64, settlements []PlayerSettlement) error {
	tx, err := w.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wallet: begin settle tx: %w", rules.ErrInternal)
	}
	defer tx.Rollback()

	var matchID string
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO matches(table_id, win_type, pot) VALUES ($1,$2,$3) RETURNING id`,
		tableID, matchWinType, pot,
	).Scan(&matchID); err != nil {
		return fmt.Errorf("wallet: insert match: %w", rules.ErrInternal)
	}

	for _, s := range settlements {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_players(match_id, user_id, stake, buy_in, final_hand_value, payout)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			matchID, s.UserID, s.Stake, s.BuyIn, s.FinalHandValue, s.Delta,
		); err != nil {
			return fmt.Errorf("wallet: insert match player: %w", rules.ErrInternal)
		}

		if s.IsAI || s.Delta == 0 {
			continue
		}

		var balance int64
		err := tx.QueryRowContext(ctx,
			`SELECT available_balance FROM wallets WHERE user_id=$1 FOR UPDATE`, s.UserID,
		).Scan(&balance)
		if err == sql.ErrNoRows {
			return fmt.Errorf("wallet: no wallet for %s: %w", s.UserID, rules.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("wallet: read balance for settlement: %w", rules.ErrInternal)
		}

		newBalance := balance + s.Delta
		if newBalance < 0 {
			return fmt.Errorf("wallet: settlement would drive %s negative: %w", s.UserID, rules.ErrInsufficientFunds)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE wallets SET available_balance=$1 WHERE user_id=$2`, newBalance, s.UserID,
		); err != nil {
			return fmt.Errorf("wallet: apply settlement: %w", rules.ErrInternal)
		}

		txType := TransactionWin
		amount := s.Delta
		if s.Delta < 0 {
			txType = TransactionLoss
			amount = -s.Delta
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions(user_id, type, amount, balance_before, balance_after, match_id)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			s.UserID, txType, amount, balance, newBalance, matchID,
		); err != nil {
			return fmt.Errorf("wallet: record settlement transaction: %w", rules.ErrInternal)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("wallet: commit settle tx: %w", rules.ErrInternal)
	}
	return nil
}

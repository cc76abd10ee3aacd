package table

import "github.com/tonktable/tonkd/internal/rules"

// Broadcaster is how a Table session reaches connected clients, matching
// the outbound event list: initialGameState, gameStateUpdate, tableUpdate,
// walletBalanceUpdate, playerLeft, gameError, ackLeaveRequest.
// internal/transport provides the production implementation, fanning out
// over a table's websocket room.
type Broadcaster interface {
	// InitialGameState is sent to a single reconnecting or newly-joined
	// player, targeted rather than broadcast.
	InitialGameState(tableID, userID string, state *rules.GameState)
	// GameStateUpdate is broadcast to every member of tableID's room
	// after any state mutation.
	GameStateUpdate(tableID string, state *rules.GameState)
	// TableUpdate announces a lobby-visible change (seat count, status)
	// that isn't itself a GameState mutation.
	TableUpdate(tableID, message string, state *rules.GameState)
	// WalletBalanceUpdate is sent to one human player after their
	// balance changes.
	WalletBalanceUpdate(userID string, balance int64)
	// PlayerLeft announces a departure to the remaining room members.
	PlayerLeft(tableID, userID string)
	// GameError is sent to the single player whose action was rejected.
	GameError(userID, message string)
	// AckLeaveRequest confirms a RequestLeaveAfterRound was recorded.
	AckLeaveRequest(userID string)
}

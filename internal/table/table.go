// Package table implements the per-table session manager: the single
// logical owner of one table's membership and in-progress round. It
// mediates Join/Leave, shepherds rounds through internal/rules, dispatches
// bot turns via internal/bot, and settles stakes through internal/wallet,
// serialising everything that mutates shared state under the backing
// internal/store's per-table lock.
package table

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/tonktable/tonkd/internal/bot"
	"github.com/tonktable/tonkd/internal/deck"
	"github.com/tonktable/tonkd/internal/rules"
	"github.com/tonktable/tonkd/internal/store"
	"github.com/tonktable/tonkd/internal/wallet"
)

// Status is the lobby-visible phase of a table, independent of the
// in-round rules.Status that only exists once a round is underway.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusInGame  Status = "in-game"
)

// Table is one table's session: seat membership plus whatever round is
// currently in progress (if any). A process runs one Table per table it
// owns; the per-table lock in Store exists for the cases documented in
// §5 where two processes might still race (Leave, round transition, or
// action events arriving on a different worker).
type Table struct {
	ID  string
	cfg Config

	store       store.Store
	wallet      wallet.Wallet
	broadcaster Broadcaster
	scheduler   Scheduler
	rng         *rand.Rand

	mu          sync.Mutex
	seats       []*Seat
	dealerIndex int
	status      Status
	botSeq      int

	// pendingBotTick and pendingRoundTransition are set by fn bodies run
	// under withLock to request a follow-up timer, and consumed by
	// withLock itself once the lock (and t.mu) are released — arming a
	// timer while still holding t.mu would deadlock against a Scheduler
	// that fires synchronously, as the test double does.
	pendingBotTick         bool
	pendingRoundTransition bool
}

// New constructs a Table session in the waiting state with no seats.
func New(id string, cfg Config, st store.Store, w wallet.Wallet, bc Broadcaster, sched Scheduler, rng *rand.Rand) *Table {
	return &Table{
		ID:          id,
		cfg:         cfg,
		store:       st,
		wallet:      w,
		broadcaster: bc,
		scheduler:   sched,
		rng:         rng,
		status:      StatusWaiting,
	}
}

// withLock acquires the store's per-table lock for the duration of fn.
// Every mutating entry point funnels through this so two processes never
// race on the same table's state.
func (t *Table) withLock(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	err := t.runLocked(ctx, fn)
	botTick := t.pendingBotTick
	roundTransition := t.pendingRoundTransition
	t.pendingBotTick = false
	t.pendingRoundTransition = false
	t.mu.Unlock()

	// Armed outside t.mu: a Scheduler that fires synchronously (as test
	// doubles do) would otherwise re-enter withLock and deadlock on a
	// non-reentrant mutex.
	if roundTransition {
		t.scheduleRoundTransition()
	} else if botTick {
		t.scheduleBotTick()
	}
	return err
}

// rehydrateDeck restores g.Deck after a round-trip through the store.
// *deck.Deck is tagged json:"-" (only DeckState is persisted), so a state
// loaded back from a real backend like Redis comes back with a nil Deck;
// calling any rules function that draws before this runs is a nil-pointer
// dereference. A no-op if Deck already points at a live deck, as it does
// when an in-process store hands back the same GameState it was given.
func rehydrateDeck(g *rules.GameState, rng *rand.Rand) {
	if g != nil && g.Deck == nil {
		g.Deck = deck.FromState(g.DeckState, rng)
	}
}

func (t *Table) runLocked(ctx context.Context, fn func() error) error {
	token, ok, err := t.store.TryLock(ctx, t.ID, t.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("table: acquire lock: %w", rules.ErrInternal)
	}
	if !ok {
		return fmt.Errorf("table: %s is busy: %w", t.ID, rules.ErrConflict)
	}
	defer t.store.Unlock(ctx, t.ID, token)

	return fn()
}

func (t *Table) seatByID(userID string) (*Seat, int) {
	for i, s := range t.seats {
		if s.UserID == userID {
			return s, i
		}
	}
	return nil, -1
}

func (t *Table) humanCount() int {
	n := 0
	for _, s := range t.seats {
		if !s.IsAI {
			n++
		}
	}
	return n
}

func (t *Table) removeSeatAt(idx int) {
	t.seats = append(t.seats[:idx:idx], t.seats[idx+1:]...)
}

// evictBots drops every bot seat: on Leave when no humans remain or too
// few seats are left, and at a round transition once enough humans are
// seated for a humans-only round.
func (t *Table) evictBots(ctx context.Context) {
	kept := t.seats[:0]
	for _, s := range t.seats {
		if s.IsAI {
			t.store.RemovePlayer(ctx, t.ID, s.UserID)
			continue
		}
		kept = append(kept, s)
	}
	t.seats = kept
}

// Join validates and seats a player. Human balance must cover 4× the
// table's stake (headroom for multiple antes) before they're seated.
func (t *Table) Join(ctx context.Context, userID, username string, isAI bool) error {
	return t.withLock(ctx, func() error {
		return t.join(ctx, userID, username, isAI)
	})
}

func (t *Table) join(ctx context.Context, userID, username string, isAI bool) error {
	if seat, _ := t.seatByID(userID); seat != nil {
		state, err := t.store.Load(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("table: load state on rejoin: %w", rules.ErrInternal)
		}
		if state != nil {
			rehydrateDeck(state, t.rng)
			t.broadcaster.InitialGameState(t.ID, userID, state)
		}
		return nil
	}

	if !isAI {
		balance, err := t.wallet.AvailableBalance(ctx, userID)
		if err != nil {
			return fmt.Errorf("table: read balance for join: %v: %w", err, rules.ErrInternal)
		}
		if balance < 4*t.cfg.BaseStake {
			t.broadcaster.GameError(userID, "insufficient balance to join this table")
			return fmt.Errorf("table: %s has insufficient balance: %w", userID, rules.ErrInsufficientFunds)
		}
	}

	if len(t.seats) >= t.cfg.MaxPlayers {
		t.broadcaster.GameError(userID, "table is full")
		return fmt.Errorf("table: %s is full: %w", t.ID, rules.ErrIllegalAction)
	}

	seat := NewSeat(userID, username, isAI)
	t.seats = append(t.seats, seat)
	if err := t.store.SetPlayer(ctx, t.ID, userID, store.PlayerInfo{Username: username, IsAI: isAI}); err != nil {
		return fmt.Errorf("table: persist seat: %w", rules.ErrInternal)
	}

	if t.status == StatusWaiting && len(t.seats) >= t.cfg.MinPlayers {
		if err := t.startRound(ctx); err != nil {
			return err
		}
		return nil
	}

	// Single-human-awaiting-game optimisation: get a 1v1 going instead of
	// leaving a lone human to stare at an empty table.
	if t.status == StatusWaiting && t.humanCount() == 1 && len(t.seats) == 1 {
		botID := t.nextBotID()
		if err := t.join(ctx, botID, "Bot", true); err != nil {
			return err
		}
		return nil
	}

	t.broadcaster.TableUpdate(t.ID, "player joined", nil)
	return nil
}

// SendInitialState answers a requestInitialGameState event, targeting
// userID with whatever round state currently exists (or nothing, if the
// table hasn't started one) without mutating anything.
func (t *Table) SendInitialState(ctx context.Context, userID string) {
	_ = t.withLock(ctx, func() error {
		state, err := t.store.Load(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("table: load state for requestInitialGameState: %w", rules.ErrInternal)
		}
		if state != nil {
			rehydrateDeck(state, t.rng)
			t.broadcaster.InitialGameState(t.ID, userID, state)
		}
		return nil
	})
}

func (t *Table) nextBotID() string {
	t.botSeq++
	return fmt.Sprintf("bot-%d-%s", t.botSeq, uuid.NewString()[:8])
}

// startRound assembles a fresh GameState from the current active seats,
// collects antes, deals, and checks for an immediate auto-win.
func (t *Table) startRound(ctx context.Context) error {
	players := make([]*rules.PlayerState, len(t.seats))
	antes := make([]wallet.AnteInput, len(t.seats))
	for i, s := range t.seats {
		players[i] = &rules.PlayerState{UserID: s.UserID, Username: s.Username, IsAI: s.IsAI}
		antes[i] = wallet.AnteInput{UserID: s.UserID, IsAI: s.IsAI}
	}

	locked, err := t.wallet.CollectAntes(ctx, t.ID, t.cfg.BaseStake, antes)
	if err != nil {
		t.broadcaster.TableUpdate(t.ID, "could not start round: "+err.Error(), nil)
		return fmt.Errorf("table: collect antes: %w", err)
	}

	var pot int64
	for _, amount := range locked {
		pot += amount
	}
	for _, p := range players {
		p.CurrentBuyIn = locked[p.UserID]
	}

	g := &rules.GameState{
		TableID:            t.ID,
		BaseStake:          t.cfg.BaseStake,
		Pot:                pot,
		LockedAntes:        locked,
		Players:            players,
		CurrentDealerIndex: t.dealerIndex % len(players),
	}

	if err := rules.InitializeGame(g, t.rng); err != nil {
		return fmt.Errorf("table: initialize round: %w", err)
	}

	t.status = StatusInGame
	if err := t.store.Save(ctx, t.ID, g); err != nil {
		return fmt.Errorf("table: save new round: %w", rules.ErrInternal)
	}

	t.broadcaster.GameStateUpdate(t.ID, g)

	if g.Status == rules.StatusRoundEnd {
		if err := t.settleRound(ctx, g); err != nil {
			return err
		}
		t.pendingRoundTransition = true
		return nil
	}

	if g.CurrentPlayer().IsAI {
		t.pendingBotTick = true
	}
	return nil
}

// settleRound pays out a finished round's winner and losers, then
// broadcasts the resulting wallet balances to every human.
func (t *Table) settleRound(ctx context.Context, g *rules.GameState) error {
	payouts, err := wallet.ComputePayouts(g)
	if err != nil {
		return fmt.Errorf("table: compute payouts: %w", err)
	}

	settlements := make([]wallet.PlayerSettlement, 0, len(g.Players))
	for _, p := range g.Players {
		delta := int64(0)
		switch {
		case p.UserID == payouts.WinnerID:
			delta = payouts.WinnerPayout
		default:
			if penalty, ok := payouts.Penalties[p.UserID]; ok {
				delta = -penalty
			}
		}
		settlements = append(settlements, wallet.PlayerSettlement{
			UserID:         p.UserID,
			IsAI:           p.IsAI,
			Stake:          p.CurrentBuyIn,
			BuyIn:          p.CurrentBuyIn,
			FinalHandValue: g.HandScores[p.UserID],
			Delta:          delta,
		})
	}

	if err := t.wallet.Settle(ctx, t.ID, string(g.RoundEndedBy), g.Pot, settlements); err != nil {
		return fmt.Errorf("table: settle round: %w", err)
	}

	for _, p := range g.Players {
		if p.IsAI {
			continue
		}
		balance, err := t.wallet.AvailableBalance(ctx, p.UserID)
		if err != nil {
			continue
		}
		t.broadcaster.WalletBalanceUpdate(p.UserID, balance)
	}
	return nil
}

// scheduleBotTick defers a bot's move by cfg.BotThinkTime, per §4.F's bot
// turn loop.
func (t *Table) scheduleBotTick() {
	t.scheduler.After(t.cfg.BotThinkTime, func() {
		_ = t.withLock(context.Background(), t.tickBot)
	})
}

// tickBot re-validates that it is still a bot's turn before acting — the
// state may have moved on since the tick was scheduled (a human left,
// the round ended, and so on) in which case this is a silent no-op.
func (t *Table) tickBot() error {
	ctx := context.Background()
	g, err := t.store.Load(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("table: load state for bot tick: %w", rules.ErrInternal)
	}
	if g == nil || g.Status != rules.StatusInProgress {
		return nil
	}
	rehydrateDeck(g, t.rng)
	cur := g.CurrentPlayer()
	if !cur.IsAI {
		return nil
	}

	decision, err := bot.Decide(g, cur.UserID, t.rng)
	if err != nil {
		return fmt.Errorf("table: bot decision: %w", err)
	}

	turnEnded, err := applyDecision(g, cur.UserID, decision)
	if err != nil {
		return fmt.Errorf("table: apply bot decision: %w", err)
	}

	if err := t.store.Save(ctx, t.ID, g); err != nil {
		return fmt.Errorf("table: save after bot tick: %w", rules.ErrInternal)
	}
	t.broadcaster.GameStateUpdate(t.ID, g)

	if g.Status == rules.StatusRoundEnd {
		if err := t.settleRound(ctx, g); err != nil {
			return err
		}
		t.pendingRoundTransition = true
		return nil
	}

	// Recurse (via another deferred tick, not direct recursion) if the
	// turn didn't end or the next player is also a bot.
	if !turnEnded || g.CurrentPlayer().IsAI {
		t.pendingBotTick = true
	}
	return nil
}

// applyDecision dispatches a bot.Decision onto g, reporting whether the
// current player's turn ended as a result (Discard and Drop end it;
// Draw, Spread, and Hit do not).
func applyDecision(g *rules.GameState, userID string, d bot.Decision) (turnEnded bool, err error) {
	switch d.Kind {
	case bot.DecisionDraw:
		return false, rules.Draw(g, userID, d.Source)
	case bot.DecisionSpread:
		return false, rules.Spread(g, userID, d.Cards)
	case bot.DecisionHit:
		return false, rules.Hit(g, userID, d.Card, d.TargetPlayerID, d.TargetSpreadIdx)
	case bot.DecisionDrop:
		return true, rules.Drop(g, userID)
	case bot.DecisionDiscard:
		return true, rules.Discard(g, userID, d.Card)
	default:
		return false, fmt.Errorf("table: unknown bot decision kind %q: %w", d.Kind, rules.ErrInternal)
	}
}

// scheduleRoundTransition defers the next round's setup by
// cfg.RoundTransitionDelay, per §4.F's round transition.
func (t *Table) scheduleRoundTransition() {
	t.scheduler.After(t.cfg.RoundTransitionDelay, func() {
		_ = t.withLock(context.Background(), func() error {
			return t.performRoundTransition(context.Background())
		})
	})
}

func (t *Table) performRoundTransition(ctx context.Context) error {
	// A fire against a round that is already running (one started since
	// this transition was armed) is stale and does nothing.
	g, err := t.store.Load(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("table: load state for round transition: %w", rules.ErrInternal)
	}
	if g != nil && g.Status != rules.StatusRoundEnd {
		return nil
	}

	leaving, err := t.store.LeavingSet(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("table: load leaving set: %w", rules.ErrInternal)
	}
	for userID := range leaving {
		if seat, _ := t.seatByID(userID); seat != nil {
			seat.MarkDisconnected()
		}
		t.store.ClearLeaving(ctx, t.ID, userID)
	}

	kept := t.seats[:0]
	for _, s := range t.seats {
		if s.IsLeft() {
			t.store.RemovePlayer(ctx, t.ID, s.UserID)
			continue
		}
		kept = append(kept, s)
	}
	t.seats = kept

	if len(t.seats) < t.cfg.MinPlayers {
		t.status = StatusWaiting
		t.store.Delete(ctx, t.ID)
		t.broadcaster.TableUpdate(t.ID, "waiting for players", nil)
		return nil
	}

	if t.humanCount() >= t.cfg.MinPlayers {
		t.evictBots(ctx)
	}

	t.dealerIndex = (t.dealerIndex + 1) % len(t.seats)
	return t.startRound(ctx)
}

// RequestLeaveAfterRound queues userID to be dropped once the current
// round concludes, without touching live game state. The persisted
// leaving set is what performRoundTransition ultimately acts on (it must
// survive this process restarting or another worker owning the table by
// the time the round ends); the local seat's state machine is advanced
// too so this process's own view of the seat is consistent in the
// meantime.
func (t *Table) RequestLeaveAfterRound(ctx context.Context, userID string) error {
	return t.withLock(ctx, func() error {
		if err := t.store.MarkLeaving(ctx, t.ID, userID); err != nil {
			return fmt.Errorf("table: mark leaving: %w", rules.ErrInternal)
		}
		if seat, _ := t.seatByID(userID); seat != nil {
			seat.RequestLeaveAfterRound()
		}
		t.broadcaster.AckLeaveRequest(userID)
		return nil
	})
}

// Leave removes userID from the table immediately.
func (t *Table) Leave(ctx context.Context, userID string) error {
	return t.withLock(ctx, func() error {
		return t.leave(ctx, userID)
	})
}

func (t *Table) leave(ctx context.Context, userID string) error {
	seat, idx := t.seatByID(userID)
	if seat == nil {
		t.broadcaster.GameError(userID, "not seated at this table")
		return fmt.Errorf("table: %s is not seated at %s: %w", userID, t.ID, rules.ErrNotFound)
	}
	seat.MarkDisconnected()
	t.removeSeatAt(idx)
	t.store.RemovePlayer(ctx, t.ID, userID)

	if t.humanCount() == 0 {
		t.evictBots(ctx)
		t.status = StatusWaiting
		t.store.Delete(ctx, t.ID)
		t.broadcaster.PlayerLeft(t.ID, userID)
		return nil
	}

	g, err := t.store.Load(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("table: load state on leave: %w", rules.ErrInternal)
	}
	if g == nil || g.Status != rules.StatusInProgress {
		t.broadcaster.PlayerLeft(t.ID, userID)
		return nil
	}
	rehydrateDeck(g, t.rng)

	if len(t.seats) < t.cfg.MinPlayers {
		t.evictBots(ctx)
		t.status = StatusWaiting
		t.store.Delete(ctx, t.ID)
		t.broadcaster.PlayerLeft(t.ID, userID)
		t.broadcaster.TableUpdate(t.ID, "waiting for players", nil)
		return nil
	}

	removeLivePlayer(g, userID)
	if err := t.store.Save(ctx, t.ID, g); err != nil {
		return fmt.Errorf("table: save after leave: %w", rules.ErrInternal)
	}
	t.broadcaster.PlayerLeft(t.ID, userID)
	t.broadcaster.GameStateUpdate(t.ID, g)
	return nil
}

// removeLivePlayer drops userID from an in-progress GameState's Players
// slice, clamping CurrentPlayerIndex into the shrunk slice's bounds.
func removeLivePlayer(g *rules.GameState, userID string) {
	idx := g.PlayerIndex(userID)
	if idx < 0 {
		return
	}
	g.Players = append(g.Players[:idx:idx], g.Players[idx+1:]...)
	if len(g.Players) == 0 {
		return
	}
	if g.CurrentPlayerIndex >= len(g.Players) {
		g.CurrentPlayerIndex = g.CurrentPlayerIndex % len(g.Players)
	}
}

// Disconnect is equivalent to Leave for a socket that had an associated
// table and user.
func (t *Table) Disconnect(ctx context.Context, userID string) error {
	return t.Leave(ctx, userID)
}

// Draw, Discard, Spread, Hit, and Drop dispatch one client action each,
// all funnelled through the same save/broadcast/bot-scheduling tail.

func (t *Table) Draw(ctx context.Context, userID string, source rules.DrawSource) error {
	return t.dispatchAction(ctx, userID, func(g *rules.GameState) error {
		return rules.Draw(g, userID, source)
	})
}

func (t *Table) Discard(ctx context.Context, userID string, card deck.Card) error {
	return t.dispatchAction(ctx, userID, func(g *rules.GameState) error {
		return rules.Discard(g, userID, card)
	})
}

func (t *Table) Spread(ctx context.Context, userID string, cards []deck.Card) error {
	return t.dispatchAction(ctx, userID, func(g *rules.GameState) error {
		return rules.Spread(g, userID, cards)
	})
}

func (t *Table) Hit(ctx context.Context, userID string, card deck.Card, targetPlayerID string, targetSpreadIdx int) error {
	return t.dispatchAction(ctx, userID, func(g *rules.GameState) error {
		return rules.Hit(g, userID, card, targetPlayerID, targetSpreadIdx)
	})
}

func (t *Table) Drop(ctx context.Context, userID string) error {
	return t.dispatchAction(ctx, userID, func(g *rules.GameState) error {
		return rules.Drop(g, userID)
	})
}

func (t *Table) dispatchAction(ctx context.Context, userID string, apply func(g *rules.GameState) error) error {
	return t.withLock(ctx, func() error {
		g, err := t.store.Load(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("table: load state: %w", rules.ErrInternal)
		}
		if g == nil {
			t.broadcaster.GameError(userID, "no round in progress")
			return fmt.Errorf("table: %s has no active round: %w", t.ID, rules.ErrIllegalAction)
		}
		rehydrateDeck(g, t.rng)

		if err := apply(g); err != nil {
			t.broadcaster.GameError(userID, err.Error())
			return err
		}

		if err := t.store.Save(ctx, t.ID, g); err != nil {
			return fmt.Errorf("table: save after action: %w", rules.ErrInternal)
		}
		t.broadcaster.GameStateUpdate(t.ID, g)

		if g.Status == rules.StatusRoundEnd {
			if err := t.settleRound(ctx, g); err != nil {
				return err
			}
			t.pendingRoundTransition = true
			return nil
		}

		if g.CurrentPlayer().IsAI {
			t.pendingBotTick = true
		}
		return nil
	})
}

package rules

import (
	"fmt"
	"time"

	"github.com/tonktable/tonkd/internal/deck"
)

// DrawSource names where a Draw pulls its card from.
type DrawSource string

const (
	SourceDeck    DrawSource = "deck"
	SourceDiscard DrawSource = "discard"
)

func now() int64 { return time.Now().UnixMilli() }

func requireCurrentPlayer(g *GameState, userID string) (*PlayerState, error) {
	cur := g.CurrentPlayer()
	if cur.UserID != userID {
		return nil, fmt.Errorf("rules: %s is not the current player: %w", userID, ErrUnauthorised)
	}
	return cur, nil
}

func removeCard(hand []deck.Card, card deck.Card) ([]deck.Card, bool) {
	for i, c := range hand {
		if c == card {
			out := append(hand[:i:i], hand[i+1:]...)
			return out, true
		}
	}
	return hand, false
}

func containsCard(hand []deck.Card, card deck.Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// Draw applies a Draw(source) action by userID. When source is the deck
// and the deck is empty, the round ends immediately with DECK_EMPTY per
// §4.B rather than returning an error.
func Draw(g *GameState, userID string, source DrawSource) error {
	p, err := requireCurrentPlayer(g, userID)
	if err != nil {
		return err
	}
	if p.HasTakenActionThisTurn {
		return fmt.Errorf("rules: %s has already acted this turn: %w", userID, ErrIllegalAction)
	}

	switch source {
	case SourceDeck:
		card, ok := g.Deck.Draw()
		if !ok {
			endDeckEmpty(g)
			return nil
		}
		p.Hand = append(p.Hand, card)
		p.HasTakenActionThisTurn = true
		g.syncDeckState()
		g.LastAction = &LastAction{Type: ActionDraw, UserID: userID, Source: string(source), Timestamp: now()}
		return nil

	case SourceDiscard:
		if len(g.DiscardPile) == 0 {
			return fmt.Errorf("rules: discard pile is empty: %w", ErrIllegalAction)
		}
		top := g.DiscardPile[len(g.DiscardPile)-1]
		g.DiscardPile = g.DiscardPile[:len(g.DiscardPile)-1]
		p.Hand = append(p.Hand, top)
		restricted := top
		p.RestrictedDiscardCard = &restricted
		p.HasTakenActionThisTurn = true
		g.LastAction = &LastAction{Type: ActionDraw, UserID: userID, Source: string(source), Card: &top, Timestamp: now()}
		return nil

	default:
		return fmt.Errorf("rules: unknown draw source %q: %w", source, ErrIllegalAction)
	}
}

// endDeckEmpty ends the round when a Draw finds the deck empty: the
// player with the lowest hand value wins, ties broken by earliest seat.
func endDeckEmpty(g *GameState) {
	winnerIdx := 0
	best := g.Players[0].HandValue()
	for i, p := range g.Players[1:] {
		v := p.HandValue()
		if v < best {
			best = v
			winnerIdx = i + 1
		}
	}
	endRound(g, RoundEndDeckEmpty, g.Players[winnerIdx].UserID, "")
}

// Spread lays down a new meld from cards, all of which must be held by
// userID. Ends the round immediately with REEM if the spread empties the
// player's hand while leaving them with exactly two spreads.
func Spread(g *GameState, userID string, cards []deck.Card) error {
	p, err := requireCurrentPlayer(g, userID)
	if err != nil {
		return err
	}
	if !p.HasTakenActionThisTurn {
		return fmt.Errorf("rules: %s must draw before spreading: %w", userID, ErrIllegalAction)
	}
	if !IsValidSpread(cards) {
		return fmt.Errorf("rules: invalid spread: %w", ErrIllegalAction)
	}

	remaining := append([]deck.Card(nil), p.Hand...)
	for _, c := range cards {
		var ok bool
		remaining, ok = removeCard(remaining, c)
		if !ok {
			return fmt.Errorf("rules: card %s not in %s's hand: %w", c, userID, ErrIllegalAction)
		}
	}

	p.Hand = remaining
	p.Spreads = append(p.Spreads, Spread{Cards: append([]deck.Card(nil), cards...), Owner: userID})
	g.LastAction = &LastAction{Type: ActionSpread, UserID: userID, Cards: cards, Timestamp: now()}

	if CheckReem(p) {
		endRound(g, RoundEndReem, userID, "")
	}
	return nil
}

// Hit adds card (from userID's hand) onto targetPlayerID's spread at
// targetSpreadIdx. Cross-player hits are permitted; the target's spread
// owner does not change, but the target incurs a hit-lock penalty.
func Hit(g *GameState, userID string, card deck.Card, targetPlayerID string, targetSpreadIdx int) error {
	p, err := requireCurrentPlayer(g, userID)
	if err != nil {
		return err
	}
	if !p.HasTakenActionThisTurn {
		return fmt.Errorf("rules: %s must draw before hitting: %w", userID, ErrIllegalAction)
	}
	if !containsCard(p.Hand, card) {
		return fmt.Errorf("rules: card %s not in %s's hand: %w", card, userID, ErrIllegalAction)
	}

	target := g.PlayerByID(targetPlayerID)
	if target == nil {
		return fmt.Errorf("rules: unknown target player %s: %w", targetPlayerID, ErrNotFound)
	}
	if targetSpreadIdx < 0 || targetSpreadIdx >= len(target.Spreads) {
		return fmt.Errorf("rules: unknown target spread %d: %w", targetSpreadIdx, ErrNotFound)
	}
	spread := &target.Spreads[targetSpreadIdx]
	if !CanHit(*spread, card) {
		return fmt.Errorf("rules: card %s cannot hit that spread: %w", card, ErrIllegalAction)
	}

	newHand, _ := removeCard(p.Hand, card)
	p.Hand = newHand
	insertHit(spread, card)
	applyHitLock(target)

	g.LastAction = &LastAction{
		Type: ActionHit, UserID: userID, Card: &card,
		Target: targetPlayerID, TargetIdx: targetSpreadIdx, Timestamp: now(),
	}
	return nil
}

// applyHitLock increments a hit target's penalty counter: +2 if not
// already locked, +1 if already locked, creating roughly two turn
// rotations of drop-prevention.
func applyHitLock(target *PlayerState) {
	if target.IsHitLocked {
		target.HitLockCounter++
	} else {
		target.HitLockCounter += 2
		target.IsHitLocked = true
	}
}

// Discard ends the current player's turn by moving card from their hand
// to the discard pile, then advances to the next player.
func Discard(g *GameState, userID string, card deck.Card) error {
	p, err := requireCurrentPlayer(g, userID)
	if err != nil {
		return err
	}
	if !p.HasTakenActionThisTurn {
		return fmt.Errorf("rules: %s must draw before discarding: %w", userID, ErrIllegalAction)
	}
	if !containsCard(p.Hand, card) {
		return fmt.Errorf("rules: card %s not in %s's hand: %w", card, userID, ErrIllegalAction)
	}
	if p.RestrictedDiscardCard != nil && *p.RestrictedDiscardCard == card {
		return fmt.Errorf("rules: cannot discard the card just drawn from discard: %w", ErrIllegalAction)
	}

	newHand, _ := removeCard(p.Hand, card)
	p.Hand = newHand
	g.DiscardPile = append(g.DiscardPile, card)
	g.LastAction = &LastAction{Type: ActionDiscard, UserID: userID, Card: &card, Timestamp: now()}

	NextTurn(g)
	return nil
}

// Drop is a pre-action concession. The caller's hand is compared against
// every other active player's hand value: a drop only succeeds outright
// (RoundEndRegular) when the dropper's hand is the unique minimum,
// otherwise the round ends CAUGHT_DROP with the lowest-hand player as
// winner and the dropper penalised.
func Drop(g *GameState, userID string) error {
	p, err := requireCurrentPlayer(g, userID)
	if err != nil {
		return err
	}
	if p.HasTakenActionThisTurn {
		return fmt.Errorf("rules: %s has already acted this turn: %w", userID, ErrIllegalAction)
	}
	if p.IsHitLocked {
		return fmt.Errorf("rules: %s is hit-locked and cannot drop: %w", userID, ErrIllegalAction)
	}

	dropperValue := p.HandValue()
	beatsAll := true
	catcherIdx := -1
	catcherValue := 0
	for i, other := range g.Players {
		if other.UserID == userID {
			continue
		}
		v := other.HandValue()
		if v <= dropperValue {
			beatsAll = false
			if catcherIdx == -1 || v < catcherValue {
				catcherIdx = i
				catcherValue = v
			}
		}
	}

	g.LastAction = &LastAction{Type: ActionDrop, UserID: userID, Timestamp: now()}

	if beatsAll {
		endRound(g, RoundEndRegular, userID, "")
		return nil
	}
	endRound(g, RoundEndCaughtDrop, g.Players[catcherIdx].UserID, userID)
	return nil
}

// NextTurn advances the turn: rotates CurrentPlayerIndex, increments Turn,
// resets per-turn player flags, and decays hit-locks.
func NextTurn(g *GameState) {
	n := len(g.Players)
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % n
	g.Turn++

	for _, p := range g.Players {
		p.HasTakenActionThisTurn = false
		p.RestrictedDiscardCard = nil
		if p.IsHitLocked {
			p.HitLockCounter--
			if p.HitLockCounter <= 0 {
				p.HitLockCounter = 0
				p.IsHitLocked = false
			}
		}
	}
}

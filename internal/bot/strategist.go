// Package bot implements the Tonk bot strategist: given a GameState and a
// bot's userId, decide exactly one action per §4.C's fixed priority order.
package bot

import (
	"fmt"
	"math/rand"

	"github.com/tonktable/tonkd/internal/deck"
	"github.com/tonktable/tonkd/internal/rules"
)

// DecisionKind tags which of the five player actions a Decision carries.
type DecisionKind string

const (
	DecisionDraw    DecisionKind = "draw"
	DecisionSpread  DecisionKind = "spread"
	DecisionHit     DecisionKind = "hit"
	DecisionDrop    DecisionKind = "drop"
	DecisionDiscard DecisionKind = "discard"
)

// Decision is exactly one of Draw, Spread(cards), Hit(card, target, idx),
// Drop, or Discard(card), as returned by Decide.
type Decision struct {
	Kind   DecisionKind
	Source rules.DrawSource
	Cards  []deck.Card
	Card   deck.Card

	TargetPlayerID  string
	TargetSpreadIdx int
}

// lowHandValueDropThreshold is the spec's "hand value ≤ 5" drop trigger.
const lowHandValueDropThreshold = 5

// Decide chooses an action for userID against g, following the priority
// order: enable-a-Reem spread, any valid spread, any reachable hit,
// low-value drop, draw, then discard a random card. rng is consulted only
// for the final tie-break (priority 6); earlier tiers are deterministic
// (first-found, in hand order).
func Decide(g *rules.GameState, userID string, rng *rand.Rand) (Decision, error) {
	p := g.PlayerByID(userID)
	if p == nil {
		return Decision{}, fmt.Errorf("bot: unknown player %s: %w", userID, rules.ErrNotFound)
	}

	// Priority 1: a spread that leaves a second spread reachable in the
	// remaining hand (sets up a Reem).
	if p.HasTakenActionThisTurn {
		if cards, ok := findReemEnablingSpread(p.Hand); ok {
			return Decision{Kind: DecisionSpread, Cards: cards}, nil
		}

		// Priority 2: any valid spread at all.
		if cards, ok := findFirstSpread(p.Hand); ok {
			return Decision{Kind: DecisionSpread, Cards: cards}, nil
		}

		// Priority 3: hit any reachable existing spread (including
		// cross-player).
		if card, target, idx, ok := findFirstHit(g, p); ok {
			return Decision{Kind: DecisionHit, Card: card, TargetPlayerID: target, TargetSpreadIdx: idx}, nil
		}
	}

	// Priority 4: drop, if eligible and the hand is cheap.
	if !p.HasTakenActionThisTurn && !p.IsHitLocked && p.HandValue() <= lowHandValueDropThreshold {
		return Decision{Kind: DecisionDrop}, nil
	}

	// Priority 5: draw from the deck.
	if !p.HasTakenActionThisTurn {
		return Decision{Kind: DecisionDraw, Source: rules.SourceDeck}, nil
	}

	// Priority 6: discard a uniformly random card.
	card := p.Hand[rng.Intn(len(p.Hand))]
	return Decision{Kind: DecisionDiscard, Card: card}, nil
}

// findFirstSpread returns the first valid spread found in hand, trying
// 3-card combinations first and extending to larger melds.
func findFirstSpread(hand []deck.Card) ([]deck.Card, bool) {
	spreads := EnumerateSpreads(hand)
	if len(spreads) == 0 {
		return nil, false
	}
	return spreads[0], true
}

// findReemEnablingSpread looks for a spread whose removal leaves another
// valid spread in the remaining cards — laying it down would set up a
// Reem on a later turn.
func findReemEnablingSpread(hand []deck.Card) ([]deck.Card, bool) {
	for _, candidate := range EnumerateSpreads(hand) {
		remaining := removeAll(hand, candidate)
		if len(EnumerateSpreads(remaining)) > 0 {
			return candidate, true
		}
	}
	return nil, false
}

// findFirstHit scans the hand against every spread at the table
// (including the bot's own) for the first legal hit.
func findFirstHit(g *rules.GameState, p *rules.PlayerState) (card deck.Card, targetPlayerID string, idx int, ok bool) {
	for _, c := range p.Hand {
		for _, target := range g.Players {
			for i, spread := range target.Spreads {
				if rules.CanHit(spread, c) {
					return c, target.UserID, i, true
				}
			}
		}
	}
	return deck.Card{}, "", 0, false
}

// EnumerateSpreads returns every valid spread (3 or more cards) that can
// be formed from hand, 3-card combinations first, per §4.C's requirement
// that enumeration "at minimum" covers 3-card combinations and may extend
// further to be competitive.
func EnumerateSpreads(hand []deck.Card) [][]deck.Card {
	var out [][]deck.Card
	out = append(out, Enumerate3CardSpreads(hand)...)
	for size := 4; size <= len(hand); size++ {
		combinations(hand, size, func(combo []deck.Card) {
			if rules.IsValidSpread(combo) {
				out = append(out, append([]deck.Card(nil), combo...))
			}
		})
	}
	return out
}

// Enumerate3CardSpreads returns every valid 3-card meld in hand.
func Enumerate3CardSpreads(hand []deck.Card) [][]deck.Card {
	var out [][]deck.Card
	combinations(hand, 3, func(combo []deck.Card) {
		if rules.IsValidSpread(combo) {
			out = append(out, append([]deck.Card(nil), combo...))
		}
	})
	return out
}

// combinations calls fn with every size-length subset of hand, in index
// order. Hand sizes in Tonk are small (≤15 or so cards) so this plain
// recursive generation is fine.
func combinations(hand []deck.Card, size int, fn func([]deck.Card)) {
	if size > len(hand) {
		return
	}
	combo := make([]deck.Card, size)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == size {
			fn(combo)
			return
		}
		for i := start; i < len(hand); i++ {
			combo[depth] = hand[i]
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

// removeAll returns hand with every card in cards removed (first
// occurrence per card), used to compute what remains after a candidate
// spread is laid down.
func removeAll(hand, cards []deck.Card) []deck.Card {
	remaining := append([]deck.Card(nil), hand...)
	for _, c := range cards {
		for i, h := range remaining {
			if h == c {
				remaining = append(remaining[:i:i], remaining[i+1:]...)
				break
			}
		}
	}
	return remaining
}

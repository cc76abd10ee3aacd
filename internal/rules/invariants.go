package rules

import "github.com/tonktable/tonkd/internal/deck"

// CountCards returns the total number of cards across deck, discard pile,
// hands, and spreads. Per §3 this must equal 40 after every transition.
func CountCards(g *GameState) int {
	total := 0
	if g.Deck != nil {
		total += g.Deck.Size()
	} else {
		total += len(g.DeckState.Remaining)
	}
	total += len(g.DiscardPile)
	for _, p := range g.Players {
		total += len(p.Hand)
		for _, s := range p.Spreads {
			total += len(s.Cards)
		}
	}
	return total
}

// NoDuplicateCards reports whether any card appears in more than one
// location (hand, spread, deck, discard) across the whole state.
func NoDuplicateCards(g *GameState) bool {
	seen := make(map[deck.Card]bool)
	mark := func(c deck.Card) bool {
		if seen[c] {
			return false
		}
		seen[c] = true
		return true
	}

	cards := g.DiscardPile
	if g.Deck != nil {
		cards = append(append([]deck.Card(nil), cards...), g.Deck.Cards()...)
	} else {
		cards = append(append([]deck.Card(nil), cards...), g.DeckState.Remaining...)
	}
	for _, c := range cards {
		if !mark(c) {
			return false
		}
	}
	for _, p := range g.Players {
		for _, c := range p.Hand {
			if !mark(c) {
				return false
			}
		}
		for _, s := range p.Spreads {
			for _, c := range s.Cards {
				if !mark(c) {
					return false
				}
			}
		}
	}
	return true
}

// PotMatchesAntes reports whether Pot equals the sum of LockedAntes, per
// the "pot = Σ lockedAntes" invariant.
func PotMatchesAntes(g *GameState) bool {
	var sum int64
	for _, v := range g.LockedAntes {
		sum += v
	}
	return g.Pot == sum
}

// HitLockConsistent reports whether IsHitLocked ⇔ HitLockCounter > 0 holds
// for every player.
func HitLockConsistent(g *GameState) bool {
	for _, p := range g.Players {
		if p.IsHitLocked != (p.HitLockCounter > 0) {
			return false
		}
	}
	return true
}

// CurrentPlayerIndexValid reports whether 0 <= CurrentPlayerIndex <
// len(Players).
func CurrentPlayerIndexValid(g *GameState) bool {
	return g.CurrentPlayerIndex >= 0 && g.CurrentPlayerIndex < len(g.Players)
}

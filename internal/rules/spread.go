package rules

import "github.com/tonktable/tonkd/internal/deck"

// SpreadKind classifies a validated spread as a same-rank set or a
// same-suit consecutive run. It is not stored on the spread: both
// IsValidSpread and CanHit recompute it through the shared classify.
type SpreadKind int

const (
	// KindInvalid marks a card group that satisfies neither predicate.
	KindInvalid SpreadKind = iota
	KindSameRank
	KindSameSuitRun
)

// classify determines whether cards form a same-rank set or a same-suit
// run, without checking the minimum-length requirement.
func classify(cards []deck.Card) SpreadKind {
	if len(cards) == 0 {
		return KindInvalid
	}

	sameRank := true
	for _, c := range cards[1:] {
		if c.Rank() != cards[0].Rank() {
			sameRank = false
			break
		}
	}
	if sameRank {
		return KindSameRank
	}

	sameSuit := true
	for _, c := range cards[1:] {
		if c.Suit() != cards[0].Suit() {
			sameSuit = false
			break
		}
	}
	if !sameSuit {
		return KindInvalid
	}

	indices := make([]int, len(cards))
	for i, c := range cards {
		indices[i] = deck.RankIndex(c.Rank())
	}
	if !isConsecutive(indices) {
		return KindInvalid
	}
	return KindSameSuitRun
}

// isConsecutive reports whether indices, once sorted, form a run with no
// gaps and no duplicates.
func isConsecutive(indices []int) bool {
	sorted := append([]int(nil), indices...)
	insertionSort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return false
		}
	}
	return true
}

func insertionSort(xs []int) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// IsValidSpread reports whether cards form a legal meld: at least three
// cards, all sharing a rank, or all sharing a suit with ranks forming a
// consecutive run in the Ace-low, Jack-follows-7 order.
func IsValidSpread(cards []deck.Card) bool {
	if len(cards) < 3 {
		return false
	}
	return classify(cards) != KindInvalid
}

// spreadKind returns the SpreadKind of an already-laid spread, recomputed
// from its cards (spreads are always stored already-valid).
func spreadKind(s Spread) SpreadKind {
	return classify(s.Cards)
}

// CanHit reports whether card may be added to spread s.
//
// Same-rank melds require card to match the rank and introduce a suit not
// already present in the meld. Same-suit runs require card to match the
// suit and extend the run by exactly one rank at either end.
func CanHit(s Spread, card deck.Card) bool {
	switch spreadKind(s) {
	case KindSameRank:
		if card.Rank() != s.Cards[0].Rank() {
			return false
		}
		for _, c := range s.Cards {
			if c.Suit() == card.Suit() {
				return false
			}
		}
		return true
	case KindSameSuitRun:
		if card.Suit() != s.Cards[0].Suit() {
			return false
		}
		min, max := runBounds(s.Cards)
		idx := deck.RankIndex(card.Rank())
		return idx == min-1 || idx == max+1
	default:
		return false
	}
}

// runBounds returns the minimum and maximum rank index spanned by a
// same-suit run.
func runBounds(cards []deck.Card) (min, max int) {
	min = deck.RankIndex(cards[0].Rank())
	max = min
	for _, c := range cards[1:] {
		idx := deck.RankIndex(c.Rank())
		if idx < min {
			min = idx
		}
		if idx > max {
			max = idx
		}
	}
	return min, max
}

// insertHit adds card to spread s, keeping same-suit runs sorted by rank.
// Same-rank melds simply append, since order carries no meaning there.
func insertHit(s *Spread, card deck.Card) {
	if spreadKind(*s) != KindSameSuitRun {
		s.Cards = append(s.Cards, card)
		return
	}

	idx := deck.RankIndex(card.Rank())
	pos := len(s.Cards)
	for i, c := range s.Cards {
		if deck.RankIndex(c.Rank()) > idx {
			pos = i
			break
		}
	}
	s.Cards = append(s.Cards, deck.Card{})
	copy(s.Cards[pos+1:], s.Cards[pos:len(s.Cards)-1])
	s.Cards[pos] = card
}

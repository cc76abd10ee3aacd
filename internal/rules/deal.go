package rules

import (
	"fmt"
	"math/rand"

	"github.com/tonktable/tonkd/internal/deck"
)

// CardsPerHand is the number of cards dealt to each seat at the start of a
// round.
const CardsPerHand = 5

// MinPlayers and MaxPlayers bound a table's seat count.
const (
	MinPlayers = 2
	MaxPlayers = 4
)

// BuildDeck returns a freshly shuffled 40-card deck using rng.
func BuildDeck(rng *rand.Rand) *deck.Deck {
	return deck.New(rng)
}

// Deal draws CardsPerHand cards round-robin into each of nPlayers hands,
// one card per seat per pass, failing if d runs short. nPlayers must be
// within [MinPlayers, MaxPlayers].
func Deal(d *deck.Deck, nPlayers int) ([][]deck.Card, error) {
	if nPlayers < MinPlayers || nPlayers > MaxPlayers {
		return nil, fmt.Errorf("rules: nPlayers must be %d-%d, got %d: %w", MinPlayers, MaxPlayers, nPlayers, ErrIllegalAction)
	}
	if d.Size() < nPlayers*CardsPerHand {
		return nil, fmt.Errorf("rules: deck has %d cards, need %d: %w", d.Size(), nPlayers*CardsPerHand, ErrIllegalAction)
	}

	hands := make([][]deck.Card, nPlayers)
	for i := range hands {
		hands[i] = make([]deck.Card, 0, CardsPerHand)
	}

	for round := 0; round < CardsPerHand; round++ {
		for seat := 0; seat < nPlayers; seat++ {
			card, ok := d.Draw()
			if !ok {
				return nil, fmt.Errorf("rules: deck exhausted mid-deal: %w", ErrInternal)
			}
			hands[seat] = append(hands[seat], card)
		}
	}

	return hands, nil
}

// InitializeGame shuffles a fresh deck, deals every seated player a hand,
// and applies automatic-win detection before any action is taken. The
// caller (internal/table) is responsible for ante collection before or
// after this call per its own sequencing, and for immediate settlement if
// an auto-win is returned.
func InitializeGame(g *GameState, rng *rand.Rand) error {
	n := len(g.Players)
	d := BuildDeck(rng)
	hands, err := Deal(d, n)
	if err != nil {
		return err
	}

	for i, p := range g.Players {
		p.Hand = hands[i]
		p.Spreads = nil
		p.HasTakenActionThisTurn = false
		p.IsHitLocked = false
		p.HitLockCounter = 0
		p.RestrictedDiscardCard = nil
	}

	g.Deck = d
	g.DiscardPile = nil
	g.Status = StatusInProgress
	g.CurrentPlayerIndex = (g.CurrentDealerIndex + 1) % n
	g.RoundEndedBy = RoundEndNone
	g.RoundWinnerID = ""
	g.CaughtDroppingPlayerID = ""
	g.HandScores = nil
	g.syncDeckState()

	if reason, winner := CheckAutoWin(g); reason != RoundEndNone {
		endRound(g, reason, winner, "")
	}

	return nil
}

// endRound transitions g to round-end with the given reason and winner,
// recording every player's final hand value for the wallet settler.
func endRound(g *GameState, reason RoundEndReason, winnerID, caughtDropperID string) {
	g.Status = StatusRoundEnd
	g.RoundEndedBy = reason
	g.RoundWinnerID = winnerID
	g.CaughtDroppingPlayerID = caughtDropperID

	g.HandScores = make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		g.HandScores[p.UserID] = p.HandValue()
	}

	g.LastAction = &LastAction{Type: ActionRoundEnd, UserID: winnerID}
}

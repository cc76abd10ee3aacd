package bot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonktable/tonkd/internal/deck"
	"github.com/tonktable/tonkd/internal/rules"
)

func c(suit deck.Suit, rank deck.Rank) deck.Card { return deck.NewCard(suit, rank) }

func newBotGame(userID string, hand []deck.Card) *rules.GameState {
	p := &rules.PlayerState{UserID: userID, Hand: hand}
	return &rules.GameState{Players: []*rules.PlayerState{p}}
}

func TestDecideDropsOnLowValueHand(t *testing.T) {
	g := newBotGame("bot1", []deck.Card{c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Two)})
	d, err := Decide(g, "bot1", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, DecisionDrop, d.Kind)
}

func TestDecideDrawsWhenHandTooStrongToDrop(t *testing.T) {
	g := newBotGame("bot1", []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.Queen)})
	d, err := Decide(g, "bot1", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, DecisionDraw, d.Kind)
	require.Equal(t, rules.SourceDeck, d.Source)
}

func TestDecideSpreadsWhenValidMeldExists(t *testing.T) {
	p := &rules.PlayerState{
		UserID: "bot1", HasTakenActionThisTurn: true,
		Hand: []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.King), c(deck.Clubs, deck.King), c(deck.Diamonds, deck.Two)},
	}
	g := &rules.GameState{Players: []*rules.PlayerState{p}}

	d, err := Decide(g, "bot1", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, DecisionSpread, d.Kind)
	require.Len(t, d.Cards, 3)
}

func TestDecidePrefersReemEnablingSpread(t *testing.T) {
	p := &rules.PlayerState{
		UserID: "bot1", HasTakenActionThisTurn: true,
		Hand: []deck.Card{
			c(deck.Spades, deck.King), c(deck.Hearts, deck.King), c(deck.Clubs, deck.King),
			c(deck.Diamonds, deck.Three), c(deck.Diamonds, deck.Four), c(deck.Diamonds, deck.Five),
		},
	}
	g := &rules.GameState{Players: []*rules.PlayerState{p}}

	d, err := Decide(g, "bot1", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, DecisionSpread, d.Kind)

	remaining := removeAll(p.Hand, d.Cards)
	require.NotEmpty(t, EnumerateSpreads(remaining), "chosen spread should leave another spread reachable")
}

func TestDecideHitsReachableSpread(t *testing.T) {
	bot := &rules.PlayerState{
		UserID: "bot1", HasTakenActionThisTurn: true,
		Hand: []deck.Card{c(deck.Clubs, deck.Six)},
	}
	other := &rules.PlayerState{
		UserID: "human1",
		Spreads: []rules.Spread{{Owner: "human1", Cards: []deck.Card{
			c(deck.Clubs, deck.Three), c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five),
		}}},
	}
	g := &rules.GameState{Players: []*rules.PlayerState{bot, other}}

	d, err := Decide(g, "bot1", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, DecisionHit, d.Kind)
	require.Equal(t, "human1", d.TargetPlayerID)
}

func TestDecideDiscardsWhenNothingElseApplies(t *testing.T) {
	p := &rules.PlayerState{
		UserID: "bot1", HasTakenActionThisTurn: true,
		Hand: []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.Queen)},
	}
	g := &rules.GameState{Players: []*rules.PlayerState{p}}

	d, err := Decide(g, "bot1", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, DecisionDiscard, d.Kind)
	require.Contains(t, p.Hand, d.Card)
}

func TestEnumerate3CardSpreadsFindsRun(t *testing.T) {
	hand := []deck.Card{c(deck.Clubs, deck.Three), c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five), c(deck.Hearts, deck.Two)}
	spreads := Enumerate3CardSpreads(hand)
	require.NotEmpty(t, spreads)
}

func TestDecideUnknownPlayerErrors(t *testing.T) {
	g := &rules.GameState{Players: []*rules.PlayerState{{UserID: "a"}}}
	_, err := Decide(g, "ghost", rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

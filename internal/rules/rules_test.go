package rules

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonktable/tonkd/internal/deck"
)

func newTestGame(userIDs ...string) *GameState {
	players := make([]*PlayerState, len(userIDs))
	for i, id := range userIDs {
		players[i] = &PlayerState{UserID: id, Username: id}
	}
	return &GameState{
		TableID:     "t1",
		BaseStake:   10,
		LockedAntes: map[string]int64{},
		Players:     players,
		Status:      StatusStarting,
	}
}

func c(suit deck.Suit, rank deck.Rank) deck.Card { return deck.NewCard(suit, rank) }

func TestIsValidSpreadSameRank(t *testing.T) {
	cards := []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.King), c(deck.Clubs, deck.King)}
	require.True(t, IsValidSpread(cards))
}

func TestIsValidSpreadSameSuitRun(t *testing.T) {
	cards := []deck.Card{c(deck.Clubs, deck.Three), c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five)}
	require.True(t, IsValidSpread(cards))
}

func TestIsValidSpreadJackFollowsSeven(t *testing.T) {
	cards := []deck.Card{c(deck.Hearts, deck.Six), c(deck.Hearts, deck.Seven), c(deck.Hearts, deck.Jack)}
	require.True(t, IsValidSpread(cards))
}

func TestIsValidSpreadRejectsTwoCards(t *testing.T) {
	cards := []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.King)}
	require.False(t, IsValidSpread(cards))
}

func TestIsValidSpreadRejectsMixedSuitRank(t *testing.T) {
	cards := []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.Queen), c(deck.Clubs, deck.Ace)}
	require.False(t, IsValidSpread(cards))
}

func TestCanHitSameRankRequiresNewSuit(t *testing.T) {
	s := Spread{Cards: []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.King), c(deck.Clubs, deck.King)}}
	require.True(t, CanHit(s, c(deck.Diamonds, deck.King)))
	require.False(t, CanHit(s, c(deck.Spades, deck.King)))
	require.False(t, CanHit(s, c(deck.Spades, deck.Queen)))
}

func TestCanHitSameSuitRunExtendsEnds(t *testing.T) {
	s := Spread{Cards: []deck.Card{c(deck.Clubs, deck.Three), c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five)}}
	require.True(t, CanHit(s, c(deck.Clubs, deck.Two)))
	require.True(t, CanHit(s, c(deck.Clubs, deck.Six)))
	require.False(t, CanHit(s, c(deck.Clubs, deck.Seven)))
	require.False(t, CanHit(s, c(deck.Hearts, deck.Two)))
}

func TestDrawFromDeckAdvancesTurnState(t *testing.T) {
	g := newTestGame("a", "b")
	g.Deck = deck.New(rand.New(rand.NewSource(1)))
	g.syncDeckState()
	before := g.Deck.Size()

	require.NoError(t, Draw(g, "a", SourceDeck))
	require.Len(t, g.Players[0].Hand, 1)
	require.True(t, g.Players[0].HasTakenActionThisTurn)
	require.Equal(t, before-1, g.Deck.Size())
}

func TestDrawWrongPlayerUnauthorised(t *testing.T) {
	g := newTestGame("a", "b")
	g.Deck = deck.New(rand.New(rand.NewSource(1)))

	err := Draw(g, "b", SourceDeck)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnauthorised))
}

func TestDrawDeckEmptyEndsRoundDeckEmpty(t *testing.T) {
	g := newTestGame("a", "b", "c")
	g.Deck = deck.New(rand.New(rand.NewSource(1)))
	for g.Deck.Size() > 0 {
		g.Deck.Draw()
	}
	g.Players[0].Hand = []deck.Card{c(deck.Spades, deck.Ace)}
	g.Players[1].Hand = []deck.Card{c(deck.Hearts, deck.King)}
	g.Players[2].Hand = []deck.Card{c(deck.Clubs, deck.Queen)}

	require.NoError(t, Draw(g, "a", SourceDeck))
	require.Equal(t, StatusRoundEnd, g.Status)
	require.Equal(t, RoundEndDeckEmpty, g.RoundEndedBy)
	require.Equal(t, "a", g.RoundWinnerID)
}

func TestDiscardRestrictedCardRejected(t *testing.T) {
	g := newTestGame("a", "b")
	g.DiscardPile = []deck.Card{c(deck.Hearts, deck.Seven)}

	require.NoError(t, Draw(g, "a", SourceDiscard))
	require.NotNil(t, g.Players[0].RestrictedDiscardCard)

	err := Discard(g, "a", c(deck.Hearts, deck.Seven))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIllegalAction))
}

func TestDiscardAdvancesTurn(t *testing.T) {
	g := newTestGame("a", "b")
	g.Players[0].Hand = []deck.Card{c(deck.Spades, deck.Ace)}
	g.Players[0].HasTakenActionThisTurn = true

	require.NoError(t, Discard(g, "a", c(deck.Spades, deck.Ace)))
	require.Equal(t, 1, g.CurrentPlayerIndex)
	require.Equal(t, uint64(1), g.Turn)
	require.False(t, g.Players[0].HasTakenActionThisTurn)
}

func TestSpreadEmptyingHandWithTwoSpreadsTriggersReem(t *testing.T) {
	g := newTestGame("a", "b")
	g.Players[0].Hand = []deck.Card{c(deck.Spades, deck.King), c(deck.Hearts, deck.King), c(deck.Clubs, deck.King)}
	g.Players[0].Spreads = []Spread{{Owner: "a", Cards: []deck.Card{c(deck.Diamonds, deck.Three), c(deck.Diamonds, deck.Four), c(deck.Diamonds, deck.Five)}}}
	g.Players[0].HasTakenActionThisTurn = true

	err := Spread(g, "a", g.Players[0].Hand)
	require.NoError(t, err)
	require.Equal(t, StatusRoundEnd, g.Status)
	require.Equal(t, RoundEndReem, g.RoundEndedBy)
	require.Equal(t, "a", g.RoundWinnerID)
}

func TestHitAppliesLockToTarget(t *testing.T) {
	g := newTestGame("a", "b")
	g.Players[1].Spreads = []Spread{{Owner: "b", Cards: []deck.Card{c(deck.Clubs, deck.Three), c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five)}}}
	g.Players[0].Hand = []deck.Card{c(deck.Clubs, deck.Six)}
	g.Players[0].HasTakenActionThisTurn = true

	require.NoError(t, Hit(g, "a", c(deck.Clubs, deck.Six), "b", 0))
	require.True(t, g.Players[1].IsHitLocked)
	require.Equal(t, 2, g.Players[1].HitLockCounter)
	require.Len(t, g.Players[1].Spreads[0].Cards, 4)
}

func TestHitLockBlocksDropForTwoRotations(t *testing.T) {
	g := newTestGame("a", "b", "c")
	g.Players[1].Spreads = []Spread{{Owner: "b", Cards: []deck.Card{c(deck.Clubs, deck.Three), c(deck.Clubs, deck.Four), c(deck.Clubs, deck.Five)}}}
	g.Players[0].Hand = []deck.Card{c(deck.Clubs, deck.Six)}
	g.Players[0].HasTakenActionThisTurn = true
	require.NoError(t, Hit(g, "a", c(deck.Clubs, deck.Six), "b", 0))
	require.True(t, g.Players[1].IsHitLocked)

	// T -> player b's drop is rejected immediately (still locked).
	g.CurrentPlayerIndex = 1
	err := Drop(g, "b")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIllegalAction))

	NextTurn(g) // decays to 1
	require.True(t, g.Players[1].IsHitLocked)
	NextTurn(g) // decays to 0, clears

	require.False(t, g.Players[1].IsHitLocked)
	require.Equal(t, 0, g.Players[1].HitLockCounter)
}

func TestDropUniqueLowestWinsOutright(t *testing.T) {
	g := newTestGame("a", "b", "c")
	g.Players[0].Hand = []deck.Card{c(deck.Spades, deck.Ace)}
	g.Players[1].Hand = []deck.Card{c(deck.Hearts, deck.King)}
	g.Players[2].Hand = []deck.Card{c(deck.Clubs, deck.Queen)}

	require.NoError(t, Drop(g, "a"))
	require.Equal(t, RoundEndRegular, g.RoundEndedBy)
	require.Equal(t, "a", g.RoundWinnerID)
}

func TestDropCaughtByLowerHand(t *testing.T) {
	g := newTestGame("a", "b", "c")
	g.Players[0].Hand = []deck.Card{c(deck.Hearts, deck.King)}
	g.Players[1].Hand = []deck.Card{c(deck.Spades, deck.Ace)}
	g.Players[2].Hand = []deck.Card{c(deck.Clubs, deck.Queen)}

	require.NoError(t, Drop(g, "a"))
	require.Equal(t, RoundEndCaughtDrop, g.RoundEndedBy)
	require.Equal(t, "b", g.RoundWinnerID)
	require.Equal(t, "a", g.CaughtDroppingPlayerID)
}

func TestCheckAutoWinTriplePrecedence(t *testing.T) {
	g := newTestGame("a", "b")
	g.Players[0].Hand = []deck.Card{c(deck.Spades, deck.Ace), c(deck.Hearts, deck.Ace), c(deck.Clubs, deck.Ace), c(deck.Diamonds, deck.Ace), c(deck.Spades, deck.Seven)} // 1+1+1+1+7=11
	g.Players[1].Hand = []deck.Card{c(deck.Hearts, deck.King), c(deck.Clubs, deck.King), c(deck.Diamonds, deck.Queen), c(deck.Spades, deck.Queen), c(deck.Hearts, deck.Queen)} // 50

	reason, winner := CheckAutoWin(g)
	require.Equal(t, RoundEndAutoTriple, reason)
	require.Equal(t, "a", winner)
}

func TestCheckAutoWinRegular(t *testing.T) {
	g := newTestGame("a", "b")
	g.Players[0].Hand = []deck.Card{c(deck.Hearts, deck.King), c(deck.Clubs, deck.King), c(deck.Diamonds, deck.Queen), c(deck.Spades, deck.Queen), c(deck.Hearts, deck.Queen)} // 50
	g.Players[1].Hand = []deck.Card{c(deck.Hearts, deck.Five), c(deck.Clubs, deck.Five), c(deck.Diamonds, deck.Five), c(deck.Spades, deck.Four), c(deck.Hearts, deck.Three)}

	reason, winner := CheckAutoWin(g)
	require.Equal(t, RoundEndRegular, reason)
	require.Equal(t, "a", winner)
}

func TestInitializeGameDealsFiveEach(t *testing.T) {
	g := newTestGame("a", "b", "c")
	require.NoError(t, InitializeGame(g, rand.New(rand.NewSource(7))))

	for _, p := range g.Players {
		require.Len(t, p.Hand, CardsPerHand)
	}
	require.Equal(t, 40, CountCards(g))
	require.True(t, NoDuplicateCards(g))
}

func TestInvariantsHoldAcrossActionSequence(t *testing.T) {
	g := newTestGame("a", "b", "c")
	require.NoError(t, InitializeGame(g, rand.New(rand.NewSource(11))))
	if g.Status == StatusRoundEnd {
		t.Skip("auto-win on this seed, nothing left to play")
	}

	require.NoError(t, Draw(g, g.CurrentPlayer().UserID, SourceDeck))
	require.Equal(t, 40, CountCards(g))
	require.True(t, NoDuplicateCards(g))
	require.True(t, HitLockConsistent(g))
	require.True(t, CurrentPlayerIndexValid(g))

	cur := g.CurrentPlayer()
	require.NoError(t, Discard(g, cur.UserID, cur.Hand[0]))
	require.Equal(t, 40, CountCards(g))
	require.True(t, NoDuplicateCards(g))
	require.True(t, CurrentPlayerIndexValid(g))
}

func TestDealRejectsTooFewCards(t *testing.T) {
	d := deck.New(rand.New(rand.NewSource(1)))
	for d.Size() > 5 {
		d.Draw()
	}
	_, err := Deal(d, 2)
	require.Error(t, err)
}

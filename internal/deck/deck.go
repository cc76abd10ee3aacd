// Package deck implements the 40-card Tonk deck: standard four suits with the
// 8, 9 and 10 ranks removed.
package deck

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	mrand "math/rand"
)

// Suit represents a card suit.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank represents a card rank. Tonk drops 8, 9 and 10 from a standard deck.
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists every Tonk rank in Ace-low, Jack-follows-7 run order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Jack, Queen, King}

// RankIndex returns rank's position in the Ace-low, Jack-follows-7 run
// ordering used by spread/hit validity, or -1 if rank is not a Tonk rank.
func RankIndex(rank Rank) int {
	for i, r := range Ranks {
		if r == rank {
			return i
		}
	}
	return -1
}

// Value returns the hand-value points a card contributes toward a 41/50/47
// auto-win total: ace is 1, face cards are 10, everything else is its pip
// value.
func (r Rank) Value() int {
	switch r {
	case Ace:
		return 1
	case Jack, Queen, King:
		return 10
	default:
		v := 0
		fmt.Sscanf(string(r), "%d", &v)
		return v
	}
}

// Card is an immutable playing card. Fields are unexported so construction
// always goes through NewCard, keeping Suit/Rank limited to the Tonk set.
type Card struct {
	suit Suit
	rank Rank
}

// NewCard builds a Card from a suit and rank.
func NewCard(suit Suit, rank Rank) Card {
	return Card{suit: suit, rank: rank}
}

// Suit returns the card's suit.
func (c Card) Suit() Suit { return c.suit }

// Rank returns the card's rank.
func (c Card) Rank() Rank { return c.rank }

// String renders the card as rank then suit glyph, e.g. "7♠" or "J♥".
func (c Card) String() string {
	return string(c.rank) + string(c.suit)
}

// cardJSON is the wire/storage shape for Card, accepting a handful of common
// spellings on unmarshal so clients don't need to match suit glyphs exactly.
type cardJSON struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON implements json.Marshaler.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Suit: string(c.suit), Rank: string(c.rank)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj cardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}

	switch cj.Suit {
	case "♠", "s", "S", "spade", "spades", "Spades":
		c.suit = Spades
	case "♥", "h", "H", "heart", "hearts", "Hearts":
		c.suit = Hearts
	case "♦", "d", "D", "diamond", "diamonds", "Diamonds":
		c.suit = Diamonds
	case "♣", "c", "C", "club", "clubs", "Clubs":
		c.suit = Clubs
	default:
		return fmt.Errorf("deck: invalid suit %q", cj.Suit)
	}

	switch cj.Rank {
	case "A", "a", "ace", "Ace":
		c.rank = Ace
	case "2", "two", "Two":
		c.rank = Two
	case "3", "three", "Three":
		c.rank = Three
	case "4", "four", "Four":
		c.rank = Four
	case "5", "five", "Five":
		c.rank = Five
	case "6", "six", "Six":
		c.rank = Six
	case "7", "seven", "Seven":
		c.rank = Seven
	case "J", "j", "jack", "Jack":
		c.rank = Jack
	case "Q", "q", "queen", "Queen":
		c.rank = Queen
	case "K", "k", "king", "King":
		c.rank = King
	default:
		return fmt.Errorf("deck: invalid rank %q", cj.Rank)
	}

	return nil
}

// Deck is a shuffled, drawable stack of the 40 Tonk cards.
type Deck struct {
	cards []Card
	rng   *mrand.Rand
}

// NewRNG seeds a math/rand source from crypto/rand, matching the "resist
// client-side prediction" requirement — never a fixed seed outside tests.
func NewRNG() *mrand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	}
	return mrand.New(mrand.NewSource(seed))
}

// New builds a freshly shuffled 40-card deck using rng.
func New(rng *mrand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 40), rng: rng}
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	for _, s := range suits {
		for _, r := range Ranks {
			d.cards = append(d.cards, Card{suit: s, rank: r})
		}
	}
	d.Shuffle()
	return d
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card, or reports false on an empty deck.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// Size reports the number of cards remaining.
func (d *Deck) Size() int { return len(d.cards) }

// Cards returns the remaining cards, for persistence.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// State is the serializable snapshot of a Deck.
type State struct {
	Remaining []Card `json:"remaining"`
}

// GetState snapshots the deck for persistence.
func (d *Deck) GetState() State {
	return State{Remaining: d.Cards()}
}

// FromState rebuilds a Deck from a persisted State. rng is used for any
// subsequent Shuffle (a restored deck is not reshuffled).
func FromState(state State, rng *mrand.Rand) *Deck {
	d := &Deck{cards: make([]Card, len(state.Remaining)), rng: rng}
	copy(d.cards, state.Remaining)
	return d
}

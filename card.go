package tricktable

import (
	"fmt"
	"math/rand"
	"time"
)

type Suit string

const (
	Suit_Spade   Suit = "s"
	Suit_Heart   Suit = "h"
	Suit_Diamond Suit = "d"
	Suit_Club    Suit = "c"

	// Suit_Unset means no suit has been demanded for the current round.
	Suit_Unset Suit = ""

	// Suit_Hidden is only ever emitted in per-recipient views.
	Suit_Hidden Suit = "hidden"
)

var allSuits = []Suit{Suit_Spade, Suit_Heart, Suit_Diamond, Suit_Club}

var suitNames = map[Suit]string{
	Suit_Spade:   "spades",
	Suit_Heart:   "hearts",
	Suit_Diamond: "diamonds",
	Suit_Club:    "clubs",
}

func (s Suit) Name() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return string(s)
}

// Rank is the card's face value. This variant plays without face cards, so
// the rank doubles as the numeric value used in combination sums.
type Rank int

const (
	MinRank Rank = 3
	MaxRank Rank = 10
)

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%d%s", c.Rank, c.Suit)
}

func (c Card) Equal(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

// DeckSize is 4 suits x 8 ranks.
const DeckSize = 32

// Deck is an owned, mutable shuffled card sequence. A deck belongs to
// exactly one table for the lifetime of one hand.
type Deck struct {
	cards []Card
	r     *rand.Rand
}

func NewDeck() *Deck {
	return NewDeckWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewDeckWithRand builds the 32-card universe and shuffles it with the given
// source. Tests pass a seeded source for reproducible deals.
func NewDeckWithRand(r *rand.Rand) *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range allSuits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}

	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return &Deck{cards: cards, r: r}
}

func (d *Deck) Count() int {
	return len(d.cards)
}

// Draw removes and returns one card chosen uniformly among the remaining
// cards. The second return value is false when the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	count := len(d.cards)
	if count == 0 {
		return Card{}, false
	}

	idx := d.r.Intn(count)
	card := d.cards[idx]
	d.cards[idx] = d.cards[count-1]
	d.cards = d.cards[:count-1]
	return card, true
}

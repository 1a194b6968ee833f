package tricktable

type SeatAction string

const (
	SeatAction_Unset      SeatAction = ""
	SeatAction_PlayedCard SeatAction = "played_card"
	SeatAction_Checked    SeatAction = "checked"
	SeatAction_Folded     SeatAction = "folded"
	SeatAction_Winner     SeatAction = "winner"
)

// Seat is one occupied table position. A nil entry in the table's seat map
// is an unoccupied seat. Seats are created when a participant sits, survive
// across hands, and are dropped when the participant stands or disconnects.
type Seat struct {
	ID           int            `json:"id"`
	Player       *PlayerInfo    `json:"player"`
	BuyIn        float64        `json:"buyin"`
	Stack        float64        `json:"stack"`
	Hand         []Card         `json:"hand"`
	PlayedHand   []Card         `json:"played_hand"`
	Bet          float64        `json:"bet"`
	Turn         bool           `json:"turn"`
	Checked      bool           `json:"checked"`
	Folded       bool           `json:"folded"`
	LastAction   SeatAction     `json:"last_action"`
	SittingOut   bool           `json:"sitting_out"`
	WantsSitout  bool           `json:"wants_sitout"`
	WantsSitin   bool           `json:"wants_sitin"`
	ShowingCards bool           `json:"showing_cards"`
	Statistics   SeatStatistics `json:"statistics"`
}

func NewSeat(id int, player *PlayerInfo, buyIn float64) *Seat {
	return &Seat{
		ID:         id,
		Player:     player,
		BuyIn:      buyIn,
		Stack:      buyIn,
		Hand:       make([]Card, 0, 5),
		PlayedHand: make([]Card, 0, 5),
		Checked:    true,
		Statistics: NewSeatStatistics(),
	}
}

// PlayOneCard removes one matching card from the hand and records it in the
// played hand. A card that is not held leaves the hand untouched; the last
// action is stamped unconditionally. Legality is the table's job.
func (s *Seat) PlayOneCard(card Card) {
	for i, held := range s.Hand {
		if held.Equal(card) {
			s.Hand = append(s.Hand[:i], s.Hand[i+1:]...)

			if !s.hasPlayed(card) {
				s.PlayedHand = append(s.PlayedHand, card)
			}
			break
		}
	}

	s.LastAction = SeatAction_PlayedCard
}

func (s *Seat) hasPlayed(card Card) bool {
	for _, played := range s.PlayedHand {
		if played.Equal(card) {
			return true
		}
	}
	return false
}

// HoldsSuit reports whether any unplayed card matches the given suit.
func (s *Seat) HoldsSuit(suit Suit) bool {
	for _, card := range s.Hand {
		if card.Suit == suit {
			return true
		}
	}
	return false
}

// CardsOfSuit returns the unplayed cards matching the given suit.
func (s *Seat) CardsOfSuit(suit Suit) []Card {
	matches := make([]Card, 0, len(s.Hand))
	for _, card := range s.Hand {
		if card.Suit == suit {
			matches = append(matches, card)
		}
	}
	return matches
}

func (s *Seat) PlaceBet(amount float64) {
	s.Bet = amount
	s.Stack -= amount
}

func (s *Seat) WinHand(amount float64) {
	s.Stack += amount
	s.Turn = false
	s.LastAction = SeatAction_Winner
}

func (s *Seat) Check() {
	s.Checked = true
	s.Turn = false
	s.LastAction = SeatAction_Checked
}

func (s *Seat) Fold() {
	s.Folded = true
	s.Turn = false
	s.LastAction = SeatAction_Folded
}

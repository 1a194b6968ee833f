package tricktable

import (
	"encoding/json"
	"math"
)

const (
	TableStateStatus_TableIdle       TableStateStatus = "idle"
	TableStateStatus_TableDealing    TableStateStatus = "dealing"
	TableStateStatus_RoundInProgress TableStateStatus = "round_in_progress"
	TableStateStatus_RoundResolving  TableStateStatus = "round_resolving"
	TableStateStatus_HandResolving   TableStateStatus = "hand_resolving"
	TableStateStatus_TableClosed     TableStateStatus = "closed"
)

const UnsetValue = -1

type TableStateStatus string

type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayedCard is one entry of the current round's ordered play list.
type PlayedCard struct {
	SeatID int  `json:"seat_id"`
	Card   Card `json:"card"`
}

// HistoryPlayer is the reduced player reference stored in history snapshots.
type HistoryPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HistorySeat struct {
	ID           int           `json:"id"`
	Player       HistoryPlayer `json:"player"`
	Stack        float64       `json:"stack"`
	Bet          float64       `json:"bet"`
	Hand         []Card        `json:"hand"`
	PlayedHand   []Card        `json:"played_hand"`
	Turn         bool          `json:"turn"`
	Folded       bool          `json:"folded"`
	SittingOut   bool          `json:"sitting_out"`
	ShowingCards bool          `json:"showing_cards"`
	LastAction   SeatAction    `json:"last_action"`
}

// HistoryEntry is an append-only snapshot taken at hand start and after each
// round or hand resolution. Entries are never mutated after the append.
type HistoryEntry struct {
	Pot         float64              `json:"pot"`
	Seats       map[int]*HistorySeat `json:"seats"`
	Button      int                  `json:"button"`
	Turn        int                  `json:"turn"`
	WinMessages []string             `json:"win_messages"`
}

type TableState struct {
	Status            TableStateStatus `json:"status"`
	Seats             map[int]*Seat    `json:"seats"`
	Button            int              `json:"button"`
	Turn              int              `json:"turn"`
	LastWinningSeat   int              `json:"last_winning_seat"`
	LastRoundWinner   int              `json:"last_round_winner"`
	Pot               float64          `json:"pot"`
	HandOver          bool             `json:"hand_over"`
	HandCompleted     bool             `json:"hand_completed"`
	WinMessages       []string         `json:"win_messages"`
	GameNotifications []string         `json:"game_notifications"`
	History           []HistoryEntry   `json:"history"`
	DemandedSuit      Suit             `json:"demanded_suit"`
	CurrentRoundCards []PlayedCard     `json:"current_round_cards"`
	RoundNumber       int              `json:"round_number"`
	CountHand         int              `json:"count_hand"`
	HandParticipants  []int            `json:"hand_participants"`
	WonByCombination  bool             `json:"won_by_combination"`
}

type Table struct {
	ID           string      `json:"id"`
	Meta         TableMeta   `json:"meta"`
	State        *TableState `json:"state"`
	UpdateAt     int64       `json:"update_at"`     // Last update timestamp
	UpdateSerial int         `json:"update_serial"` // Incremental update counter
}

func (t *Table) GetJSON() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Clone creates a deep copy of the table.
func (t *Table) Clone() (*Table, error) {
	jsonData, err := t.GetJSON()
	if err != nil {
		return nil, err
	}

	newTable := &Table{}
	err = json.Unmarshal([]byte(jsonData), newTable)
	if err != nil {
		return nil, err
	}

	return newTable, nil
}

// FindSeatByPlayerID returns the seat occupied by the given player, or nil.
func (t *Table) FindSeatByPlayerID(playerID string) *Seat {
	for seatID := 1; seatID <= t.Meta.MaxSeatCount; seatID++ {
		seat := t.State.Seats[seatID]
		if seat != nil && seat.Player != nil && seat.Player.ID == playerID {
			return seat
		}
	}
	return nil
}

// OccupiedSeats returns all occupied seats in seat-id order.
func (t *Table) OccupiedSeats() []*Seat {
	seats := make([]*Seat, 0, t.Meta.MaxSeatCount)
	for seatID := 1; seatID <= t.Meta.MaxSeatCount; seatID++ {
		if seat := t.State.Seats[seatID]; seat != nil {
			seats = append(seats, seat)
		}
	}
	return seats
}

// ActiveSeats returns occupied seats that are not sitting out.
func (t *Table) ActiveSeats() []*Seat {
	seats := make([]*Seat, 0, t.Meta.MaxSeatCount)
	for _, seat := range t.OccupiedSeats() {
		if !seat.SittingOut {
			seats = append(seats, seat)
		}
	}
	return seats
}

// NextActiveSeat walks clockwise from the given seat and returns the seat id
// reached after passing `places` active seats. Returns the starting seat
// when no active seat exists; the walk is loop-capped so a table of
// sitting-out seats cannot spin forever.
func (t *Table) NextActiveSeat(from, places int) int {
	found := 0
	current := from
	loops := 0
	maxLoops := t.Meta.MaxSeatCount * 2

	for found < places && loops < maxLoops {
		if current >= t.Meta.MaxSeatCount {
			current = 1
		} else {
			current++
		}

		if seat := t.State.Seats[current]; seat != nil && !seat.SittingOut {
			found++
		}
		loops++

		if loops >= t.Meta.MaxSeatCount && found == 0 {
			return from
		}
	}

	if loops >= maxLoops {
		return from
	}
	return current
}

// NextSeatHoldingCards walks clockwise from the given seat to the next
// hand-participant seat that is not folded and still holds cards.
func (t *Table) NextSeatHoldingCards(from int) int {
	current := from
	for i := 0; i < t.Meta.MaxSeatCount; i++ {
		if current >= t.Meta.MaxSeatCount {
			current = 1
		} else {
			current++
		}

		seat := t.State.Seats[current]
		if seat != nil && !seat.Folded && len(seat.Hand) > 0 && t.IsHandParticipant(current) {
			return current
		}
	}
	return UnsetValue
}

func (t *Table) IsHandParticipant(seatID int) bool {
	for _, id := range t.State.HandParticipants {
		if id == seatID {
			return true
		}
	}
	return false
}

// ParticipantsHoldingCards counts hand participants whose seats still hold
// at least one unplayed card.
func (t *Table) ParticipantsHoldingCards() int {
	count := 0
	for _, seatID := range t.State.HandParticipants {
		seat := t.State.Seats[seatID]
		if seat != nil && !seat.Folded && len(seat.Hand) > 0 {
			count++
		}
	}
	return count
}

// HasPlayedThisRound reports whether the seat already has an entry in the
// current round's play list.
func (t *Table) HasPlayedThisRound(seatID int) bool {
	for _, played := range t.State.CurrentRoundCards {
		if played.SeatID == seatID {
			return true
		}
	}
	return false
}

// IsRoundComplete is true once every hand-participant seat that was eligible
// this round has exactly one entry in the play list. Eligible means the seat
// either already played or still holds cards.
func (t *Table) IsRoundComplete() bool {
	if len(t.State.CurrentRoundCards) == 0 {
		return false
	}

	for _, seatID := range t.State.HandParticipants {
		seat := t.State.Seats[seatID]
		if seat == nil || seat.Folded {
			continue
		}
		if !t.HasPlayedThisRound(seatID) && len(seat.Hand) > 0 {
			return false
		}
	}
	return true
}

// RoundWinner picks the highest-rank card among plays matching the demanded
// suit. The opening card always matches the demanded suit by construction,
// so the empty-match fallback to the first actor is defensive only.
func (t *Table) RoundWinner() int {
	winner := UnsetValue
	var best Rank

	for _, played := range t.State.CurrentRoundCards {
		if played.Card.Suit != t.State.DemandedSuit {
			continue
		}
		if winner == UnsetValue || played.Card.Rank > best {
			winner = played.SeatID
			best = played.Card.Rank
		}
	}

	if winner == UnsetValue && len(t.State.CurrentRoundCards) > 0 {
		return t.State.CurrentRoundCards[0].SeatID
	}
	return winner
}

func (t *Table) updateHistory() {
	seats := make(map[int]*HistorySeat, t.Meta.MaxSeatCount)
	for seatID := 1; seatID <= t.Meta.MaxSeatCount; seatID++ {
		seat := t.State.Seats[seatID]
		if seat == nil {
			continue
		}

		seats[seatID] = &HistorySeat{
			ID:           seat.ID,
			Player:       HistoryPlayer{ID: seat.Player.ID, Name: seat.Player.Name},
			Stack:        roundMoney(seat.Stack),
			Bet:          roundMoney(seat.Bet),
			Hand:         append([]Card(nil), seat.Hand...),
			PlayedHand:   append([]Card(nil), seat.PlayedHand...),
			Turn:         seat.Turn,
			Folded:       seat.Folded,
			SittingOut:   seat.SittingOut,
			ShowingCards: seat.ShowingCards,
			LastAction:   seat.LastAction,
		}
	}

	t.State.History = append(t.State.History, HistoryEntry{
		Pot:         roundMoney(t.State.Pot),
		Seats:       seats,
		Button:      t.State.Button,
		Turn:        t.State.Turn,
		WinMessages: append([]string(nil), t.State.WinMessages...),
	})
}

func roundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func NewDefaultSeats(maxSeatCount int) map[int]*Seat {
	seats := make(map[int]*Seat, maxSeatCount)
	for i := 1; i <= maxSeatCount; i++ {
		seats[i] = nil
	}
	return seats
}

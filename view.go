package tricktable

// Per-recipient projection of the table. The live aggregate is never cloned
// and mutated; the view is built field by field with other seats' cards
// replaced by placeholders of the same count, so recipients still see how
// many cards an opponent holds.

type SeatView struct {
	ID           int         `json:"id"`
	Player       *PlayerInfo `json:"player"`
	Stack        float64     `json:"stack"`
	Bet          float64     `json:"bet"`
	Hand         []Card      `json:"hand"`
	PlayedHand   []Card      `json:"played_hand"`
	Turn         bool        `json:"turn"`
	Folded       bool        `json:"folded"`
	SittingOut   bool        `json:"sitting_out"`
	ShowingCards bool        `json:"showing_cards"`
	LastAction   SeatAction  `json:"last_action"`
}

type TableView struct {
	TableID           string            `json:"table_id"`
	Meta              TableMeta         `json:"meta"`
	Status            TableStateStatus  `json:"status"`
	Seats             map[int]*SeatView `json:"seats"`
	Button            int               `json:"button"`
	Turn              int               `json:"turn"`
	Pot               float64           `json:"pot"`
	HandOver          bool              `json:"hand_over"`
	DemandedSuit      Suit              `json:"demanded_suit"`
	CurrentRoundCards []PlayedCard      `json:"current_round_cards"`
	RoundNumber       int               `json:"round_number"`
	WinMessages       []string          `json:"win_messages"`
	GameNotifications []string          `json:"game_notifications"`
}

var hiddenCard = Card{Suit: Suit_Hidden, Rank: 0}

// BuildTableView projects the table for one recipient. The viewer's own
// cards stay visible; other seats' hands are concealed unless the seat is
// showing cards or is the revealed winner of a completed hand.
func BuildTableView(table *Table, viewerID string) *TableView {
	st := table.State

	view := &TableView{
		TableID:           table.ID,
		Meta:              table.Meta,
		Status:            st.Status,
		Seats:             make(map[int]*SeatView, table.Meta.MaxSeatCount),
		Button:            st.Button,
		Turn:              st.Turn,
		Pot:               st.Pot,
		HandOver:          st.HandOver,
		DemandedSuit:      st.DemandedSuit,
		CurrentRoundCards: append([]PlayedCard(nil), st.CurrentRoundCards...),
		RoundNumber:       st.RoundNumber,
		WinMessages:       append([]string(nil), st.WinMessages...),
		GameNotifications: append([]string(nil), st.GameNotifications...),
	}

	for seatID := 1; seatID <= table.Meta.MaxSeatCount; seatID++ {
		seat := st.Seats[seatID]
		if seat == nil {
			view.Seats[seatID] = nil
			continue
		}

		sv := &SeatView{
			ID:           seat.ID,
			Player:       seat.Player,
			Stack:        seat.Stack,
			Bet:          seat.Bet,
			PlayedHand:   append([]Card(nil), seat.PlayedHand...),
			Turn:         seat.Turn,
			Folded:       seat.Folded,
			SittingOut:   seat.SittingOut,
			ShowingCards: seat.ShowingCards,
			LastAction:   seat.LastAction,
		}

		if seatCardsVisible(st, seat, viewerID) {
			sv.Hand = append([]Card(nil), seat.Hand...)
		} else {
			sv.Hand = make([]Card, len(seat.Hand))
			for i := range sv.Hand {
				sv.Hand[i] = hiddenCard
			}
		}

		view.Seats[seatID] = sv
	}

	return view
}

func seatCardsVisible(st *TableState, seat *Seat, viewerID string) bool {
	if seat.Player != nil && seat.Player.ID == viewerID {
		return true
	}
	if seat.ShowingCards {
		return true
	}
	// The winner's remaining cards are revealed once the hand has settled.
	return seat.LastAction == SeatAction_Winner && st.HandOver
}

// PlayerView projects the engine's table for one recipient.
func (te *tableEngine) PlayerView(playerID string) (*TableView, error) {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return nil, ErrTableNotCreated
	}
	return BuildTableView(te.table, playerID), nil
}

package tricktable

import (
	"fmt"

	"github.com/d-protocol/syncsaga"
	"github.com/golang/glog"
	"github.com/thoas/go-funk"
)

/*
startHand runs the Idle -> Dealing transition and opens round 1
 1. freeze the hand-participant roster
 2. fresh shuffled deck, cleared per-seat hand state and message logs
 3. button to the previous hand's winner (next-active fallback)
 4. collect antes
 5. deal 5 cards round-robin in button-relative order
 6. first turn to the button seat, timer armed

Caller holds the lock.
*/
func (te *tableEngine) startHand() error {
	if te.isReleased {
		return nil
	}

	st := te.table.State
	active := te.table.ActiveSeats()
	if len(active) < te.table.Meta.MinPlayerCount {
		return ErrTableNotEnoughPlayers
	}

	st.Status = TableStateStatus_TableDealing
	st.CountHand++
	st.HandCompleted = false
	st.WonByCombination = false
	st.WinMessages = nil
	st.GameNotifications = nil
	st.History = nil
	st.Pot = 0
	st.RoundNumber = 1
	st.DemandedSuit = Suit_Unset
	st.CurrentRoundCards = nil
	st.LastRoundWinner = UnsetValue

	for _, seat := range te.table.OccupiedSeats() {
		seat.Hand = make([]Card, 0, 5)
		seat.PlayedHand = make([]Card, 0, 5)
		seat.Bet = 0
		seat.Checked = false
		seat.Turn = false
		seat.Folded = seat.SittingOut
		seat.ShowingCards = false
		seat.LastAction = SeatAction_Unset
	}

	st.HandParticipants = funk.Map(active, func(s *Seat) int { return s.ID }).([]int)

	// Button: first hand keeps the seat assigned at first sit; afterwards the
	// previous winner deals, falling back to plain rotation when that seat is
	// gone or sitting out.
	if st.CountHand > 1 {
		lw := st.LastWinningSeat
		if lw != UnsetValue && st.Seats[lw] != nil && !st.Seats[lw].SittingOut {
			st.Button = lw
		} else {
			st.Button = te.table.NextActiveSeat(st.Button, 1)
		}
	}
	if st.Button == UnsetValue || st.Seats[st.Button] == nil {
		st.Button = active[0].ID
	}

	// Ante
	bet := te.table.Meta.Bet
	for _, seatID := range st.HandParticipants {
		seat := st.Seats[seatID]
		seat.PlaceBet(bet)
		seat.Statistics.HandsPlayed++
		st.Pot += bet
	}

	// Deal one card per seat per pass, five passes, starting left of the
	// button so the dealer receives last.
	te.deck = NewDeckWithRand(te.r)
	order := te.dealOrder(st.Button)
	for pass := 0; pass < 5; pass++ {
		for _, seatID := range order {
			seat := st.Seats[seatID]
			if seat == nil || seat.SittingOut {
				continue
			}

			card, ok := te.deck.Draw()
			if !ok {
				// 4 seats x 5 cards never exceeds the 32-card deck.
				te.forceIdle(fmt.Errorf("%w: deck exhausted during deal", ErrTableInternalState))
				return ErrTableInternalState
			}
			seat.Hand = append(seat.Hand, card)
		}
	}

	firstTurn := st.Button
	if seat := st.Seats[firstTurn]; seat == nil || seat.SittingOut {
		firstTurn = te.table.NextActiveSeat(st.Button, 1)
	}
	te.setTurn(firstTurn)

	st.HandOver = false
	st.Status = TableStateStatus_RoundInProgress
	te.table.updateHistory()

	te.emitEvent("StartHand", "")
	te.onTurnChanged(te.table.ID, firstTurn)
	te.startTurnTimer(firstTurn)
	return nil
}

// dealOrder lists all seat ids starting one past the button and ending on
// the button.
func (te *tableEngine) dealOrder(button int) []int {
	max := te.table.Meta.MaxSeatCount
	order := make([]int, 0, max)
	for i := 1; i <= max; i++ {
		seatID := button + i
		if seatID > max {
			seatID -= max
		}
		order = append(order, seatID)
	}
	return order
}

// setTurn moves the turn marker and advances the timer epoch so that any
// already-scheduled expiry for the previous turn is recognized as stale.
func (te *tableEngine) setTurn(seatID int) {
	te.turnEpoch++
	st := te.table.State
	st.Turn = seatID
	for _, seat := range te.table.OccupiedSeats() {
		seat.Turn = seat.ID == seatID
	}
}

// afterCardPlayed advances the state machine once a card (human or auto) has
// been appended to the round. Caller holds the lock.
func (te *tableEngine) afterCardPlayed(seatID int) {
	if te.table.IsRoundComplete() {
		te.resolveRound()
		return
	}

	next := te.table.NextSeatHoldingCards(seatID)
	if next == UnsetValue {
		te.forceIdle(fmt.Errorf("%w: no seat can act in open round", ErrTableInternalState))
		return
	}

	te.setTurn(next)
	te.onTurnChanged(te.table.ID, next)
	te.startTurnTimer(next)
}

// resolveRound closes the current round: picks the trick winner, then either
// opens the next round with that seat to act or hands off to hand
// resolution. Caller holds the lock.
func (te *tableEngine) resolveRound() {
	st := te.table.State
	st.Status = TableStateStatus_RoundResolving

	winner := te.table.RoundWinner()
	if winner == UnsetValue {
		te.forceIdle(fmt.Errorf("%w: round resolved with no plays", ErrTableInternalState))
		return
	}

	st.LastRoundWinner = winner
	if seat := st.Seats[winner]; seat != nil {
		seat.Statistics.RoundsWon++
	}

	if st.RoundNumber >= 5 || te.table.ParticipantsHoldingCards() < 2 {
		st.LastWinningSeat = winner
		te.resolveHand()
		return
	}

	st.RoundNumber++
	st.DemandedSuit = Suit_Unset
	st.CurrentRoundCards = nil

	next := winner
	if seat := st.Seats[next]; seat == nil || len(seat.Hand) == 0 {
		next = te.table.NextSeatHoldingCards(winner)
	}

	te.setTurn(next)
	st.Status = TableStateStatus_RoundInProgress
	te.table.updateHistory()

	te.onTurnChanged(te.table.ID, next)
	te.startTurnTimer(next)
}

/*
resolveHand settles the pot
 1. a revealed combination wins outright, overriding the trick winner
 2. otherwise the last round's winner collects, after any korat/33 side
    collection when the deciding card(s) are rank 3
 3. bets zeroed, winner credited, felted seats sat out, deferred
    sitout/sitin applied, roster released

The handCompleted flag guards against a second settlement from a stale
trigger. Caller holds the lock.
*/
func (te *tableEngine) resolveHand() {
	st := te.table.State
	if st.HandCompleted {
		return
	}
	st.HandCompleted = true
	st.Status = TableStateStatus_HandResolving
	te.clearTurnTimer()

	winner := st.LastWinningSeat
	var winnerCombo *Combination

	if comboSeatID, combo := te.findCombinationWinner(); combo != nil && comboSeatID != UnsetValue {
		winner = comboSeatID
		winnerCombo = combo
		st.LastWinningSeat = comboSeatID
		st.WonByCombination = true
	}

	bet := te.table.Meta.Bet
	if winnerCombo == nil {
		if seat := st.Seats[winner]; seat != nil {
			collections := koratCollections(seat.PlayedHand)
			if collections > 0 {
				for _, seatID := range st.HandParticipants {
					if seatID == winner {
						continue
					}
					other := st.Seats[seatID]
					if other == nil {
						continue
					}
					for i := 0; i < collections; i++ {
						other.Stack -= bet
						st.Pot += bet
					}
				}

				seat.Statistics.KoratCollections += collections
				if collections == 2 {
					te.notify("33! every player pays a double ante")
				} else {
					te.notify("korat! every player pays an extra ante")
				}
			}
		}
	}

	for _, seat := range te.table.OccupiedSeats() {
		seat.Bet = 0
	}

	amount := st.Pot
	winnerSeat := st.Seats[winner]
	if winnerSeat == nil {
		te.emitErrorEvent("resolveHand", "", fmt.Errorf("%w: winning seat %d is empty", ErrTableInternalState, winner))
	} else {
		winnerSeat.WinHand(amount)
		winnerSeat.Statistics.HandsWon++

		if winnerCombo != nil {
			winnerSeat.Statistics.CombinationWins++
			st.WinMessages = append(st.WinMessages,
				fmt.Sprintf("%s wins $%.2f with %s", winnerSeat.Player.Name, amount, winnerCombo.Describe()))
		} else {
			st.WinMessages = append(st.WinMessages,
				fmt.Sprintf("%s wins $%.2f", winnerSeat.Player.Name, amount))
		}
	}
	st.Pot = 0

	for _, seat := range te.table.OccupiedSeats() {
		seat.PlayedHand = make([]Card, 0, 5)
	}

	te.endHand()
	te.table.updateHistory()
	te.onHandCompleted(te.table.ID, winner, amount)
	te.emitEvent("HandCompleted", "")
}

// koratCollections counts the extra ante collections owed by the table when
// the hand-deciding card (or the last two) is a 3.
func koratCollections(playedHand []Card) int {
	n := len(playedHand)
	if n == 0 || playedHand[n-1].Rank != 3 {
		return 0
	}
	if n >= 2 && playedHand[n-2].Rank == 3 {
		return 2
	}
	return 1
}

// findCombinationWinner scans showing seats with an intact 5-card hand.
// A seat that has already played a card can no longer win by combination.
func (te *tableEngine) findCombinationWinner() (int, *Combination) {
	st := te.table.State

	bestSeatID := UnsetValue
	var best *Combination

	for _, seatID := range st.HandParticipants {
		seat := st.Seats[seatID]
		if seat == nil || seat.Folded || !seat.ShowingCards || len(seat.Hand) != 5 {
			continue
		}

		combo := FindBestCombination(seat.Hand)
		if combo == nil {
			continue
		}
		if best == nil || CompareCombinations(combo, best) > 0 {
			bestSeatID = seatID
			best = combo
		}
	}

	return bestSeatID, best
}

// endHand returns the table to Idle and applies the deferred seat requests.
// Caller holds the lock.
func (te *tableEngine) endHand() {
	st := te.table.State

	for _, seat := range te.table.OccupiedSeats() {
		seat.Turn = false

		if seat.Stack <= 0 {
			seat.SittingOut = true
		}
		if seat.WantsSitout {
			seat.SittingOut = true
			seat.WantsSitout = false
		}
		if seat.WantsSitin {
			seat.SittingOut = false
			seat.WantsSitin = false
		}
	}

	st.Turn = UnsetValue
	st.HandOver = true
	st.HandParticipants = nil
	st.Status = TableStateStatus_TableIdle
	te.turnEpoch++

	if len(te.table.ActiveSeats()) >= te.table.Meta.MinPlayerCount {
		te.setupNextHand()
	}
}

// setupNextHand opens the between-hand ready window. Every active seat joins
// a ready group; stragglers are auto-readied when the interval elapses, and
// completion deals the next hand.
func (te *tableEngine) setupNextHand() {
	te.stopNextHandGroup()

	interval := te.table.Meta.NextHandInterval
	rg := syncsaga.NewReadyGroup(
		syncsaga.WithTimeout(interval, func(rg *syncsaga.ReadyGroup) {
			// Auto Ready By Default
			states := rg.GetParticipantStates()
			for seatID, isReady := range states {
				if !isReady {
					rg.Ready(seatID)
				}
			}
		}),
	)

	rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		te.delayedStartHand()
	})

	rg.ResetParticipants()
	for _, seat := range te.table.ActiveSeats() {
		rg.Add(int64(seat.ID), false)
	}

	te.rg = rg
	rg.Start()

	te.notify("New hand starting in %d seconds", interval)
}

func (te *tableEngine) stopNextHandGroup() {
	if te.rg != nil {
		te.rg.Stop()
		te.rg = nil
	}
}

// delayedStartHand is the ready-group completion handler. The table may have
// changed during the wait, so every precondition is rechecked under the lock.
func (te *tableEngine) delayedStartHand() {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.isReleased || te.table == nil {
		return
	}
	if !te.table.State.HandOver {
		return
	}
	if len(te.table.ActiveSeats()) < te.table.Meta.MinPlayerCount {
		return
	}

	te.rg = nil
	if err := te.startHand(); err != nil {
		te.emitErrorEvent("delayedStartHand", "", err)
	}
}

// forceIdle abandons the current hand after an invariant violation. The pot
// is not disbursed; the table is left playable. Caller holds the lock.
func (te *tableEngine) forceIdle(err error) {
	st := te.table.State

	te.clearTurnTimer()
	st.HandOver = true
	st.HandCompleted = true
	st.HandParticipants = nil
	st.Turn = UnsetValue
	st.DemandedSuit = Suit_Unset
	st.CurrentRoundCards = nil
	st.Status = TableStateStatus_TableIdle
	te.turnEpoch++

	for _, seat := range te.table.OccupiedSeats() {
		seat.Turn = false
	}

	te.emitErrorEvent("forceIdle", "", err)
}

// resetEmptyTable restores the Idle baseline after the last player leaves.
func (te *tableEngine) resetEmptyTable() {
	st := te.table.State

	te.clearTurnTimer()
	te.stopNextHandGroup()
	te.deck = nil

	st.Seats = NewDefaultSeats(te.table.Meta.MaxSeatCount)
	st.Button = UnsetValue
	st.Turn = UnsetValue
	st.LastWinningSeat = UnsetValue
	st.LastRoundWinner = UnsetValue
	st.Pot = 0
	st.HandOver = true
	st.HandCompleted = false
	st.WinMessages = nil
	st.GameNotifications = nil
	st.DemandedSuit = Suit_Unset
	st.CurrentRoundCards = nil
	st.RoundNumber = 1
	st.HandParticipants = nil
	st.WonByCombination = false
	st.Status = TableStateStatus_TableIdle
	te.turnEpoch++
}

// clearForWaitingPlayers clears hand leftovers when the table drops below
// the minimum player count between hands.
func (te *tableEngine) clearForWaitingPlayers() {
	st := te.table.State

	te.stopNextHandGroup()
	st.WinMessages = nil
	st.Pot = 0
	for _, seat := range te.table.OccupiedSeats() {
		seat.Hand = nil
		seat.PlayedHand = nil
		seat.Bet = 0
	}

	te.notify("Waiting for more players")
}

// pickAutoPlayCard chooses the forced card for a stalled seat: opening seats
// play anything, followers prefer the demanded suit.
func (te *tableEngine) pickAutoPlayCard(seat *Seat) (Card, bool) {
	if len(seat.Hand) == 0 {
		return Card{}, false
	}

	st := te.table.State
	pool := seat.Hand
	if len(st.CurrentRoundCards) > 0 {
		if matches := seat.CardsOfSuit(st.DemandedSuit); len(matches) > 0 {
			pool = matches
		}
	}

	return pool[te.r.Intn(len(pool))], true
}

// autoPlay plays a forced card for the seat whose timer expired. Validation
// already happened in the timer path. Caller holds the lock.
func (te *tableEngine) autoPlay(seatID int) {
	st := te.table.State
	seat := st.Seats[seatID]

	card, ok := te.pickAutoPlayCard(seat)
	if !ok {
		glog.Errorf("table %s: auto-play fired for seat %d with no cards", te.table.ID, seatID)
		return
	}

	if len(st.CurrentRoundCards) == 0 {
		st.DemandedSuit = card.Suit
	}

	seat.PlayOneCard(card)
	seat.Statistics.CardsPlayed++
	seat.Statistics.AutoPlayTimes++
	st.CurrentRoundCards = append(st.CurrentRoundCards, PlayedCard{SeatID: seatID, Card: card})

	te.notify("%s ran out of time, a card was played automatically", seat.Player.Name)
	te.onAutoPlayed(te.table.ID, seatID, card)

	te.afterCardPlayed(seatID)
	te.emitEvent("AutoPlay", seat.Player.ID)
}

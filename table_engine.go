package tricktable

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/d-protocol/syncsaga"
	"github.com/d-protocol/timebank"
	"github.com/golang/glog"
)

var (
	ErrTableInvalidCreateSetting = errors.New("table: invalid create table setting")
	ErrTableNotCreated           = errors.New("table: table not created")
	ErrTablePlayerNotFound       = errors.New("table: player not found")
	ErrTablePlayerAlreadySeated  = errors.New("table: player already seated")
	ErrTableSeatUnavailable      = errors.New("table: player seat unavailable")
	ErrTablePlayerInvalidAction  = errors.New("table: player invalid action")
	ErrTableNotPlayersTurn       = errors.New("table: not player's turn")
	ErrTableCardNotInHand        = errors.New("table: card not in hand")
	ErrTableMustFollowSuit       = errors.New("table: must follow demanded suit")
	ErrTableHandNotInProgress    = errors.New("table: no hand in progress")
	ErrTableNotEnoughPlayers     = errors.New("table: not enough players")
	ErrTableInternalState        = errors.New("table: internal state violation")
	ErrTableLedgerUnavailable    = errors.New("table: chip ledger unavailable")
)

// ChipLedger is the external bankroll collaborator. The engine treats it as
// eventually consistent: a failed call never rolls back seat state and never
// stalls the state machine.
type ChipLedger interface {
	Credit(playerID string, amount float64) error
	Debit(playerID string, amount float64) error
}

type TableEngineOpt func(*tableEngine)

type TableEngine interface {
	// Events
	OnTableUpdated(fn func(table *Table))
	OnTableErrorUpdated(fn func(table *Table, err error))
	OnTurnChanged(fn func(tableID string, seatID int))
	OnAutoPlayed(fn func(tableID string, seatID int, card Card))
	OnHandCompleted(fn func(tableID string, winnerSeatID int, amount float64))

	// Table Actions
	GetTable() *Table
	CreateTable(tableSetting TableSetting) (*Table, error)
	CloseTable() error
	ReleaseTable() error
	StartHand() error
	PlayerView(playerID string) (*TableView, error)

	// Player Table Actions
	PlayerSit(player PlayerInfo, seatID int, buyIn float64) error
	PlayerRebuy(playerID string, amount float64) error
	PlayerStand(playerID string) error
	PlayerDisconnect(playerID string) error
	PlayerSitOut(playerID string) error
	PlayerSitIn(playerID string) error

	// Player Game Actions
	PlayerPlayCard(playerID string, card Card) error
	PlayerShowCards(playerID string) error
	PlayerNextHandReady(playerID string) error
}

type tableEngine struct {
	lock            sync.Mutex
	table           *Table
	deck            *Deck
	ledger          ChipLedger
	rg              *syncsaga.ReadyGroup
	tbForTurn       *timebank.TimeBank
	turnEpoch       int64
	r               *rand.Rand
	onTableUpdated  func(table *Table)
	onTableError    func(table *Table, err error)
	onTurnChanged   func(tableID string, seatID int)
	onAutoPlayed    func(tableID string, seatID int, card Card)
	onHandCompleted func(tableID string, winnerSeatID int, amount float64)
	isReleased      bool
}

func NewTableEngine(opts ...TableEngineOpt) TableEngine {
	callbacks := NewTableEngineCallbacks()
	te := &tableEngine{
		tbForTurn:       timebank.NewTimeBank(),
		r:               rand.New(rand.NewSource(time.Now().UnixNano())),
		onTableUpdated:  callbacks.OnTableUpdated,
		onTableError:    callbacks.OnTableErrorUpdated,
		onTurnChanged:   callbacks.OnTurnChanged,
		onAutoPlayed:    callbacks.OnAutoPlayed,
		onHandCompleted: callbacks.OnHandCompleted,
	}

	for _, opt := range opts {
		opt(te)
	}

	return te
}

func WithChipLedger(ledger ChipLedger) TableEngineOpt {
	return func(te *tableEngine) {
		te.ledger = ledger
	}
}

// WithRandSource replaces the engine's randomness (shuffles and auto-play
// picks). Tests pass a seeded source.
func WithRandSource(r *rand.Rand) TableEngineOpt {
	return func(te *tableEngine) {
		te.r = r
	}
}

func (te *tableEngine) OnTableUpdated(fn func(*Table)) {
	te.onTableUpdated = fn
}

func (te *tableEngine) OnTableErrorUpdated(fn func(*Table, error)) {
	te.onTableError = fn
}

func (te *tableEngine) OnTurnChanged(fn func(string, int)) {
	te.onTurnChanged = fn
}

func (te *tableEngine) OnAutoPlayed(fn func(string, int, Card)) {
	te.onAutoPlayed = fn
}

func (te *tableEngine) OnHandCompleted(fn func(string, int, float64)) {
	te.onHandCompleted = fn
}

func (te *tableEngine) GetTable() *Table {
	return te.table
}

func (te *tableEngine) CreateTable(tableSetting TableSetting) (*Table, error) {
	te.lock.Lock()
	defer te.lock.Unlock()

	if tableSetting.TableID == "" || tableSetting.Meta.Bet <= 0 {
		return nil, ErrTableInvalidCreateSetting
	}

	meta := tableSetting.Meta.normalized()

	table := &Table{
		ID:   tableSetting.TableID,
		Meta: meta,
		State: &TableState{
			Status:          TableStateStatus_TableIdle,
			Seats:           NewDefaultSeats(meta.MaxSeatCount),
			Button:          UnsetValue,
			Turn:            UnsetValue,
			LastWinningSeat: UnsetValue,
			LastRoundWinner: UnsetValue,
			HandOver:        true,
			RoundNumber:     1,
		},
	}
	te.table = table

	te.emitEvent("CreateTable", "")
	return te.table, nil
}

/*
CloseTable closes the table permanently
  - Use cases: forced close, last player leaving, normal shutdown
*/
func (te *tableEngine) CloseTable() error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}

	te.clearTurnTimer()
	te.stopNextHandGroup()
	te.table.State.Status = TableStateStatus_TableClosed
	te.isReleased = true

	te.emitEvent("CloseTable", "")
	return nil
}

func (te *tableEngine) ReleaseTable() error {
	te.lock.Lock()
	defer te.lock.Unlock()

	te.clearTurnTimer()
	te.stopNextHandGroup()
	te.isReleased = true
	return nil
}

// StartHand starts a hand immediately, skipping the between-hand ready
// window. Transports use it for the very first deal; tests use it for
// determinism.
func (te *tableEngine) StartHand() error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}
	if !te.table.State.HandOver {
		return ErrTablePlayerInvalidAction
	}

	te.stopNextHandGroup()
	return te.startHand()
}

/*
PlayerSit seats a participant
  - Use case: player picks an empty seat and brings a buy-in
*/
func (te *tableEngine) PlayerSit(player PlayerInfo, seatID int, buyIn float64) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}
	if seatID < 1 || seatID > te.table.Meta.MaxSeatCount {
		return ErrTableSeatUnavailable
	}
	if te.table.State.Seats[seatID] != nil {
		return ErrTableSeatUnavailable
	}
	if te.table.FindSeatByPlayerID(player.ID) != nil {
		return ErrTablePlayerAlreadySeated
	}

	info := player
	seat := NewSeat(seatID, &info, buyIn)
	te.table.State.Seats[seatID] = seat

	// The first seated player holds the button until a hand is won.
	if len(te.table.OccupiedSeats()) == 1 {
		te.table.State.Button = seatID
	}

	te.notify("%s sat down in Seat %d", player.Name, seatID)
	ledgerErr := te.debit(player.ID, buyIn)
	te.emitEvent("PlayerSit", player.ID)

	if te.table.State.HandOver && len(te.table.ActiveSeats()) >= te.table.Meta.MinPlayerCount {
		te.setupNextHand()
	}

	return ledgerErr
}

/*
PlayerRebuy tops up a seated player's stack
  - Use case: felted or short-stacked player buys back in
*/
func (te *tableEngine) PlayerRebuy(playerID string, amount float64) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}

	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	seat.Stack += amount
	te.notify("%s rebuys $%.2f", seat.Player.Name, amount)
	ledgerErr := te.debit(playerID, amount)
	te.emitEvent("PlayerRebuy", playerID)

	return ledgerErr
}

/*
PlayerStand empties the player's seat and returns the remaining stack to the
bankroll
  - Use cases: voluntary stand-up, leaving the table
*/
func (te *tableEngine) PlayerStand(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	return te.removePlayer(playerID)
}

// PlayerDisconnect handles a dropped connection that never reconnects. Same
// state transition as standing up; stale disconnects for players already
// removed are discarded silently.
func (te *tableEngine) PlayerDisconnect(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil || te.table.FindSeatByPlayerID(playerID) == nil {
		return nil
	}
	return te.removePlayer(playerID)
}

/*
PlayerSitOut marks a seat as sitting out
  - Use case: player takes a break; deferred to hand end while a hand runs
*/
func (te *tableEngine) PlayerSitOut(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}

	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	if te.table.State.HandOver || !te.table.IsHandParticipant(seat.ID) {
		seat.SittingOut = true
		seat.WantsSitout = false
	} else {
		seat.WantsSitout = true
	}

	te.emitEvent("PlayerSitOut", playerID)
	return nil
}

/*
PlayerSitIn brings a sitting-out seat back into play
  - Use case: returning from a break; takes effect next hand while a hand runs
*/
func (te *tableEngine) PlayerSitIn(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}

	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	if te.table.State.HandOver {
		seat.SittingOut = false
		seat.WantsSitin = false

		if len(te.table.ActiveSeats()) >= te.table.Meta.MinPlayerCount {
			te.setupNextHand()
		}
	} else {
		seat.WantsSitin = true
	}

	te.emitEvent("PlayerSitIn", playerID)
	return nil
}

/*
PlayerPlayCard plays one card for the acting seat
  - Use case: participant intent from the transport layer
*/
func (te *tableEngine) PlayerPlayCard(playerID string, card Card) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}

	st := te.table.State
	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}
	if st.HandOver {
		return ErrTableHandNotInProgress
	}
	if !seat.Turn || st.Turn != seat.ID {
		return ErrTableNotPlayersTurn
	}

	held := false
	for _, c := range seat.Hand {
		if c.Equal(card) {
			held = true
			break
		}
	}
	if !held {
		return ErrTableCardNotInHand
	}

	// Suit-following: the opening card is always legal; later cards must
	// match the demanded suit unless the seat holds none of it.
	if len(st.CurrentRoundCards) > 0 && card.Suit != st.DemandedSuit && seat.HoldsSuit(st.DemandedSuit) {
		return fmt.Errorf("%w: play a %s card", ErrTableMustFollowSuit, st.DemandedSuit.Name())
	}

	te.clearTurnTimer()

	if len(st.CurrentRoundCards) == 0 {
		st.DemandedSuit = card.Suit
	}

	seat.PlayOneCard(card)
	seat.Statistics.CardsPlayed++
	st.CurrentRoundCards = append(st.CurrentRoundCards, PlayedCard{SeatID: seat.ID, Card: card})

	te.afterCardPlayed(seat.ID)
	te.emitEvent("PlayerPlayCard", playerID)
	return nil
}

/*
PlayerShowCards reveals the seat's hand
  - Use case: claiming a combination; with an intact 5-card hand this can end
    the hand immediately
*/
func (te *tableEngine) PlayerShowCards(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}

	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	seat.ShowingCards = true
	te.notify("%s shows their cards", seat.Player.Name)

	if !te.table.State.HandOver {
		if winnerSeatID, combo := te.findCombinationWinner(); combo != nil && winnerSeatID != UnsetValue {
			te.resolveHand()
		}
	}

	te.emitEvent("PlayerShowCards", playerID)
	return nil
}

// PlayerNextHandReady confirms the player is ready for the next hand. The
// between-hand ready group auto-readies stragglers after the configured
// interval, so this only shortens the wait. Completion fires on the ready
// group's own goroutine, so holding the lock across Ready cannot deadlock.
func (te *tableEngine) PlayerNextHandReady(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableNotCreated
	}
	if te.rg == nil {
		return ErrTablePlayerInvalidAction
	}

	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	te.rg.Ready(int64(seat.ID))
	return nil
}

// removePlayer empties the player's seat. Caller holds the lock.
func (te *tableEngine) removePlayer(playerID string) error {
	if te.table == nil {
		return ErrTableNotCreated
	}

	st := te.table.State
	seat := te.table.FindSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	seatID := seat.ID
	hadTurn := seat.Turn || st.Turn == seatID
	ledgerErr := te.credit(playerID, seat.Stack)

	st.Seats[seatID] = nil
	te.notify("%s left the table", seat.Player.Name)

	if !st.HandOver && te.table.IsHandParticipant(seatID) {
		holding := te.table.ParticipantsHoldingCards()
		switch {
		case holding == 0:
			// Everyone still seated has already played; the departing seat
			// was the only one due to act. Settle on the cards on the table.
			te.clearTurnTimer()
			if len(st.CurrentRoundCards) > 0 && te.table.IsRoundComplete() {
				te.resolveRound()
			} else {
				te.forceIdle(fmt.Errorf("%w: no participants left in running hand", ErrTableInternalState))
			}
		case holding == 1:
			// The sole remaining holder takes the hand without waiting for
			// the departed seat's timer.
			for _, sid := range st.HandParticipants {
				remaining := st.Seats[sid]
				if remaining != nil && !remaining.Folded && len(remaining.Hand) > 0 {
					st.LastWinningSeat = sid
					break
				}
			}
			te.clearTurnTimer()
			te.resolveHand()
		case hadTurn:
			te.clearTurnTimer()
			next := te.table.NextSeatHoldingCards(seatID)
			if next == UnsetValue {
				te.forceIdle(fmt.Errorf("%w: no next seat after departure", ErrTableInternalState))
				break
			}
			if te.table.IsRoundComplete() {
				te.resolveRound()
			} else {
				te.setTurn(next)
				te.onTurnChanged(te.table.ID, next)
				te.startTurnTimer(next)
			}
		case te.table.IsRoundComplete():
			// The departed seat was the only one still due to act.
			te.resolveRound()
		}
	}

	if len(te.table.OccupiedSeats()) == 0 {
		te.resetEmptyTable()
	} else if st.HandOver && len(te.table.ActiveSeats()) < te.table.Meta.MinPlayerCount {
		te.clearForWaitingPlayers()
	}

	te.emitEvent("PlayerStand", playerID)
	return ledgerErr
}

func (te *tableEngine) debit(playerID string, amount float64) error {
	if te.ledger == nil || amount == 0 {
		return nil
	}
	if err := te.ledger.Debit(playerID, amount); err != nil {
		glog.Warningf("table %s: ledger debit failed for player %s: %v", te.table.ID, playerID, err)
		te.notify("bankroll update pending for this table")
		return fmt.Errorf("%w: %v", ErrTableLedgerUnavailable, err)
	}
	return nil
}

func (te *tableEngine) credit(playerID string, amount float64) error {
	if te.ledger == nil || amount == 0 {
		return nil
	}
	if err := te.ledger.Credit(playerID, amount); err != nil {
		glog.Warningf("table %s: ledger credit failed for player %s: %v", te.table.ID, playerID, err)
		te.notify("bankroll update pending for this table")
		return fmt.Errorf("%w: %v", ErrTableLedgerUnavailable, err)
	}
	return nil
}

func (te *tableEngine) notify(format string, args ...interface{}) {
	st := te.table.State
	st.GameNotifications = append(st.GameNotifications, fmt.Sprintf(format, args...))
}

func (te *tableEngine) emitEvent(eventName string, playerID string) {
	te.table.UpdateAt = time.Now().Unix()
	te.table.UpdateSerial++

	glog.V(2).Infof("table %s: event %s (player: %s, serial: %d)", te.table.ID, eventName, playerID, te.table.UpdateSerial)
	te.onTableUpdated(te.table)
}

func (te *tableEngine) emitErrorEvent(eventName string, playerID string, err error) {
	glog.Errorf("table %s: error on %s (player: %s): %v", te.table.ID, eventName, playerID, err)
	te.onTableError(te.table, err)
}

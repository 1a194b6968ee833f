package tricktable

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu      sync.Mutex
	debits  map[string]float64
	credits map[string]float64
	fail    bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		debits:  make(map[string]float64),
		credits: make(map[string]float64),
	}
}

func (l *fakeLedger) Debit(playerID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return fmt.Errorf("ledger offline")
	}
	l.debits[playerID] += amount
	return nil
}

func (l *fakeLedger) Credit(playerID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return fmt.Errorf("ledger offline")
	}
	l.credits[playerID] += amount
	return nil
}

func newEngineWithPlayers(t *testing.T, ledger ChipLedger, playerCount int) *tableEngine {
	t.Helper()

	opts := []TableEngineOpt{WithRandSource(rand.New(rand.NewSource(99)))}
	if ledger != nil {
		opts = append(opts, WithChipLedger(ledger))
	}

	engine := NewTableEngine(opts...)
	t.Cleanup(func() { _ = engine.ReleaseTable() })

	_, err := engine.CreateTable(TableSetting{
		TableID: "t1",
		Meta:    NewDefaultTableMeta("test table", 10),
	})
	require.NoError(t, err)

	names := []string{"alice", "bob", "carol", "dave"}
	for i := 0; i < playerCount; i++ {
		player := PlayerInfo{ID: fmt.Sprintf("p%d", i+1), Name: names[i]}
		require.NoError(t, engine.PlayerSit(player, i+1, 100))
	}

	return engine.(*tableEngine)
}

// giveHands overwrites the dealt cards so the trick outcomes are fixed.
func giveHands(te *tableEngine, hands map[int][]Card) {
	for seatID, hand := range hands {
		seat := te.table.State.Seats[seatID]
		seat.Hand = append([]Card(nil), hand...)
		seat.PlayedHand = make([]Card, 0, 5)
	}
}

func TestCreateTable_RejectsInvalidSetting(t *testing.T) {
	engine := NewTableEngine()
	t.Cleanup(func() { _ = engine.ReleaseTable() })

	_, err := engine.CreateTable(TableSetting{TableID: "", Meta: NewDefaultTableMeta("x", 10)})
	assert.ErrorIs(t, err, ErrTableInvalidCreateSetting)

	_, err = engine.CreateTable(TableSetting{TableID: "t1", Meta: TableMeta{Bet: 0}})
	assert.ErrorIs(t, err, ErrTableInvalidCreateSetting)
}

func TestPlayerSit_SeatRules(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)

	err := te.PlayerSit(PlayerInfo{ID: "p3", Name: "carol"}, 1, 100)
	assert.ErrorIs(t, err, ErrTableSeatUnavailable)

	err = te.PlayerSit(PlayerInfo{ID: "p3", Name: "carol"}, 9, 100)
	assert.ErrorIs(t, err, ErrTableSeatUnavailable)

	err = te.PlayerSit(PlayerInfo{ID: "p1", Name: "alice"}, 3, 100)
	assert.ErrorIs(t, err, ErrTablePlayerAlreadySeated)

	// First sitter holds the button before any hand is won.
	assert.Equal(t, 1, te.table.State.Button)
}

func TestStartHand_AntesDealAndFirstTurn(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())

	st := te.table.State
	assert.Equal(t, float64(20), st.Pot)
	assert.Equal(t, TableStateStatus_RoundInProgress, st.Status)
	assert.Equal(t, []int{1, 2}, st.HandParticipants)
	assert.Equal(t, 1, st.RoundNumber)
	assert.False(t, st.HandOver)

	// The button acts first.
	assert.Equal(t, st.Button, st.Turn)

	for _, seatID := range st.HandParticipants {
		seat := st.Seats[seatID]
		assert.Len(t, seat.Hand, 5)
		assert.Equal(t, float64(90), seat.Stack)
		assert.Equal(t, float64(10), seat.Bet)
	}
}

func TestStartHand_RequiresMinimumPlayers(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 1)
	assert.ErrorIs(t, te.StartHand(), ErrTableNotEnoughPlayers)
}

func TestPlayCard_MustFollowDemandedSuit(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}, {Suit_Club, 5}},
		2: {{Suit_Heart, 3}, {Suit_Spade, 10}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	assert.Equal(t, Suit_Heart, te.table.State.DemandedSuit)
	assert.Equal(t, 2, te.table.State.Turn)

	// Seat 2 holds a heart, so the spade is rejected with a reason.
	err := te.PlayerPlayCard("p2", Card{Suit_Spade, 10})
	require.ErrorIs(t, err, ErrTableMustFollowSuit)
	assert.Contains(t, err.Error(), "hearts")

	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 3}))

	// Highest heart takes the trick and leads the next round.
	st := te.table.State
	assert.Equal(t, 1, st.LastRoundWinner)
	assert.Equal(t, 2, st.RoundNumber)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, Suit_Unset, st.DemandedSuit)
	assert.Empty(t, st.CurrentRoundCards)
	assert.Equal(t, 1, st.Seats[1].Statistics.RoundsWon)
}

func TestPlayCard_OffSuitAllowedWhenNotHolding(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}, {Suit_Club, 5}},
		2: {{Suit_Spade, 10}, {Suit_Spade, 4}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Spade, 10}))

	// The off-suit ten does not beat the demanded-suit nine.
	assert.Equal(t, 1, te.table.State.LastRoundWinner)
}

func TestPlayCard_Rejections(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)

	err := te.PlayerPlayCard("p1", Card{Suit_Heart, 9})
	assert.ErrorIs(t, err, ErrTableHandNotInProgress)

	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}},
		2: {{Suit_Heart, 3}},
	})

	err = te.PlayerPlayCard("p2", Card{Suit_Heart, 3})
	assert.ErrorIs(t, err, ErrTableNotPlayersTurn)

	err = te.PlayerPlayCard("p1", Card{Suit_Club, 8})
	assert.ErrorIs(t, err, ErrTableCardNotInHand)

	err = te.PlayerPlayCard("ghost", Card{Suit_Heart, 9})
	assert.ErrorIs(t, err, ErrTablePlayerNotFound)
}

func TestHandSettlement_PotGoesToLastTrickWinner(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)

	var completedSeat int
	var completedAmount float64
	te.OnHandCompleted(func(tableID string, winnerSeatID int, amount float64) {
		completedSeat = winnerSeatID
		completedAmount = amount
	})

	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}},
		2: {{Suit_Heart, 4}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 4}))

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.True(t, st.HandCompleted)
	assert.Equal(t, float64(0), st.Pot)
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.False(t, st.WonByCombination)

	assert.Equal(t, float64(110), st.Seats[1].Stack)
	assert.Equal(t, float64(90), st.Seats[2].Stack)
	assert.Equal(t, float64(200), st.Seats[1].Stack+st.Seats[2].Stack)

	assert.Equal(t, 1, completedSeat)
	assert.Equal(t, float64(20), completedAmount)
	require.NotEmpty(t, st.WinMessages)
	assert.Contains(t, st.WinMessages[0], "alice wins $20.00")
	assert.Equal(t, SeatAction_Winner, st.Seats[1].LastAction)
	assert.Equal(t, 1, st.Seats[1].Statistics.HandsWon)
}

func TestShowCards_ThreeSevensEndsHandImmediately(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		2: {
			{Suit_Spade, 7},
			{Suit_Heart, 7},
			{Suit_Diamond, 7},
			{Suit_Club, 10},
			{Suit_Spade, 9},
		},
	})

	require.NoError(t, te.PlayerShowCards("p2"))

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.True(t, st.WonByCombination)
	assert.Equal(t, 2, st.LastWinningSeat)
	assert.Equal(t, float64(110), st.Seats[2].Stack)
	require.NotEmpty(t, st.WinMessages)
	assert.Contains(t, st.WinMessages[0], "three sevens")
	assert.Equal(t, 1, st.Seats[2].Statistics.CombinationWins)
}

func TestShowCards_NoCombinationJustReveals(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		2: {
			{Suit_Spade, 10},
			{Suit_Heart, 9},
			{Suit_Diamond, 8},
			{Suit_Club, 6},
			{Suit_Spade, 5},
		},
	})

	require.NoError(t, te.PlayerShowCards("p2"))

	st := te.table.State
	assert.False(t, st.HandOver)
	assert.True(t, st.Seats[2].ShowingCards)
}

func TestShowCards_AfterPlayingCannotWinByCombination(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}, {Suit_Club, 5}},
		2: {{Suit_Heart, 3}, {Suit_Spade, 10}},
	})

	// Seat 1's hand is broken by the play, so showing afterwards cannot
	// trigger a combination win even if the remainder qualified.
	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.NoError(t, te.PlayerShowCards("p1"))

	assert.False(t, te.table.State.HandOver)
}

func TestHandSettlement_KoratCollectsExtraAnte(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Spade, 3}},
		2: {{Suit_Heart, 4}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Spade, 3}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 4}))

	// Winning the last trick with a 3 collects one extra ante from everyone.
	st := te.table.State
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.Equal(t, float64(120), st.Seats[1].Stack)
	assert.Equal(t, float64(80), st.Seats[2].Stack)
	assert.Equal(t, float64(200), st.Seats[1].Stack+st.Seats[2].Stack)
	assert.Equal(t, 1, st.Seats[1].Statistics.KoratCollections)
	assert.Contains(t, st.GameNotifications, "korat! every player pays an extra ante")
}

func TestHandSettlement_ThirtyThreeCollectsDoubleAnte(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Spade, 3}, {Suit_Club, 3}},
		2: {{Suit_Heart, 5}, {Suit_Heart, 6}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Spade, 3}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 5}))
	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Club, 3}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 6}))

	// Two 3s back to back double the collection.
	st := te.table.State
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.Equal(t, float64(130), st.Seats[1].Stack)
	assert.Equal(t, float64(70), st.Seats[2].Stack)
	assert.Equal(t, 2, st.Seats[1].Statistics.KoratCollections)
	assert.Contains(t, st.GameNotifications, "33! every player pays a double ante")
}

func TestFullHand_FiveRoundsChipConservation(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Spade, 10}, {Suit_Heart, 10}, {Suit_Diamond, 10}, {Suit_Club, 10}, {Suit_Spade, 9}},
		2: {{Suit_Spade, 4}, {Suit_Heart, 4}, {Suit_Diamond, 4}, {Suit_Club, 4}, {Suit_Spade, 5}},
	})

	plays := [][2]Card{
		{{Suit_Spade, 10}, {Suit_Spade, 4}},
		{{Suit_Heart, 10}, {Suit_Heart, 4}},
		{{Suit_Diamond, 10}, {Suit_Diamond, 4}},
		{{Suit_Club, 10}, {Suit_Club, 4}},
		{{Suit_Spade, 9}, {Suit_Spade, 5}},
	}
	for i, round := range plays {
		require.Equal(t, i+1, te.table.State.RoundNumber)
		require.NoError(t, te.PlayerPlayCard("p1", round[0]))
		require.NoError(t, te.PlayerPlayCard("p2", round[1]))
	}

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.Equal(t, float64(110), st.Seats[1].Stack)
	assert.Equal(t, float64(90), st.Seats[2].Stack)
	assert.Equal(t, float64(0), st.Pot)
	assert.Equal(t, float64(200), st.Seats[1].Stack+st.Seats[2].Stack)
}

func TestDisconnect_MidTurnAdvancesWithoutTimer(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 3)
	require.NoError(t, te.StartHand())
	require.Equal(t, 1, te.table.State.Turn)

	require.NoError(t, te.PlayerDisconnect("p1"))

	st := te.table.State
	assert.Nil(t, st.Seats[1])
	assert.False(t, st.HandOver)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, float64(30), st.Pot)
}

func TestDisconnect_SoleRemainingHolderWinsPot(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())

	require.NoError(t, te.PlayerDisconnect("p2"))

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.Equal(t, float64(110), st.Seats[1].Stack)
	assert.Equal(t, float64(0), st.Pot)
}

func TestDisconnect_AfterFinalCardSettlesPot(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}},
		2: {{Suit_Heart, 4}},
	})

	// Seat 1 plays its last card; seat 2 leaves while due to answer the
	// trick. The played card decides the hand and the pot must still pay out.
	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.Equal(t, 2, te.table.State.Turn)
	require.NoError(t, te.PlayerStand("p2"))

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.Equal(t, float64(110), st.Seats[1].Stack)
	assert.Equal(t, float64(0), st.Pot)
}

func TestDisconnect_UnknownPlayerIsSilent(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	assert.NoError(t, te.PlayerDisconnect("ghost"))
}

func TestTurnTimeout_AutoPlaysForStalledSeat(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)

	autoPlayed := make([]int, 0, 2)
	te.OnAutoPlayed(func(tableID string, seatID int, card Card) {
		autoPlayed = append(autoPlayed, seatID)
	})

	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Spade, 9}},
		2: {{Suit_Spade, 4}},
	})

	te.handleTurnTimeout(1, te.turnEpoch)
	te.handleTurnTimeout(2, te.turnEpoch)

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.Equal(t, 1, st.LastWinningSeat)
	assert.Equal(t, []int{1, 2}, autoPlayed)
	assert.Equal(t, 1, st.Seats[1].Statistics.AutoPlayTimes)
	assert.Equal(t, 1, st.Seats[2].Statistics.AutoPlayTimes)
}

func TestTurnTimeout_AutoPlayFollowsDemandedSuit(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}, {Suit_Club, 5}},
		2: {{Suit_Heart, 3}, {Suit_Spade, 10}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	te.handleTurnTimeout(2, te.turnEpoch)

	// The forced card honors the demanded suit when the seat holds it.
	st := te.table.State
	require.Len(t, st.Seats[2].PlayedHand, 1)
	assert.Equal(t, Card{Suit_Heart, 3}, st.Seats[2].PlayedHand[0])
}

func TestTurnTimeout_StaleEpochDiscarded(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}, {Suit_Club, 5}},
		2: {{Suit_Heart, 3}, {Suit_Spade, 10}},
	})

	// An expiry scheduled before the last turn change must not act.
	te.handleTurnTimeout(1, te.turnEpoch-1)

	st := te.table.State
	assert.Empty(t, st.CurrentRoundCards)
	assert.Equal(t, 0, st.Seats[1].Statistics.AutoPlayTimes)
	assert.Equal(t, 1, st.Turn)
}

func TestTurnTimeout_AfterHandOverDiscarded(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}},
		2: {{Suit_Heart, 4}},
	})

	epoch := te.turnEpoch
	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 4}))
	require.True(t, te.table.State.HandOver)

	stackBefore := te.table.State.Seats[1].Stack
	te.handleTurnTimeout(1, epoch)
	assert.Equal(t, stackBefore, te.table.State.Seats[1].Stack)
}

func TestPlayerNextHandReady_ConcurrentConfirmsStartNextHand(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}},
		2: {{Suit_Heart, 4}},
	})
	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 4}))
	require.True(t, te.table.State.HandOver)

	// Both players confirm from their own goroutines while the ready group
	// may complete concurrently.
	var wg sync.WaitGroup
	for _, playerID := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			assert.NoError(t, te.PlayerNextHandReady(playerID))
		}(playerID)
	}
	wg.Wait()

	// The next hand deals well before the auto-ready interval elapses.
	require.Eventually(t, func() bool {
		te.lock.Lock()
		defer te.lock.Unlock()
		return te.table.State.CountHand == 2 && !te.table.State.HandOver
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlayerSitOut_DeferredUntilHandEnd(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 9}},
		2: {{Suit_Heart, 4}},
	})

	require.NoError(t, te.PlayerSitOut("p2"))
	seat := te.table.State.Seats[2]
	assert.False(t, seat.SittingOut)
	assert.True(t, seat.WantsSitout)

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 9}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 4}))

	assert.True(t, seat.SittingOut)
	assert.False(t, seat.WantsSitout)
}

func TestPlayerSitOut_ImmediateBetweenHands(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)

	require.NoError(t, te.PlayerSitOut("p2"))
	assert.True(t, te.table.State.Seats[2].SittingOut)

	require.NoError(t, te.PlayerSitIn("p2"))
	assert.False(t, te.table.State.Seats[2].SittingOut)
}

func TestLedger_SitAndStandMoveBankroll(t *testing.T) {
	ledger := newFakeLedger()
	te := newEngineWithPlayers(t, ledger, 2)

	assert.Equal(t, float64(100), ledger.debits["p1"])
	assert.Equal(t, float64(100), ledger.debits["p2"])

	require.NoError(t, te.PlayerRebuy("p1", 50))
	assert.Equal(t, float64(150), ledger.debits["p1"])
	assert.Equal(t, float64(150), te.table.State.Seats[1].Stack)

	require.NoError(t, te.PlayerStand("p1"))
	assert.Equal(t, float64(150), ledger.credits["p1"])
	assert.Nil(t, te.table.State.Seats[1])
}

func TestLedger_FailureDoesNotBlockSeating(t *testing.T) {
	ledger := newFakeLedger()
	ledger.fail = true

	engine := NewTableEngine(WithChipLedger(ledger))
	t.Cleanup(func() { _ = engine.ReleaseTable() })

	_, err := engine.CreateTable(TableSetting{TableID: "t1", Meta: NewDefaultTableMeta("test", 10)})
	require.NoError(t, err)

	err = engine.PlayerSit(PlayerInfo{ID: "p1", Name: "alice"}, 1, 100)
	assert.ErrorIs(t, err, ErrTableLedgerUnavailable)

	// The seat is taken regardless; the ledger catches up later.
	seat := engine.GetTable().State.Seats[1]
	require.NotNil(t, seat)
	assert.Equal(t, float64(100), seat.Stack)
}

func TestLedger_FailureNotificationRidesTheSitBroadcast(t *testing.T) {
	ledger := newFakeLedger()
	ledger.fail = true

	engine := NewTableEngine(WithChipLedger(ledger))
	t.Cleanup(func() { _ = engine.ReleaseTable() })

	var broadcast []string
	engine.OnTableUpdated(func(table *Table) {
		broadcast = append([]string(nil), table.State.GameNotifications...)
	})

	_, err := engine.CreateTable(TableSetting{TableID: "t1", Meta: NewDefaultTableMeta("test", 10)})
	require.NoError(t, err)

	err = engine.PlayerSit(PlayerInfo{ID: "p1", Name: "alice"}, 1, 100)
	require.ErrorIs(t, err, ErrTableLedgerUnavailable)

	// The pending-bankroll notice goes out with the sit event itself, not
	// with some later unrelated update.
	assert.Contains(t, broadcast, "bankroll update pending for this table")
}

func TestCloseTable_StopsPlay(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.CloseTable())
	assert.Equal(t, TableStateStatus_TableClosed, te.table.State.Status)

	// A closed engine ignores further start requests.
	require.NoError(t, te.StartHand())
	assert.True(t, te.table.State.HandOver)
	assert.Equal(t, TableStateStatus_TableClosed, te.table.State.Status)
}

func TestLastPlayerLeaving_ResetsTable(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())

	require.NoError(t, te.PlayerStand("p2"))
	require.NoError(t, te.PlayerStand("p1"))

	st := te.table.State
	assert.True(t, st.HandOver)
	assert.Equal(t, float64(0), st.Pot)
	assert.Equal(t, UnsetValue, st.Button)
	assert.Empty(t, te.table.OccupiedSeats())
}

func TestButton_MovesToPreviousWinner(t *testing.T) {
	te := newEngineWithPlayers(t, nil, 2)
	require.NoError(t, te.StartHand())
	giveHands(te, map[int][]Card{
		1: {{Suit_Heart, 4}},
		2: {{Suit_Heart, 9}},
	})

	require.NoError(t, te.PlayerPlayCard("p1", Card{Suit_Heart, 4}))
	require.NoError(t, te.PlayerPlayCard("p2", Card{Suit_Heart, 9}))
	require.Equal(t, 2, te.table.State.LastWinningSeat)

	require.NoError(t, te.StartHand())

	st := te.table.State
	assert.Equal(t, 2, st.Button)
	assert.Equal(t, 2, st.Turn)
	assert.Equal(t, 2, st.CountHand)
}

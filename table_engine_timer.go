package tricktable

import (
	"time"

	"github.com/golang/glog"
)

// The turn timer is single-flight: arming it cancels any pending task, and
// an expiry carries the epoch it was scheduled under. Any transition that
// changes whose turn it is bumps the epoch, so an expiry raced by a human
// action re-validates and discards itself instead of double-acting.

// startTurnTimer arms the auto-play fallback for the seat now holding the
// turn. No-op when the seat is empty or the hand is already over.
func (te *tableEngine) startTurnTimer(seatID int) {
	te.tbForTurn.Cancel()

	if te.table == nil || te.table.State.HandOver {
		return
	}
	if seat := te.table.State.Seats[seatID]; seat == nil {
		return
	}

	epoch := te.turnEpoch
	duration := time.Duration(te.table.Meta.ActionTime) * time.Second

	err := te.tbForTurn.NewTask(duration, func(isCancelled bool) {
		if isCancelled {
			return
		}
		te.handleTurnTimeout(seatID, epoch)
	})
	if err != nil {
		glog.Errorf("table %s: failed to arm turn timer for seat %d: %v", te.table.ID, seatID, err)
	}
}

func (te *tableEngine) clearTurnTimer() {
	te.tbForTurn.Cancel()
}

// handleTurnTimeout fires the auto-play decision. Everything is re-validated
// at fire time: the epoch, the hand, the seat and the turn may all have
// moved while the expiry waited on the lock. A stale expiry is not an error.
func (te *tableEngine) handleTurnTimeout(seatID int, epoch int64) {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.isReleased || te.table == nil {
		return
	}
	if epoch != te.turnEpoch {
		glog.V(2).Infof("table %s: discarding stale turn timer for seat %d", te.table.ID, seatID)
		return
	}

	st := te.table.State
	if st.HandOver || st.Turn != seatID {
		return
	}
	if seat := st.Seats[seatID]; seat == nil {
		return
	}

	te.autoPlay(seatID)
}

package tricktable

// SeatStatistics accumulates per-seat counters across hands while the seat
// stays occupied. They are informational only and never feed back into the
// rules.
type SeatStatistics struct {
	HandsPlayed      int `json:"hands_played"`
	HandsWon         int `json:"hands_won"`
	RoundsWon        int `json:"rounds_won"`
	CardsPlayed      int `json:"cards_played"`
	AutoPlayTimes    int `json:"auto_play_times"`
	CombinationWins  int `json:"combination_wins"`
	KoratCollections int `json:"korat_collections"`
}

func NewSeatStatistics() SeatStatistics {
	return SeatStatistics{}
}

package tricktable

type TableEngineCallbacks struct {
	OnTableUpdated      func(table *Table)
	OnTableErrorUpdated func(table *Table, err error)
	OnTurnChanged       func(tableID string, seatID int)
	OnAutoPlayed        func(tableID string, seatID int, card Card)
	OnHandCompleted     func(tableID string, winnerSeatID int, amount float64)
}

func NewTableEngineCallbacks() *TableEngineCallbacks {
	return &TableEngineCallbacks{
		OnTableUpdated:      func(table *Table) {},
		OnTableErrorUpdated: func(table *Table, err error) {},
		OnTurnChanged:       func(tableID string, seatID int) {},
		OnAutoPlayed:        func(tableID string, seatID int, card Card) {},
		OnHandCompleted:     func(tableID string, winnerSeatID int, amount float64) {},
	}
}

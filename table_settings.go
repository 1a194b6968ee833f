package tricktable

type TableMeta struct {
	Name             string  `json:"name"`
	Bet              float64 `json:"bet"` // ante posted per participant each hand
	IsPrivate        bool    `json:"is_private"`
	MaxSeatCount     int     `json:"max_seat_count"`
	MinPlayerCount   int     `json:"min_player_count"`
	ActionTime       int     `json:"action_time"`        // seconds before auto-play
	NextHandInterval int     `json:"next_hand_interval"` // seconds between hands
}

type TableSetting struct {
	TableID   string    `json:"table_id"`
	Meta      TableMeta `json:"table_meta"`
	CreatedAt int64     `json:"created_at"`
}

const (
	DefaultMaxSeatCount     = 4
	DefaultMinPlayerCount   = 2
	DefaultActionTime       = 30
	DefaultNextHandInterval = 5
)

// NewDefaultTableMeta returns table metadata with the standard timings:
// 30 seconds to act, 5 seconds between hands, four seats.
func NewDefaultTableMeta(name string, bet float64) TableMeta {
	return TableMeta{
		Name:             name,
		Bet:              bet,
		MaxSeatCount:     DefaultMaxSeatCount,
		MinPlayerCount:   DefaultMinPlayerCount,
		ActionTime:       DefaultActionTime,
		NextHandInterval: DefaultNextHandInterval,
	}
}

func (m TableMeta) normalized() TableMeta {
	if m.MaxSeatCount <= 0 {
		m.MaxSeatCount = DefaultMaxSeatCount
	}
	if m.MinPlayerCount < 2 {
		m.MinPlayerCount = DefaultMinPlayerCount
	}
	if m.ActionTime <= 0 {
		m.ActionTime = DefaultActionTime
	}
	if m.NextHandInterval <= 0 {
		m.NextHandInterval = DefaultNextHandInterval
	}
	return m
}

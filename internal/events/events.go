package events

// Table names a logical table of the shared store.
type Table string

const (
	TableRooms   Table = "rooms"
	TablePlayers Table = "players"
	TableVotes   Table = "votes"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpResync tells every subscriber that notifications may have been lost.
	OpResync Op = "resync"
)

// Change is a row-level change notification. RoomID is the room the row
// belongs to (the row's own id for the rooms table).
type Change struct {
	Table  Table  `json:"table"`
	Op     Op     `json:"op"`
	RoomID string `json:"room_id"`
	RowID  string `json:"row_id"`
}

// Filter is the equality predicate a subscription is scoped by.
type Filter struct {
	Table  Table
	RoomID string
}

func (f Filter) Match(c Change) bool {
	if c.Op == OpResync {
		return true
	}
	return c.Table == f.Table && c.RoomID == f.RoomID
}

type Bus struct {
	Changes chan Change
}

func NewBus() *Bus {
	return &Bus{
		Changes: make(chan Change, 64),
	}
}

func (b *Bus) Close() {
	close(b.Changes)
}

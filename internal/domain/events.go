package domain

type EventKind string

const (
	EventIntentCreated   EventKind = "book_intent_created"
	EventRoomBooked      EventKind = "room_booked"
	EventIntentRejected  EventKind = "book_intent_rejected"
	EventIntentCancelled EventKind = "book_intent_cancelled"
)

// Event is emitted once per affected date; batch calls emit one per date.
type Event struct {
	Kind   EventKind `json:"kind"`
	RoomID int64     `json:"room_id"`
	Date   Date      `json:"date"`
	Booker Address   `json:"booker"`
	Owner  Address   `json:"owner"`
	Price  int64     `json:"price"`
}

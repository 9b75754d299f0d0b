package domain

// MaxIntents caps the pending intents a single slot can hold.
const MaxIntents = 5

// Intent is a booker's funded, not-yet-settled claim on a slot. Price is
// snapshotted from the room at creation time and is immune to later price
// changes.
type Intent struct {
	Booker Address
	Price  int64
}

// Slot tracks one (room, date) pair. Intents keeps creation order.
// Once Booked is set the slot accepts no further intents.
type Slot struct {
	Booked  bool
	Intents []Intent
}

// IntentOf returns the index of booker's pending intent, or -1.
// At most one pending intent per booker exists on a slot.
func (s *Slot) IntentOf(booker Address) int {
	for i, in := range s.Intents {
		if in.Booker == booker {
			return i
		}
	}
	return -1
}

func (s *Slot) Full() bool { return len(s.Intents) == MaxIntents }

// Remove drops the intent at index i, preserving the order of the rest.
func (s *Slot) Remove(i int) {
	s.Intents = append(s.Intents[:i], s.Intents[i+1:]...)
}

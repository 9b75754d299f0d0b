package domain

// Address identifies an account: room owners, bookers, the fee receiver and
// the engine's own escrow account.
type Address string

// Room is a bookable unit. Price is per night in minor currency units.
// Removal is one-way: the id stays allocated and lookups keep observing
// Removed = true.
type Room struct {
	ID      int64   `json:"id"`
	Owner   Address `json:"owner"`
	Price   int64   `json:"price"`
	Removed bool    `json:"removed"`
}

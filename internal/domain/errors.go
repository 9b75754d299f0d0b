package domain

import "errors"

// Every engine call either fully applies or fails with one of these and no
// state change. Batch calls surface the first per-date failure.
var (
	// authorization
	ErrNotOwner = errors.New("caller is not the owner")

	// resource state
	ErrRoomNotCreated    = errors.New("room has not been created")
	ErrRoomRemoved       = errors.New("room has been removed")
	ErrRoomNotAvailable  = errors.New("room not available")
	ErrCannotBookOwnRoom = errors.New("cannot book your own room")

	// intent state
	ErrIntentAlreadyCreated = errors.New("intent already created")
	ErrIntentNotFound       = errors.New("intent not found")
	ErrMaxIntentsReached    = errors.New("max intents reached")

	// payment
	ErrPriceNotReached   = errors.New("price not reached")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidFeeRate    = errors.New("fee rate out of range")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// calendar
	ErrInvalidDate = errors.New("invalid date")
)

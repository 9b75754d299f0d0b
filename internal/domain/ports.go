package domain

import "context"

// Leg is one fund movement inside a multi-leg transfer.
type Leg struct {
	From   Address
	To     Address
	Amount int64
}

// Treasury is the funds-transfer primitive. Either call fully delivers or
// fails with no movement: TransferBatch commits every leg or none of them,
// even when a single recipient refuses payment. The engine treats any
// failure as a fatal abort of the enclosing operation.
type Treasury interface {
	Transfer(ctx context.Context, from, to Address, amount int64) error
	TransferBatch(ctx context.Context, legs []Leg) error
}

// EventSink receives domain events for observability and downstream indexing.
// Publish must not block the engine; slow sinks buffer or drop internally.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

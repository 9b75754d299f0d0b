package app

import (
	"context"

	"bnbooking/internal/domain"
)

// MultiSink fans one event out to several sinks in order.
type MultiSink []domain.EventSink

func (m MultiSink) Publish(ctx context.Context, ev domain.Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}

// SinkFunc adapts a function to the EventSink port.
type SinkFunc func(ctx context.Context, ev domain.Event)

func (f SinkFunc) Publish(ctx context.Context, ev domain.Event) { f(ctx, ev) }

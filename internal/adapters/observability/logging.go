package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"bnbooking/internal/domain"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env string) zerolog.Logger {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return l
}

// EventLogger is an EventSink that logs every domain event and feeds the
// booking-event counters.
type EventLogger struct{ l zerolog.Logger }

func NewEventLogger(l zerolog.Logger) *EventLogger { return &EventLogger{l: l} }

func (e *EventLogger) Publish(_ context.Context, ev domain.Event) {
	ObserveBookingEvent(string(ev.Kind))
	e.l.Info().
		Str("kind", string(ev.Kind)).
		Int64("room_id", ev.RoomID).
		Str("date", ev.Date.String()).
		Str("booker", string(ev.Booker)).
		Str("owner", string(ev.Owner)).
		Int64("price", ev.Price).
		Msg("booking_event")
}

package mysql

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"bnbooking/internal/domain"
)

// Journal persists domain events to MySQL. Writes happen on background
// goroutines so the engine never blocks on the database; the semaphore
// bounds how many inserts run at once and Publish drops the event when all
// workers are busy. A dropped or failed insert is logged, never retried:
// the journal is an index, not the ledger of record.
type Journal struct {
	db  *sql.DB
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewJournal(db *sql.DB, workers int) *Journal {
	if workers <= 0 {
		workers = 4
	}
	return &Journal{db: db, sem: semaphore.NewWeighted(int64(workers))}
}

// Migrate creates the journal table.
func (j *Journal) Migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, createEventsSQL)
	return err
}

func (j *Journal) Publish(_ context.Context, ev domain.Event) {
	if !j.sem.TryAcquire(1) {
		log.Warn().Str("kind", string(ev.Kind)).Int64("room_id", ev.RoomID).
			Msg("journal: workers saturated, event dropped")
		return
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.sem.Release(1)

		// Detached from the request context: the call that emitted the
		// event has already committed.
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := j.db.ExecContext(wctx, insertEventSQL,
			string(ev.Kind), ev.RoomID, ev.Date.Day, ev.Date.Month, ev.Date.Year,
			string(ev.Booker), string(ev.Owner), ev.Price,
		); err != nil {
			log.Error().Err(err).Str("kind", string(ev.Kind)).Int64("room_id", ev.RoomID).
				Msg("journal: insert failed")
		}
	}()
}

// EventsByRoom returns the journaled events for one room in append order.
func (j *Journal) EventsByRoom(ctx context.Context, roomID int64) ([]domain.Event, error) {
	rows, err := j.db.QueryContext(ctx, selectEventsByRoomSQL, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		var kind, booker, owner string
		if err := rows.Scan(&kind, &ev.RoomID, &ev.Date.Day, &ev.Date.Month, &ev.Date.Year,
			&booker, &owner, &ev.Price); err != nil {
			return nil, err
		}
		ev.Kind = domain.EventKind(kind)
		ev.Booker = domain.Address(booker)
		ev.Owner = domain.Address(owner)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close waits for in-flight inserts to finish.
func (j *Journal) Close() {
	j.wg.Wait()
}

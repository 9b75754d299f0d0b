package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"bnbooking/internal/domain"
)

// slotKey is the unit of exclusivity: one room on one calendar date.
type slotKey struct {
	roomID           int64
	day, month, year int
}

func keyFor(roomID int64, d domain.Date) slotKey {
	return slotKey{roomID: roomID, day: d.Day, month: d.Month, year: d.Year}
}

// Params wires the booking engine's collaborators. Cache may be nil; the
// engine then skips read-cache invalidation. IsAdmin gates the fee
// configuration calls.
type Params struct {
	Treasury domain.Treasury
	Events   domain.EventSink
	Cache    domain.Cache
	Escrow   domain.Address
	IsAdmin  func(domain.Address) bool
	Fee      domain.FeePolicy
}

// BookingService owns the room registry, the slot ledger and the escrow
// lifecycle. Calls are serialized under one mutex: each call observes the
// previous call's full effect or none of it.
type BookingService struct {
	mu sync.Mutex

	treasury domain.Treasury
	events   domain.EventSink
	cache    domain.Cache
	escrow   domain.Address
	isAdmin  func(domain.Address) bool

	fee        domain.FeePolicy
	rooms      map[int64]*domain.Room
	nextRoomID int64
	slots      map[slotKey]*domain.Slot
}

func NewBookingService(p Params) *BookingService {
	return &BookingService{
		treasury: p.Treasury,
		events:   p.Events,
		cache:    p.Cache,
		escrow:   p.Escrow,
		isAdmin:  p.IsAdmin,
		fee:      p.Fee,
		rooms:    map[int64]*domain.Room{},
		slots:    map[slotKey]*domain.Slot{},
	}
}

// ---- fee configuration (admin-gated) ----

func (s *BookingService) SetFeeReceiver(_ context.Context, caller, receiver domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAdmin(caller) {
		return domain.ErrNotOwner
	}
	s.fee.Receiver = receiver
	return nil
}

// SetFeeRate replaces the global fee rate. 1.0 means 100%. The change is not
// retroactive in the snapshot sense: pending intents keep their price, but
// settlement always splits against the rate current at settlement time.
func (s *BookingService) SetFeeRate(_ context.Context, caller domain.Address, rate decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAdmin(caller) {
		return domain.ErrNotOwner
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return domain.ErrInvalidFeeRate
	}
	s.fee.Rate = rate
	return nil
}

// ---- room registry ----

func (s *BookingService) CreateRoom(_ context.Context, caller domain.Address, price int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price <= 0 {
		return 0, domain.ErrInvalidPrice
	}
	id := s.nextRoomID
	s.nextRoomID++
	s.rooms[id] = &domain.Room{ID: id, Owner: caller, Price: price}
	return id, nil
}

func (s *BookingService) ChangePrice(ctx context.Context, caller domain.Address, roomID, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := s.liveRoom(roomID)
	if err != nil {
		return err
	}
	if room.Owner != caller {
		return domain.ErrNotOwner
	}
	if price <= 0 {
		return domain.ErrInvalidPrice
	}
	room.Price = price
	s.dropCache(ctx, roomCacheKey(roomID))
	return nil
}

func (s *BookingService) RemoveRoom(ctx context.Context, caller domain.Address, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := s.liveRoom(roomID)
	if err != nil {
		return err
	}
	if room.Owner != caller {
		return domain.ErrNotOwner
	}
	room.Removed = true
	s.dropCache(ctx, roomCacheKey(roomID))
	return nil
}

// liveRoom resolves a room that exists and has not been removed.
func (s *BookingService) liveRoom(roomID int64) (*domain.Room, error) {
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotCreated
	}
	if room.Removed {
		return nil, domain.ErrRoomRemoved
	}
	return room, nil
}

// ---- intent creation ----

func (s *BookingService) IntentBook(ctx context.Context, caller domain.Address, roomID int64, date domain.Date, payment int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !date.IsValid() {
		return domain.ErrInvalidDate
	}
	room, err := s.liveRoom(roomID)
	if err != nil {
		return err
	}
	if room.Owner == caller {
		return domain.ErrCannotBookOwnRoom
	}
	slot := s.slots[keyFor(roomID, date)]
	if slot != nil && slot.Booked {
		return domain.ErrRoomNotAvailable
	}
	if payment < room.Price {
		return domain.ErrPriceNotReached
	}
	if slot != nil {
		if slot.IntentOf(caller) >= 0 {
			return domain.ErrIntentAlreadyCreated
		}
		if slot.Full() {
			return domain.ErrMaxIntentsReached
		}
	}

	// Only the snapshotted price enters escrow; any excess never leaves the
	// caller's account.
	if err := s.treasury.Transfer(ctx, caller, s.escrow, room.Price); err != nil {
		return fmt.Errorf("lock funds: %w", err)
	}
	if slot == nil {
		slot = &domain.Slot{}
		s.slots[keyFor(roomID, date)] = slot
	}
	slot.Intents = append(slot.Intents, domain.Intent{Booker: caller, Price: room.Price})
	s.emit(ctx, domain.EventIntentCreated, roomID, date, caller, room.Owner, room.Price)
	return nil
}

func (s *BookingService) IntentBookBatch(ctx context.Context, caller domain.Address, roomID int64, start, end domain.Date, payment int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !start.IsValid() || !end.IsValid() {
		return domain.ErrInvalidDate
	}
	room, err := s.liveRoom(roomID)
	if err != nil {
		return err
	}
	if room.Owner == caller {
		return domain.ErrCannotBookOwnRoom
	}
	n := domain.SpanDays(start, end)
	if n == 0 {
		// Swapped range: a no-op, not an error.
		return nil
	}

	// Validate the whole range before touching anything: a single bad date
	// fails the entire call with that date's error.
	for date := range domain.Span(start, end) {
		slot := s.slots[keyFor(roomID, date)]
		if slot == nil {
			continue
		}
		if slot.Booked {
			return domain.ErrRoomNotAvailable
		}
		if slot.IntentOf(caller) >= 0 {
			return domain.ErrIntentAlreadyCreated
		}
		if slot.Full() {
			return domain.ErrMaxIntentsReached
		}
	}
	total := room.Price * int64(n)
	if payment < total {
		return domain.ErrPriceNotReached
	}

	if err := s.treasury.Transfer(ctx, caller, s.escrow, total); err != nil {
		return fmt.Errorf("lock funds: %w", err)
	}
	for date := range domain.Span(start, end) {
		k := keyFor(roomID, date)
		slot := s.slots[k]
		if slot == nil {
			slot = &domain.Slot{}
			s.slots[k] = slot
		}
		slot.Intents = append(slot.Intents, domain.Intent{Booker: caller, Price: room.Price})
		s.emit(ctx, domain.EventIntentCreated, roomID, date, caller, room.Owner, room.Price)
	}
	return nil
}

// ---- settlement ----

// ownedIntent resolves the pending intent for (roomID, date, booker) and
// authorizes caller as the room's owner. Both a missing intent and a
// non-owner caller surface as ErrIntentNotFound; the engine deliberately
// does not distinguish them.
func (s *BookingService) ownedIntent(caller domain.Address, roomID int64, booker domain.Address, date domain.Date) (*domain.Room, *domain.Slot, int, error) {
	room, ok := s.rooms[roomID]
	if !ok || room.Owner != caller {
		return nil, nil, 0, domain.ErrIntentNotFound
	}
	slot := s.slots[keyFor(roomID, date)]
	if slot == nil {
		return nil, nil, 0, domain.ErrIntentNotFound
	}
	i := slot.IntentOf(booker)
	if i < 0 {
		return nil, nil, 0, domain.ErrIntentNotFound
	}
	return room, slot, i, nil
}

func (s *BookingService) Accept(ctx context.Context, caller domain.Address, roomID int64, booker domain.Address, date domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !date.IsValid() {
		return domain.ErrInvalidDate
	}
	room, slot, i, err := s.ownedIntent(caller, roomID, booker, date)
	if err != nil {
		return err
	}
	// Payout plus every competing intent's refund commit as one unit; a
	// refused payment aborts with no funds moved and the slot untouched.
	legs := s.settlementLegs(room, slot.Intents[i])
	for j, in := range slot.Intents {
		if j == i {
			continue
		}
		legs = append(legs, domain.Leg{From: s.escrow, To: in.Booker, Amount: in.Price})
	}
	if err := s.treasury.TransferBatch(ctx, legs); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	for j, in := range slot.Intents {
		if j == i {
			continue
		}
		s.emit(ctx, domain.EventIntentRejected, roomID, date, in.Booker, room.Owner, in.Price)
	}
	price := slot.Intents[i].Price
	slot.Booked = true
	slot.Intents = nil
	s.emit(ctx, domain.EventRoomBooked, roomID, date, booker, room.Owner, price)
	s.dropCache(ctx, bookedCacheKey(roomID, date))
	return nil
}

func (s *BookingService) Reject(ctx context.Context, caller domain.Address, roomID int64, booker domain.Address, date domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !date.IsValid() {
		return domain.ErrInvalidDate
	}
	room, slot, i, err := s.ownedIntent(caller, roomID, booker, date)
	if err != nil {
		return err
	}
	in := slot.Intents[i]
	if err := s.treasury.Transfer(ctx, s.escrow, in.Booker, in.Price); err != nil {
		return fmt.Errorf("refund %s: %w", in.Booker, err)
	}
	slot.Remove(i)
	s.emit(ctx, domain.EventIntentRejected, roomID, date, in.Booker, room.Owner, in.Price)
	return nil
}

func (s *BookingService) Cancel(ctx context.Context, caller domain.Address, roomID int64, date domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.liveRoom(roomID); err != nil {
		return err
	}
	if !date.IsValid() {
		return domain.ErrInvalidDate
	}
	slot := s.slots[keyFor(roomID, date)]
	if slot == nil {
		return domain.ErrIntentNotFound
	}
	i := slot.IntentOf(caller)
	if i < 0 {
		return domain.ErrIntentNotFound
	}
	in := slot.Intents[i]
	if err := s.treasury.Transfer(ctx, s.escrow, in.Booker, in.Price); err != nil {
		return fmt.Errorf("refund %s: %w", in.Booker, err)
	}
	slot.Remove(i)
	s.emit(ctx, domain.EventIntentCancelled, roomID, date, in.Booker, s.rooms[roomID].Owner, in.Price)
	return nil
}

// settlementLegs prices one accepted intent against the current fee policy.
func (s *BookingService) settlementLegs(room *domain.Room, in domain.Intent) []domain.Leg {
	ownerShare, feeShare := s.fee.Split(in.Price)
	return []domain.Leg{
		{From: s.escrow, To: room.Owner, Amount: ownerShare},
		{From: s.escrow, To: s.fee.Receiver, Amount: feeShare},
	}
}

// AcceptBatch settles the booker's intent on every date of the inclusive
// range. Unlike single-date Accept it does not refund competing intents on
// those dates: they stay pending until rejected or cancelled individually.
// Downstream consumers rely on that, so it is kept exactly.
func (s *BookingService) AcceptBatch(ctx context.Context, caller domain.Address, roomID int64, booker domain.Address, start, end domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !start.IsValid() || !end.IsValid() {
		return domain.ErrInvalidDate
	}

	type match struct {
		date domain.Date
		slot *domain.Slot
		idx  int
	}
	var matches []match
	for date := range domain.Span(start, end) {
		_, slot, i, err := s.ownedIntent(caller, roomID, booker, date)
		if err != nil {
			return err
		}
		matches = append(matches, match{date: date, slot: slot, idx: i})
	}
	room := s.rooms[roomID]
	var legs []domain.Leg
	for _, m := range matches {
		legs = append(legs, s.settlementLegs(room, m.slot.Intents[m.idx])...)
	}
	if err := s.treasury.TransferBatch(ctx, legs); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	for _, m := range matches {
		price := m.slot.Intents[m.idx].Price
		m.slot.Booked = true
		m.slot.Remove(m.idx)
		s.emit(ctx, domain.EventRoomBooked, roomID, m.date, booker, room.Owner, price)
		s.dropCache(ctx, bookedCacheKey(roomID, m.date))
	}
	return nil
}

func (s *BookingService) RejectBatch(ctx context.Context, caller domain.Address, roomID int64, booker domain.Address, start, end domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !start.IsValid() || !end.IsValid() {
		return domain.ErrInvalidDate
	}

	type match struct {
		date domain.Date
		slot *domain.Slot
		idx  int
	}
	var matches []match
	for date := range domain.Span(start, end) {
		_, slot, i, err := s.ownedIntent(caller, roomID, booker, date)
		if err != nil {
			return err
		}
		matches = append(matches, match{date: date, slot: slot, idx: i})
	}
	room := s.rooms[roomID]
	legs := make([]domain.Leg, 0, len(matches))
	for _, m := range matches {
		in := m.slot.Intents[m.idx]
		legs = append(legs, domain.Leg{From: s.escrow, To: in.Booker, Amount: in.Price})
	}
	if err := s.treasury.TransferBatch(ctx, legs); err != nil {
		return fmt.Errorf("refund %s: %w", booker, err)
	}
	for _, m := range matches {
		price := m.slot.Intents[m.idx].Price
		m.slot.Remove(m.idx)
		s.emit(ctx, domain.EventIntentRejected, roomID, m.date, booker, room.Owner, price)
	}
	return nil
}

func (s *BookingService) CancelBatch(ctx context.Context, caller domain.Address, roomID int64, start, end domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := s.liveRoom(roomID)
	if err != nil {
		return err
	}
	if !start.IsValid() || !end.IsValid() {
		return domain.ErrInvalidDate
	}

	type match struct {
		date domain.Date
		slot *domain.Slot
		idx  int
	}
	var matches []match
	for date := range domain.Span(start, end) {
		slot := s.slots[keyFor(roomID, date)]
		if slot == nil {
			return domain.ErrIntentNotFound
		}
		i := slot.IntentOf(caller)
		if i < 0 {
			return domain.ErrIntentNotFound
		}
		matches = append(matches, match{date: date, slot: slot, idx: i})
	}
	legs := make([]domain.Leg, 0, len(matches))
	for _, m := range matches {
		in := m.slot.Intents[m.idx]
		legs = append(legs, domain.Leg{From: s.escrow, To: in.Booker, Amount: in.Price})
	}
	if err := s.treasury.TransferBatch(ctx, legs); err != nil {
		return fmt.Errorf("refund %s: %w", caller, err)
	}
	for _, m := range matches {
		price := m.slot.Intents[m.idx].Price
		m.slot.Remove(m.idx)
		s.emit(ctx, domain.EventIntentCancelled, roomID, m.date, caller, room.Owner, price)
	}
	return nil
}

// ---- reads ----

func (s *BookingService) Booked(_ context.Context, roomID int64, date domain.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slots[keyFor(roomID, date)]
	return slot != nil && slot.Booked
}

// GetRoom returns the room record, including removed rooms: the id stays
// allocated forever and callers observe Removed = true.
func (s *BookingService) GetRoom(_ context.Context, roomID int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotCreated
	}
	return *room, nil
}

// FeePolicy returns the current fee configuration.
func (s *BookingService) FeePolicy(_ context.Context) domain.FeePolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fee
}

// ---- internals ----

func (s *BookingService) emit(ctx context.Context, kind domain.EventKind, roomID int64, date domain.Date, booker, owner domain.Address, price int64) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, domain.Event{
		Kind:   kind,
		RoomID: roomID,
		Date:   date,
		Booker: booker,
		Owner:  owner,
		Price:  price,
	})
}

func (s *BookingService) dropCache(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, key)
}

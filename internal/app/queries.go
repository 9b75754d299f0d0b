package app

import (
	"context"
	"fmt"
	"time"

	"bnbooking/internal/domain"
)

func bookedCacheKey(roomID int64, d domain.Date) string {
	return fmt.Sprintf("booked:%d:%s", roomID, d)
}

func roomCacheKey(roomID int64) string {
	return fmt.Sprintf("room:%d", roomID)
}

// QueryService answers the read-only surface through the cache. The engine
// drops the affected keys whenever a settlement, price change or removal
// would make them stale.
type QueryService struct {
	engine   *BookingService
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(e *BookingService, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{engine: e, cache: c, cacheTTL: ttl}
}

func (s *QueryService) Booked(ctx context.Context, roomID int64, date domain.Date) (bool, error) {
	if !date.IsValid() {
		return false, domain.ErrInvalidDate
	}
	key := bookedCacheKey(roomID, date)
	var booked bool
	if ok, _ := s.cache.Get(ctx, key, &booked); ok {
		return booked, nil
	}
	booked = s.engine.Booked(ctx, roomID, date)
	_ = s.cache.Set(ctx, key, booked, int(s.cacheTTL.Seconds()))
	return booked, nil
}

func (s *QueryService) GetRoom(ctx context.Context, roomID int64) (domain.Room, error) {
	key := roomCacheKey(roomID)
	var room domain.Room
	if ok, _ := s.cache.Get(ctx, key, &room); ok {
		return room, nil
	}
	room, err := s.engine.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Set(ctx, key, room, int(s.cacheTTL.Seconds()))
	return room, nil
}

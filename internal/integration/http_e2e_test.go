package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	httpserver "bnbooking/internal/adapters/http_server"
	"bnbooking/internal/adapters/observability"
	redisad "bnbooking/internal/adapters/redis"
	"bnbooking/internal/adapters/treasury"
	"bnbooking/internal/app"
	"bnbooking/internal/domain"
)

var secret = []byte("e2e-secret")

// stack wires the full serving path: chi router, JWT auth, the booking
// engine, the account ledger and a real redis cache backed by miniredis.
type stack struct {
	ts   *httptest.Server
	bank *treasury.Bank
}

func newStack(t *testing.T) *stack {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)

	bank := treasury.New()
	svc := app.NewBookingService(app.Params{
		Treasury: bank,
		Events:   app.MultiSink{observability.NewEventLogger(observability.NewLogger("test"))},
		Cache:    cache,
		Escrow:   "escrow",
		IsAdmin:  func(a domain.Address) bool { return a == "admin" },
		Fee:      domain.FeePolicy{Rate: decimal.RequireFromString("0.5"), Receiver: "platform"},
	})

	srv := httpserver.New(1000)
	srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
	srv.MountHandlers(&httpserver.Handlers{
		Svc:  svc,
		Q:    app.NewQueryService(svc, cache, time.Minute),
		Bank: bank,
	}, secret)

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &stack{ts: ts, bank: bank}
}

func (s *stack) do(t *testing.T, as, method, path string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": as})
	signed, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res.StatusCode
}

func (s *stack) mustStatus(t *testing.T, want int, as, method, path string, body, out any) {
	t.Helper()
	if got := s.do(t, as, method, path, body, out); got != want {
		t.Fatalf("%s %s as %s: status %d, want %d", method, path, as, got, want)
	}
}

func date(day, month, year int) domain.Date { return domain.Date{Day: day, Month: month, Year: year} }

// TestWeekendBookingEndToEnd walks the whole protocol through HTTP: the
// owner lists a room, two guests compete for the same weekend, the owner
// accepts one and the loser is refunded by the single-date accept path.
func TestWeekendBookingEndToEnd(t *testing.T) {
	s := newStack(t)

	var created struct {
		ID int64 `json:"id"`
	}
	s.mustStatus(t, http.StatusCreated, "owner", "POST", "/v1/rooms", map[string]int64{"price": 1000}, &created)
	room := created.ID

	s.mustStatus(t, http.StatusOK, "alice", "POST", "/v1/accounts/deposit", map[string]int64{"amount": 10_000}, nil)
	s.mustStatus(t, http.StatusOK, "bob", "POST", "/v1/accounts/deposit", map[string]int64{"amount": 10_000}, nil)

	// both guests want Fri 4 Feb 2022
	friday := date(4, 2, 2022)
	intents := fmt.Sprintf("/v1/rooms/%d/intents", room)
	s.mustStatus(t, http.StatusCreated, "alice", "POST", intents, map[string]any{"date": friday, "payment": int64(1000)}, nil)
	s.mustStatus(t, http.StatusCreated, "bob", "POST", intents, map[string]any{"date": friday, "payment": int64(1000)}, nil)
	if got := s.bank.Balance("escrow"); got != 2000 {
		t.Fatalf("escrow = %d", got)
	}

	// the cache now holds the unbooked state; settlement must invalidate it
	bookedPath := fmt.Sprintf("/v1/rooms/%d/booked?day=4&month=2&year=2022", room)
	var booked struct {
		Booked bool `json:"booked"`
	}
	s.mustStatus(t, http.StatusOK, "alice", "GET", bookedPath, nil, &booked)
	if booked.Booked {
		t.Fatal("slot booked before settlement")
	}

	s.mustStatus(t, http.StatusNoContent, "owner", "POST", fmt.Sprintf("/v1/rooms/%d/accept", room),
		map[string]any{"booker": "alice", "date": friday}, nil)

	s.mustStatus(t, http.StatusOK, "alice", "GET", bookedPath, nil, &booked)
	if !booked.Booked {
		t.Fatal("slot not booked after settlement")
	}

	// alice paid, bob was refunded, owner and platform split the price
	if got := s.bank.Balance("alice"); got != 9000 {
		t.Fatalf("alice = %d", got)
	}
	if got := s.bank.Balance("bob"); got != 10_000 {
		t.Fatalf("bob = %d", got)
	}
	if got := s.bank.Balance("owner"); got != 500 {
		t.Fatalf("owner = %d", got)
	}
	if got := s.bank.Balance("platform"); got != 500 {
		t.Fatalf("platform = %d", got)
	}
	if got := s.bank.Balance("escrow"); got != 0 {
		t.Fatalf("escrow = %d", got)
	}

	// the weekend is gone for later callers
	s.mustStatus(t, http.StatusConflict, "carol", "POST", intents, map[string]any{"date": friday, "payment": int64(1000)}, nil)
}

// TestWeekBatchEndToEnd exercises the range endpoints: a whole week is
// reserved in one call, the owner accepts it in one call, and a second
// guest's overlapping batch fails atomically.
func TestWeekBatchEndToEnd(t *testing.T) {
	s := newStack(t)

	var created struct {
		ID int64 `json:"id"`
	}
	s.mustStatus(t, http.StatusCreated, "owner", "POST", "/v1/rooms", map[string]int64{"price": 1000}, &created)
	room := created.ID

	s.mustStatus(t, http.StatusOK, "alice", "POST", "/v1/accounts/deposit", map[string]int64{"amount": 10_000}, nil)
	s.mustStatus(t, http.StatusOK, "bob", "POST", "/v1/accounts/deposit", map[string]int64{"amount": 10_000}, nil)

	week := map[string]any{"start": date(7, 3, 2022), "end": date(13, 3, 2022), "payment": int64(7000)}
	s.mustStatus(t, http.StatusCreated, "alice", "POST", fmt.Sprintf("/v1/rooms/%d/intents/batch", room), week, nil)

	s.mustStatus(t, http.StatusNoContent, "owner", "POST", fmt.Sprintf("/v1/rooms/%d/accept/batch", room),
		map[string]any{"booker": "alice", "start": date(7, 3, 2022), "end": date(13, 3, 2022)}, nil)

	if got := s.bank.Balance("owner"); got != 3500 {
		t.Fatalf("owner = %d", got)
	}

	// bob's batch overlaps one booked night, so nothing is charged
	overlap := map[string]any{"start": date(12, 3, 2022), "end": date(15, 3, 2022), "payment": int64(4000)}
	s.mustStatus(t, http.StatusConflict, "bob", "POST", fmt.Sprintf("/v1/rooms/%d/intents/batch", room), overlap, nil)
	if got := s.bank.Balance("bob"); got != 10_000 {
		t.Fatalf("bob = %d after failed batch", got)
	}
}

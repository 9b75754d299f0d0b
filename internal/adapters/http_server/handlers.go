package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bnbooking/internal/adapters/observability"
	"bnbooking/internal/adapters/treasury"
	"bnbooking/internal/app"
	"bnbooking/internal/domain"
)

type Handlers struct {
	Svc  *app.BookingService
	Q    *app.QueryService
	Bank *treasury.Bank
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers, secret []byte) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Auth(secret))

		// rooms
		r.Post("/v1/rooms", h.createRoom)
		r.Get("/v1/rooms/{id}", h.getRoom)
		r.Patch("/v1/rooms/{id}/price", h.changePrice)
		r.Delete("/v1/rooms/{id}", h.removeRoom)
		r.Get("/v1/rooms/{id}/booked", h.booked)

		// intents
		r.Post("/v1/rooms/{id}/intents", h.intentBook)
		r.Post("/v1/rooms/{id}/intents/batch", h.intentBookBatch)

		// settlement
		r.Post("/v1/rooms/{id}/accept", h.accept)
		r.Post("/v1/rooms/{id}/accept/batch", h.acceptBatch)
		r.Post("/v1/rooms/{id}/reject", h.reject)
		r.Post("/v1/rooms/{id}/reject/batch", h.rejectBatch)
		r.Post("/v1/rooms/{id}/cancel", h.cancel)
		r.Post("/v1/rooms/{id}/cancel/batch", h.cancelBatch)

		// fee configuration (admin)
		r.Put("/v1/config/fee-rate", h.setFeeRate)
		r.Put("/v1/config/fee-receiver", h.setFeeReceiver)

		// accounts
		r.Post("/v1/accounts/deposit", h.deposit)
		r.Get("/v1/accounts/{addr}/balance", h.balance)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeErr maps the domain error taxonomy onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotOwner):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrRoomNotCreated), errors.Is(err, domain.ErrIntentNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrRoomRemoved),
		errors.Is(err, domain.ErrRoomNotAvailable),
		errors.Is(err, domain.ErrCannotBookOwnRoom),
		errors.Is(err, domain.ErrIntentAlreadyCreated),
		errors.Is(err, domain.ErrMaxIntentsReached):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrPriceNotReached), errors.Is(err, domain.ErrInsufficientFunds):
		writeProblem(w, http.StatusPaymentRequired, "Payment Required", err.Error())
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidFeeRate):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	a, ok := Account(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "no caller identity")
	}
	return a, ok
}

func roomID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

// ---- rooms ----

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	var body struct {
		Price int64 `json:"price"`
	}
	if !decode(w, r, &body) {
		return
	}
	id, err := h.Svc.CreateRoom(r.Context(), acct, body.Price)
	observability.ObserveBookingOp("create_room", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	room, err := h.Q.GetRoom(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *Handlers) changePrice(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body struct {
		Price int64 `json:"price"`
	}
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.ChangePrice(r.Context(), acct, id, body.Price)
	observability.ObserveBookingOp("change_price", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeRoom(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	err := h.Svc.RemoveRoom(r.Context(), acct, id)
	observability.ObserveBookingOp("remove_room", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) booked(w http.ResponseWriter, r *http.Request) {
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	day, _ := strconv.Atoi(q.Get("day"))
	month, _ := strconv.Atoi(q.Get("month"))
	year, _ := strconv.Atoi(q.Get("year"))
	booked, err := h.Q.Booked(r.Context(), id, domain.Date{Day: day, Month: month, Year: year})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"booked": booked})
}

// ---- intents ----

func (h *Handlers) intentBook(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body struct {
		Date    domain.Date `json:"date"`
		Payment int64       `json:"payment"`
	}
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.IntentBook(r.Context(), acct, id, body.Date, body.Payment)
	observability.ObserveBookingOp("intent_book", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) intentBookBatch(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body struct {
		Start   domain.Date `json:"start"`
		End     domain.Date `json:"end"`
		Payment int64       `json:"payment"`
	}
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.IntentBookBatch(r.Context(), acct, id, body.Start, body.End, body.Payment)
	observability.ObserveBookingOp("intent_book_batch", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ---- settlement ----

type settleReq struct {
	Booker domain.Address `json:"booker"`
	Date   domain.Date    `json:"date"`
}

type settleBatchReq struct {
	Booker domain.Address `json:"booker"`
	Start  domain.Date    `json:"start"`
	End    domain.Date    `json:"end"`
}

func (h *Handlers) accept(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body settleReq
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.Accept(r.Context(), acct, id, body.Booker, body.Date)
	observability.ObserveBookingOp("accept", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) acceptBatch(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body settleBatchReq
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.AcceptBatch(r.Context(), acct, id, body.Booker, body.Start, body.End)
	observability.ObserveBookingOp("accept_batch", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) reject(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body settleReq
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.Reject(r.Context(), acct, id, body.Booker, body.Date)
	observability.ObserveBookingOp("reject", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) rejectBatch(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body settleBatchReq
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.RejectBatch(r.Context(), acct, id, body.Booker, body.Start, body.End)
	observability.ObserveBookingOp("reject_batch", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body struct {
		Date domain.Date `json:"date"`
	}
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.Cancel(r.Context(), acct, id, body.Date)
	observability.ObserveBookingOp("cancel", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) cancelBatch(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var body struct {
		Start domain.Date `json:"start"`
		End   domain.Date `json:"end"`
	}
	if !decode(w, r, &body) {
		return
	}
	err := h.Svc.CancelBatch(r.Context(), acct, id, body.Start, body.End)
	observability.ObserveBookingOp("cancel_batch", err)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- fee configuration ----

func (h *Handlers) setFeeRate(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	var body struct {
		Rate string `json:"rate"`
	}
	if !decode(w, r, &body) {
		return
	}
	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "rate must be a decimal fraction")
		return
	}
	if err := h.Svc.SetFeeRate(r.Context(), acct, rate); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setFeeReceiver(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	var body struct {
		Receiver domain.Address `json:"receiver"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Receiver == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "receiver is required")
		return
	}
	if err := h.Svc.SetFeeReceiver(r.Context(), acct, body.Receiver); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- accounts ----

// deposit credits the caller's own account; top-ups stand in for the
// external payment rail.
func (h *Handlers) deposit(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	var body struct {
		Amount int64 `json:"amount"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := h.Bank.Deposit(acct, body.Amount); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": h.Bank.Balance(acct)})
}

func (h *Handlers) balance(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(chi.URLParam(r, "addr"))
	writeJSON(w, http.StatusOK, map[string]int64{"balance": h.Bank.Balance(addr)})
}

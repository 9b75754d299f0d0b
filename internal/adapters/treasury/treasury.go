// Package treasury is the in-process funds-transfer collaborator: a plain
// account ledger whose Transfer is atomic under one lock. The booking engine
// only sees the domain.Treasury port, so a payment processor or chain client
// can replace this without touching the engine.
package treasury

import (
	"context"
	"fmt"
	"sync"

	"bnbooking/internal/domain"
)

type Bank struct {
	mu       sync.Mutex
	accounts map[domain.Address]int64
}

func New() *Bank {
	return &Bank{accounts: map[domain.Address]int64{}}
}

// Deposit credits an account out of band (top-ups are not part of the
// booking protocol).
func (b *Bank) Deposit(addr domain.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit %d: %w", amount, domain.ErrInvalidPrice)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[addr] += amount
	return nil
}

// Transfer moves amount from one account to another, fully or not at all.
func (b *Bank) Transfer(_ context.Context, from, to domain.Address, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer %d: %w", amount, domain.ErrInvalidPrice)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accounts[from] < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from, b.accounts[from], amount, domain.ErrInsufficientFunds)
	}
	b.accounts[from] -= amount
	b.accounts[to] += amount
	return nil
}

// TransferBatch applies every leg or none, under one lock. Feasibility is
// judged on the final balances, so a leg may spend funds delivered by an
// earlier leg in the same batch.
func (b *Bank) TransferBatch(_ context.Context, legs []domain.Leg) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	deltas := map[domain.Address]int64{}
	for _, l := range legs {
		if l.Amount < 0 {
			return fmt.Errorf("transfer %d: %w", l.Amount, domain.ErrInvalidPrice)
		}
		deltas[l.From] -= l.Amount
		deltas[l.To] += l.Amount
	}
	for addr, d := range deltas {
		if b.accounts[addr]+d < 0 {
			return fmt.Errorf("%s has %d, needs %d: %w", addr, b.accounts[addr], -d, domain.ErrInsufficientFunds)
		}
	}
	for addr, d := range deltas {
		b.accounts[addr] += d
	}
	return nil
}

func (b *Bank) Balance(addr domain.Address) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[addr]
}

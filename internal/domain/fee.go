package domain

import "github.com/shopspring/decimal"

// FeePolicy holds the global settlement fee configuration. Rate is a
// fixed-point fraction where 1.0 means 100%. Unlike room prices, the policy
// is not snapshotted: settlement always uses the values current at
// settlement time.
type FeePolicy struct {
	Rate     decimal.Decimal
	Receiver Address
}

// Split divides amount between the room owner and the fee receiver.
// The fee share is floored; the remainder goes to the owner, so
// ownerShare + feeShare == amount always.
func (p FeePolicy) Split(amount int64) (ownerShare, feeShare int64) {
	feeShare = p.Rate.Mul(decimal.NewFromInt(amount)).Floor().IntPart()
	return amount - feeShare, feeShare
}

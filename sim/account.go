package sim

import "github.com/shopspring/decimal"

// Account is the simulated cash balance. It never goes below zero; every
// debit or realized P&L application is clamped rather than rejected.
type Account struct {
	balance decimal.Decimal
}

// BalanceChange is the before/after pair for one balance application.
type BalanceChange struct {
	Before float64
	After  float64
}

func (c BalanceChange) Delta() float64 {
	return decimal.NewFromFloat(c.After).Sub(decimal.NewFromFloat(c.Before)).InexactFloat64()
}

func NewAccount(endowment float64) *Account {
	a := &Account{}
	a.Reset(endowment)
	return a
}

func (a *Account) Balance() float64 {
	return a.balance.InexactFloat64()
}

// ApplyRealizedPnL adds amount and clamps the result at zero.
func (a *Account) ApplyRealizedPnL(amount float64) BalanceChange {
	before := a.balance
	a.balance = clampCents(before.Add(decimal.NewFromFloat(amount)))
	return BalanceChange{Before: before.InexactFloat64(), After: a.balance.InexactFloat64()}
}

// Debit subtracts amount and clamps the result at zero.
func (a *Account) Debit(amount float64) BalanceChange {
	return a.ApplyRealizedPnL(-amount)
}

func (a *Account) Reset(endowment float64) {
	a.balance = clampCents(decimal.NewFromFloat(endowment))
}

func clampCents(d decimal.Decimal) decimal.Decimal {
	d = d.Round(2)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

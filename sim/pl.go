package sim

import "github.com/shopspring/decimal"

// UnrealizedPL is (price - entry) * quantity * sign, rounded to cents.
func UnrealizedPL(p Position, price float64) float64 {
	move := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(p.EntryPrice))
	pl := move.Mul(decimal.NewFromFloat(p.Quantity)).Mul(decimal.NewFromFloat(p.Side.Sign()))
	return pl.Round(2).InexactFloat64()
}

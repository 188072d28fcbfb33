package risk

import "math"

// PlannedRisk is the cash lost if a position of quantity opened at entry
// is stopped out at stop.
func PlannedRisk(quantity, entry, stop float64) float64 {
	return math.Abs(entry-stop) * quantity
}

// PlannedReward is the cash gained if the position reaches target.
func PlannedReward(quantity, entry, target float64) float64 {
	return math.Abs(target-entry) * quantity
}

// RR is the reward to risk ratio of a bracket. Zero when there is no risk.
func RR(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

// RiskPct is plannedRisk as a fraction of balance. An empty balance has
// unbounded risk.
func RiskPct(plannedRisk, balance float64) float64 {
	if balance <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / balance
}

// Bracket summarizes the take-profit / stop-loss of an order.
type Bracket struct {
	Risk    float64
	Reward  float64
	RR      float64
	RiskPct float64
}

// Assess computes a Bracket. target and stop may be nil; missing legs
// leave their fields zero.
func Assess(quantity, entry float64, target, stop *float64, balance float64) Bracket {
	var b Bracket
	if stop != nil {
		b.Risk = PlannedRisk(quantity, entry, *stop)
		b.RiskPct = RiskPct(b.Risk, balance)
	}
	if target != nil {
		b.Reward = PlannedReward(quantity, entry, *target)
	}
	if stop != nil && target != nil {
		b.RR = RR(entry, *stop, *target)
	}
	return b
}

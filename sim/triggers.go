package sim

import "github.com/rustyeddy/demotrader/market"

func hitTarget(p *Position, price float64) bool {
	if p.Target == nil {
		return false
	}
	if p.Side == market.Long {
		return price >= *p.Target
	}
	return price <= *p.Target
}

func hitStop(p *Position, price float64) bool {
	if p.Stop == nil {
		return false
	}
	if p.Side == market.Long {
		return price <= *p.Stop
	}
	return price >= *p.Stop
}

// trigger reports which exit, if any, price breaches. Target is checked
// before stop, so a misconfigured position that satisfies both closes once,
// at target.
func trigger(p *Position, price float64) (CloseReason, bool) {
	switch {
	case hitTarget(p, price):
		return ReasonTarget, true
	case hitStop(p, price):
		return ReasonStop, true
	}
	return "", false
}

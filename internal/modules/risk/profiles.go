// Package risk defines the canonical risk profiles and their position-sizing
// and stop-loss parameters.
package risk

import (
	"fmt"
)

// Cadence is the rebalancing interval associated with a profile.
type Cadence string

const (
	CadenceMonthly  Cadence = "monthly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceDaily    Cadence = "daily"
)

// Profile is an immutable bundle of per-profile risk parameters.
type Profile struct {
	Name           string  `json:"name"`
	TargetReturn   string  `json:"target_return"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxPositionPct float64 `json:"max_position_pct"`
	StopLossPct    float64 `json:"stop_loss_pct"`
	Rebalance      Cadence `json:"rebalance"`
}

// RebalanceBars maps the profile cadence to a bar count for daily-bar
// simulations: monthly=21, biweekly=10, daily=1 trading days.
func (p Profile) RebalanceBars() int {
	switch p.Rebalance {
	case CadenceMonthly:
		return 21
	case CadenceDaily:
		return 1
	default:
		return 10
	}
}

// profiles holds the three canonical profiles. Values are fixed; selection is
// by name only.
var profiles = map[string]Profile{
	"conservative": {
		Name:           "conservative",
		TargetReturn:   "8-12%",
		MaxDrawdown:    0.05,
		MaxPositionPct: 0.02,
		StopLossPct:    0.03,
		Rebalance:      CadenceMonthly,
	},
	"balanced": {
		Name:           "balanced",
		TargetReturn:   "15-25%",
		MaxDrawdown:    0.12,
		MaxPositionPct: 0.05,
		StopLossPct:    0.07,
		Rebalance:      CadenceBiweekly,
	},
	"aggressive": {
		Name:           "aggressive",
		TargetReturn:   "30%+",
		MaxDrawdown:    0.20,
		MaxPositionPct: 0.08,
		StopLossPct:    0.15,
		Rebalance:      CadenceDaily,
	},
}

// Lookup resolves a profile by name and fails hard on unknown names. This is
// the top-level entry point used when a simulation or runner is constructed.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown risk profile %q", name)
	}
	return p, nil
}

// LookupOrBalanced resolves a profile by name, silently substituting the
// balanced profile for unrecognized names. Interior call sites that only need
// a weight cap use this; construction-time resolution goes through Lookup,
// which fails hard instead.
func LookupOrBalanced(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles["balanced"]
}

// Names returns the known profile names.
func Names() []string {
	return []string{"conservative", "balanced", "aggressive"}
}

// All returns the canonical profiles in a stable order.
func All() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, name := range Names() {
		out = append(out, profiles[name])
	}
	return out
}

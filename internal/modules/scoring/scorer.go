// Package scoring ranks symbols by technical signal strength. The scorer is a
// deliberately simple momentum/RSI/trend blend; it exists to feed the
// rebalancer a ranked candidate list and can be swapped for any collaborator
// that produces (symbol, score) pairs.
package scoring

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/domain"
	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/pkg/formulas"
)

// SignalType is a discrete trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Signal is the scored outcome for one symbol.
type Signal struct {
	Symbol     string     `json:"symbol"`
	Action     SignalType `json:"signal"`
	Confidence float64    `json:"confidence"` // 0..1
}

const (
	defaultLookback = 60
	momentumDays    = 20
	rsiPeriod       = 14
	trendSMAPeriod  = 20

	buyThreshold  = 0.55
	sellThreshold = 0.45
)

// Scorer computes technical signals from OHLCV history.
type Scorer struct {
	lookback int
	log      zerolog.Logger
}

// NewScorer creates a scorer with the default 60-bar lookback.
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{
		lookback: defaultLookback,
		log:      log.With().Str("service", "scoring").Logger(),
	}
}

// Signal computes the signal for one symbol from its bar history.
// Symbols with no usable history come back as HOLD with neutral confidence.
func (s *Scorer) Signal(symbol string, bars []domain.Bar) Signal {
	closes := domain.Closes(bars)
	if len(closes) > s.lookback {
		closes = closes[len(closes)-s.lookback:]
	}

	strength := s.strength(closes)

	action := SignalHold
	switch {
	case strength > buyThreshold:
		action = SignalBuy
	case strength < sellThreshold:
		action = SignalSell
	}

	// Confidence grows with distance from the neutral midpoint but never
	// drops below the 0.5 baseline of an uninformed model.
	conf := (strength - 0.5) * 2
	if conf < 0 {
		conf = -conf
	}
	if conf < 0.5 {
		conf = 0.5
	}
	if conf > 1 {
		conf = 1
	}

	return Signal{Symbol: symbol, Action: action, Confidence: conf}
}

// strength blends momentum, RSI and SMA trend into a [0,1] score centered
// at 0.5.
func (s *Scorer) strength(closes []float64) float64 {
	tilt := 0.0

	if m := formulas.CalculateMomentum(closes, momentumDays); m != nil {
		mm := *m
		if mm > 0.3 {
			mm = 0.3
		}
		if mm < -0.3 {
			mm = -0.3
		}
		tilt += mm
	}

	if r := formulas.CalculateRSI(closes, rsiPeriod); r != nil {
		// Oversold boosts, overbought dampens: +-0.1 across the RSI range.
		tilt += (50.0 - *r) / 500.0
	}

	if sma := formulas.CalculateSMA(closes, trendSMAPeriod); sma != nil && *sma > 0 && len(closes) > 0 {
		if closes[len(closes)-1] >= *sma {
			tilt += 0.05
		} else {
			tilt -= 0.05
		}
	}

	strength := 0.5 + tilt
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return strength
}

// ScoreUniverse scores every symbol and returns candidates sorted by score
// descending. HOLD signals score at half confidence and BUY signals get a
// small tie-break bonus so actionable names rank first.
func (s *Scorer) ScoreUniverse(symbols []string, bars map[string][]domain.Bar) []rebalancing.Candidate {
	out := make([]rebalancing.Candidate, 0, len(symbols))
	for _, sym := range symbols {
		sig := s.Signal(sym, bars[sym])

		val := sig.Confidence
		if sig.Action == SignalHold {
			val *= 0.5
		}
		if sig.Action == SignalBuy {
			val += 0.05
		}
		out = append(out, rebalancing.Candidate{Symbol: sym, Score: val})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

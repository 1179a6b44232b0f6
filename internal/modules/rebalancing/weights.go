package rebalancing

import "sort"

// Candidate is one entry of a ranked score list, descending by score.
type Candidate struct {
	Symbol string
	Score  float64
}

// WeightedPick is a candidate with its assigned target weight.
type WeightedPick struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// TargetAllocation maps symbol to a non-negative relative weight. It is a
// transient input to a single rebalance pass and is never persisted.
type TargetAllocation map[string]float64

// WeightMode selects how a ranked score list is converted into weights.
type WeightMode string

const (
	// WeightEqual assigns 1/N across the top-N candidates.
	WeightEqual WeightMode = "equal"
	// WeightScore assigns weights proportional to non-negative scores.
	// If all scores are non-positive it falls back to equal weighting.
	WeightScore WeightMode = "score"
)

// ComputeWeights converts a ranked score list into weighted picks over the
// top-N candidates.
func ComputeWeights(ranked []Candidate, topN int, mode WeightMode) []WeightedPick {
	if topN < 0 {
		topN = 0
	}
	if topN > len(ranked) {
		topN = len(ranked)
	}
	picks := ranked[:topN]
	if len(picks) == 0 {
		return []WeightedPick{}
	}

	out := make([]WeightedPick, 0, len(picks))

	if mode == WeightScore {
		sum := 0.0
		for _, c := range picks {
			if c.Score > 0 {
				sum += c.Score
			}
		}
		if sum > 0 {
			for _, c := range picks {
				w := 0.0
				if c.Score > 0 {
					w = c.Score / sum
				}
				out = append(out, WeightedPick{Symbol: c.Symbol, Score: c.Score, Weight: w})
			}
			return out
		}
		// all scores non-positive: equal weight
	}

	w := 1.0 / float64(len(picks))
	for _, c := range picks {
		out = append(out, WeightedPick{Symbol: c.Symbol, Score: c.Score, Weight: w})
	}
	return out
}

// Targets converts weighted picks into a target allocation. Later entries for
// a duplicated symbol overwrite earlier ones.
func Targets(picks []WeightedPick) TargetAllocation {
	targets := make(TargetAllocation, len(picks))
	for _, p := range picks {
		targets[p.Symbol] = p.Weight
	}
	return targets
}

// NormalizeAndCap produces the effective allocation for one rebalance pass:
// raw weights are clamped to non-negative and rescaled to sum to exactly 1
// (an all-zero input stays all-zero), then each weight is capped at
// maxPositionPct. If the capped total still exceeds 1 the whole set is
// uniformly rescaled down. After capping, weights are never rescaled back up:
// residual cash from binding caps is expected and acceptable.
func NormalizeAndCap(raw TargetAllocation, maxPositionPct float64) TargetAllocation {
	total := 0.0
	for _, w := range raw {
		if w > 0 {
			total += w
		}
	}

	norm := 0.0
	if total > 0 {
		norm = 1.0 / total
	}

	capped := make(TargetAllocation, len(raw))
	cappedSum := 0.0
	for sym, w := range raw {
		if w < 0 {
			w = 0
		}
		w *= norm
		if w > maxPositionPct {
			w = maxPositionPct
		}
		capped[sym] = w
		cappedSum += w
	}

	if cappedSum > 1.0 {
		scale := 1.0 / cappedSum
		for sym := range capped {
			capped[sym] *= scale
		}
	}

	return capped
}

// sortedSymbols returns map keys in lexical order so trade sequencing is
// deterministic across runs.
func sortedSymbols[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

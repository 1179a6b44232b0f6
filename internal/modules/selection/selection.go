// Package selection turns scored candidates into a capped, weighted pick
// list and persists pick lists as timestamped CSV files so that live
// rebalancing runs can consume the most recent selection.
package selection

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/modules/rebalancing"
	"github.com/aristath/foliosim/internal/modules/risk"
)

// Pick is one selected symbol with its score-proportional weight and,
// when an equity figure was supplied, the dollar allocation implied by it.
type Pick struct {
	Symbol       string
	Score        float64
	Weight       float64
	AllocDollars float64
	LastPrice    float64
	Timestamp    time.Time
}

// Service builds and persists pick lists.
type Service struct {
	dir string
	log zerolog.Logger
}

// NewService creates a selection service writing picks under dir.
func NewService(dir string, log zerolog.Logger) *Service {
	return &Service{
		dir: dir,
		log: log.With().Str("service", "selection").Logger(),
	}
}

// BuildPicks converts ranked candidates into weighted picks. At most
// maxHoldings candidates are kept (the highest scored), weights are assigned
// per mode (equal or score-proportional) and each is then capped at the
// profile's max position size without rescaling the rest up. When equity > 0
// each pick also carries its dollar allocation and last known price.
func (s *Service) BuildPicks(candidates []rebalancing.Candidate, profile risk.Profile, maxHoldings int, mode rebalancing.WeightMode, equity float64, prices map[string]float64) []Pick {
	if len(candidates) == 0 {
		return nil
	}
	if maxHoldings <= 0 {
		maxHoldings = len(candidates)
	}

	ranked := make([]rebalancing.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	weighted := rebalancing.ComputeWeights(ranked, maxHoldings, mode)

	now := time.Now().UTC()
	picks := make([]Pick, 0, len(weighted))
	for _, w := range weighted {
		weight := w.Weight
		if weight > profile.MaxPositionPct {
			weight = profile.MaxPositionPct
		}
		p := Pick{
			Symbol:    w.Symbol,
			Score:     w.Score,
			Weight:    weight,
			LastPrice: prices[w.Symbol],
			Timestamp: now,
		}
		if equity > 0 {
			p.AllocDollars = equity * weight
		}
		picks = append(picks, p)
	}
	return picks
}

// Save writes picks to a timestamped CSV in the picks directory and
// returns the file path.
func (s *Service) Save(picks []Pick) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create picks directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("picks_%s.csv", time.Now().UTC().Format("20060102_150405")))
	if err := WritePicksCSV(path, picks); err != nil {
		return "", err
	}
	s.log.Info().Str("path", path).Int("count", len(picks)).Msg("Saved picks")
	return path, nil
}

// LatestPicksFile returns the path of the newest picks file, or "" when
// none exist.
func (s *Service) LatestPicksFile() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list picks: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "picks_") && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	// Timestamped names sort lexicographically in time order.
	sort.Strings(names)
	return filepath.Join(s.dir, names[len(names)-1]), nil
}

// LoadLatest reads the newest picks file. No picks on disk is an empty
// result, not an error.
func (s *Service) LoadLatest() ([]Pick, error) {
	path, err := s.LatestPicksFile()
	if err != nil || path == "" {
		return nil, err
	}
	return ReadPicksCSV(path)
}

// WritePicksCSV writes a pick list to path.
func WritePicksCSV(path string, picks []Pick) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create picks file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"symbol", "score", "weight", "alloc_dollars", "last_price", "timestamp"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write picks header: %w", err)
	}
	for _, p := range picks {
		row := []string{
			p.Symbol,
			strconv.FormatFloat(p.Score, 'f', 6, 64),
			strconv.FormatFloat(p.Weight, 'f', 6, 64),
			strconv.FormatFloat(p.AllocDollars, 'f', 2, 64),
			strconv.FormatFloat(p.LastPrice, 'f', 4, 64),
			p.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write picks row: %w", err)
		}
	}
	return w.Error()
}

// ReadPicksCSV reads a pick list written by WritePicksCSV. Rows with an
// unparseable weight are skipped.
func ReadPicksCSV(path string) ([]Pick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open picks file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read picks file: %w", err)
	}

	var picks []Pick
	for i, rec := range records {
		if i == 0 || len(rec) < 3 {
			continue
		}
		weight, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			continue
		}
		p := Pick{Symbol: rec[0], Weight: weight}
		p.Score, _ = strconv.ParseFloat(rec[1], 64)
		if len(rec) > 3 {
			p.AllocDollars, _ = strconv.ParseFloat(rec[3], 64)
		}
		if len(rec) > 4 {
			p.LastPrice, _ = strconv.ParseFloat(rec[4], 64)
		}
		if len(rec) > 5 {
			p.Timestamp, _ = time.Parse(time.RFC3339, rec[5])
		}
		picks = append(picks, p)
	}
	return picks, nil
}

// Allocation converts picks into the raw weight map consumed by the
// rebalancer.
func Allocation(picks []Pick) rebalancing.TargetAllocation {
	alloc := make(rebalancing.TargetAllocation, len(picks))
	for _, p := range picks {
		alloc[p.Symbol] = p.Weight
	}
	return alloc
}

package historical

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/aristath/foliosim/internal/domain"
)

// LoadBarsCSV reads an OHLCV series from a CSV export with a
// ts,open,high,low,close,volume header. Rows with unparseable numbers are
// skipped rather than failing the whole file; upstream exports frequently
// contain blank volume cells.
func LoadBarsCSV(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bars csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read bars csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := indexColumns(records[0])
	bars := make([]domain.Bar, 0, len(records)-1)

	for _, rec := range records[1:] {
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(rec) {
				return ""
			}
			return rec[idx]
		}

		closePx, err := strconv.ParseFloat(get("close"), 64)
		if err != nil {
			continue
		}

		b := domain.Bar{
			Date:  get("ts"),
			Close: closePx,
		}
		b.Open, _ = strconv.ParseFloat(get("open"), 64)
		b.High, _ = strconv.ParseFloat(get("high"), 64)
		b.Low, _ = strconv.ParseFloat(get("low"), 64)
		b.Volume, _ = strconv.ParseFloat(get("volume"), 64)

		bars = append(bars, b)
	}

	return bars, nil
}

// SaveBarsCSV writes an OHLCV series in the same ts,open,high,low,close,volume
// layout that LoadBarsCSV reads.
func SaveBarsCSV(path string, bars []domain.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bars csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ts", "open", "high", "low", "close", "volume"}); err != nil {
		return fmt.Errorf("failed to write bars csv header: %w", err)
	}

	for _, b := range bars {
		rec := []string{
			b.Date,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write bar row: %w", err)
		}
	}

	return w.Error()
}

func indexColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

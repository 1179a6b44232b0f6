// Package universe manages named symbol lists. A universe is a CSV file
// (one `symbol` column) in the universes directory, selected by name.
package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Repository reads and writes universe files.
type Repository struct {
	dir string
	log zerolog.Logger
}

// NewRepository creates a universe repository rooted at dir.
func NewRepository(dir string, log zerolog.Logger) *Repository {
	return &Repository{
		dir: dir,
		log: log.With().Str("repo", "universe").Logger(),
	}
}

// Load returns the symbols of a named universe, in file order. A missing
// universe is an empty list, not an error; callers treat it as "nothing to
// trade".
func (r *Repository) Load(name string) ([]string, error) {
	path := r.path(name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Debug().Str("universe", name).Msg("Universe file not found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open universe %s: %w", name, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read universe %s: %w", name, err)
	}

	var out []string
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		sym := strings.TrimSpace(rec[0])
		if sym == "" || (i == 0 && strings.EqualFold(sym, "symbol")) {
			continue
		}
		out = append(out, sym)
	}
	return out, nil
}

// Save writes a universe file, overwriting any existing list of that name.
func (r *Repository) Save(name string, symbols []string) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create universes directory: %w", err)
	}

	f, err := os.Create(r.path(name))
	if err != nil {
		return fmt.Errorf("failed to create universe %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"symbol"}); err != nil {
		return fmt.Errorf("failed to write universe header: %w", err)
	}
	for _, sym := range symbols {
		if err := w.Write([]string{sym}); err != nil {
			return fmt.Errorf("failed to write universe row: %w", err)
		}
	}
	return w.Error()
}

// List returns the names of all stored universes.
func (r *Repository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list universes: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".csv"))
	}
	return names, nil
}

func (r *Repository) path(name string) string {
	return filepath.Join(r.dir, name+".csv")
}

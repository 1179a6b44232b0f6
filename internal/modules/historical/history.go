// Package historical reads locally cached OHLCV price history. Two backends
// exist: per-symbol SQLite files and plain CSV exports. Market-data retrieval
// itself lives outside this system; whatever fetches bars is expected to
// deposit them in one of these two forms.
package historical

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/domain"
)

// HistoryDB provides access to per-symbol historical price databases.
// Each symbol lives in its own <SYMBOL>.db file under historyDir with a
// daily_prices table.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// GetDailyBars fetches up to limit daily bars for a symbol, oldest first.
// A non-positive limit returns the full history.
func (h *HistoryDB) GetDailyBars(symbol string, limit int) ([]domain.Bar, error) {
	db, err := h.openHistoryDB(symbol)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if limit <= 0 {
		// SQLite treats a negative LIMIT as unlimited.
		limit = -1
	}

	query := `
		SELECT date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var volume sql.NullFloat64

		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		if volume.Valid {
			b.Volume = volume.Float64
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Query is newest-first for the LIMIT; callers want oldest-first.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return bars, nil
}

// GetLatestClose returns the most recent closing price for a symbol, or an
// error if no history exists.
func (h *HistoryDB) GetLatestClose(symbol string) (float64, error) {
	bars, err := h.GetDailyBars(symbol, 1)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no price history for %s", symbol)
	}
	return bars[0].Close, nil
}

// LatestCloses returns the most recent close per symbol. Symbols without
// history are skipped, not errors: the valuation layer degrades to average
// cost for missing quotes.
func (h *HistoryDB) LatestCloses(symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		px, err := h.GetLatestClose(sym)
		if err != nil {
			h.log.Debug().Str("symbol", sym).Err(err).Msg("No cached price, skipping symbol")
			continue
		}
		if px > 0 {
			prices[sym] = px
		}
	}
	return prices
}

// SaveDailyBars upserts bars for a symbol, creating the per-symbol database
// and schema on first use.
func (h *HistoryDB) SaveDailyBars(symbol string, bars []domain.Bar) error {
	db, err := h.openHistoryDB(symbol)
	if err != nil {
		return err
	}
	defer db.Close()

	schema := `
		CREATE TABLE IF NOT EXISTS daily_prices (
			date TEXT PRIMARY KEY,
			open_price REAL,
			high_price REAL,
			low_price REAL,
			close_price REAL,
			volume REAL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure daily_prices schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (date, open_price, high_price, low_price, close_price, volume)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			open_price = excluded.open_price,
			high_price = excluded.high_price,
			low_price = excluded.low_price,
			close_price = excluded.close_price,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to upsert bar %s/%s: %w", symbol, b.Date, err)
		}
	}

	return tx.Commit()
}

// openHistoryDB opens the per-symbol database file.
func (h *HistoryDB) openHistoryDB(symbol string) (*sql.DB, error) {
	safe := strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
	path := filepath.Join(h.historyDir, safe+".db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db for %s: %w", symbol, err)
	}
	return db, nil
}

// Package state persists portfolio state between runs: the current
// cash/position snapshot, the equity log, the trade audit trail, and a
// msgpack-encoded snapshot history for point-in-time inspection.
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/foliosim/internal/database"
	"github.com/aristath/foliosim/internal/modules/ledger"
)

// Snapshot is the persisted portfolio state.
type Snapshot struct {
	Cash      float64                    `msgpack:"cash"`
	Positions map[string]ledger.Position `msgpack:"positions"`
	Timestamp time.Time                  `msgpack:"ts"`
}

// EquityPoint is one row of the equity log.
type EquityPoint struct {
	Timestamp time.Time `json:"ts"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
}

// Store persists portfolio state in a single SQLite database.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore creates a state store and ensures its schema exists.
func NewStore(db *database.DB, log zerolog.Logger) (*Store, error) {
	s := &Store{
		db:  db,
		log: log.With().Str("store", "state").Logger(),
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS portfolio_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		cash REAL NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS positions (
		symbol TEXT PRIMARY KEY,
		quantity REAL NOT NULL,
		avg_price REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS equity_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		equity REAL NOT NULL,
		cash REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS trade_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		side TEXT NOT NULL,
		symbol TEXT NOT NULL,
		quantity REAL NOT NULL,
		exec_price REAL NOT NULL,
		gross_notional REAL NOT NULL,
		net_cash_delta REAL NOT NULL,
		fee_rate REAL NOT NULL,
		fee_fixed REAL NOT NULL,
		slippage_bps REAL NOT NULL,
		cash_after REAL NOT NULL,
		position_qty REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS snapshot_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		payload BLOB NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create state schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the persisted portfolio state atomically. Reads
// concurrent with a save see either the old snapshot or the new one,
// never a mix of cash and positions.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	return database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO portfolio_state (id, cash, updated_at) VALUES (1, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET cash = excluded.cash, updated_at = excluded.updated_at`,
			snap.Cash, snap.Timestamp.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to save portfolio state: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM positions`); err != nil {
			return fmt.Errorf("failed to clear positions: %w", err)
		}
		for sym, pos := range snap.Positions {
			if pos.Quantity <= 0 {
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO positions (symbol, quantity, avg_price) VALUES (?, ?, ?)`,
				sym, pos.Quantity, pos.AvgPrice,
			); err != nil {
				return fmt.Errorf("failed to save position %s: %w", sym, err)
			}
		}
		return nil
	})
}

// LoadSnapshot reads the persisted portfolio state. The second return is
// false when no snapshot has ever been saved.
func (s *Store) LoadSnapshot() (Snapshot, bool, error) {
	var snap Snapshot
	var updatedAt string

	err := s.db.QueryRow(`SELECT cash, updated_at FROM portfolio_state WHERE id = 1`).
		Scan(&snap.Cash, &updatedAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to load portfolio state: %w", err)
	}
	snap.Timestamp, _ = time.Parse(time.RFC3339, updatedAt)

	rows, err := s.db.Query(`SELECT symbol, quantity, avg_price FROM positions`)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to load positions: %w", err)
	}
	defer rows.Close()

	snap.Positions = make(map[string]ledger.Position)
	for rows.Next() {
		var sym string
		var pos ledger.Position
		if err := rows.Scan(&sym, &pos.Quantity, &pos.AvgPrice); err != nil {
			return Snapshot{}, false, fmt.Errorf("failed to scan position: %w", err)
		}
		snap.Positions[sym] = pos
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// AppendEquity records one equity observation.
func (s *Store) AppendEquity(p EquityPoint) error {
	_, err := s.db.Exec(
		`INSERT INTO equity_log (timestamp, equity, cash) VALUES (?, ?, ?)`,
		p.Timestamp.UTC().Format(time.RFC3339), p.Equity, p.Cash,
	)
	if err != nil {
		return fmt.Errorf("failed to append equity point: %w", err)
	}
	return nil
}

// EquityCurve returns the most recent equity observations, oldest first.
// limit <= 0 returns the full log.
func (s *Store) EquityCurve(limit int) ([]EquityPoint, error) {
	query := `SELECT timestamp, equity, cash FROM equity_log ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity log: %w", err)
	}
	defer rows.Close()

	var points []EquityPoint
	for rows.Next() {
		var ts string
		var p EquityPoint
		if err := rows.Scan(&ts, &p.Equity, &p.Cash); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		p.Timestamp, _ = time.Parse(time.RFC3339, ts)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first for metrics consumers.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// SaveHistorySnapshot appends a msgpack-encoded point-in-time copy of the
// snapshot to the history table.
func (s *Store) SaveHistorySnapshot(snap Snapshot) error {
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshot_history (timestamp, payload) VALUES (?, ?)`,
		snap.Timestamp.UTC().Format(time.RFC3339), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot history: %w", err)
	}
	return nil
}

// HistorySnapshots decodes the most recent history entries, newest first.
func (s *Store) HistorySnapshots(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT payload FROM snapshot_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot history: %w", err)
		}
		var snap Snapshot
		if err := msgpack.Unmarshal(payload, &snap); err != nil {
			s.log.Warn().Err(err).Msg("Skipping undecodable history snapshot")
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

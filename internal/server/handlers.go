package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/foliosim/internal/modules/metrics"
	"github.com/aristath/foliosim/internal/modules/risk"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePortfolio returns the current snapshot.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	snap, found, err := s.store.LoadSnapshot()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"initialized": found,
		"cash":        snap.Cash,
		"positions":   snap.Positions,
		"updated_at":  snap.Timestamp,
	})
}

func (s *Server) handleEquityCurve(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.EquityCurve(queryInt(r, "limit", 0))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"points": points})
}

// handleMetrics computes performance metrics over the stored equity log.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.EquityCurve(0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	curve := make([]float64, len(points))
	for i, p := range points {
		curve[i] = p.Equity
	}
	s.writeJSON(w, http.StatusOK, metrics.Compute(curve, s.cfg.StartingCash))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.Trades(queryInt(r, "limit", 100))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

func (s *Server) handleSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.HistorySnapshots(queryInt(r, "limit", 50))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"snapshots": snaps})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": risk.All()})
}

func (s *Server) handleLatestPicks(w http.ResponseWriter, r *http.Request) {
	picks, err := s.selection.LoadLatest()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"picks": picks})
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"markets": s.marketHours.AllMarketStatuses(time.Now()),
	})
}

// handleTriggerRun runs the live runner immediately, ignoring the
// schedule but still honoring trading days.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.RunOnce(time.Now())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves host resource and data directory statistics.
type SystemHandlers struct {
	log     zerolog.Logger
	dataDir string
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string) *SystemHandlers {
	return &SystemHandlers{
		log:     log.With().Str("component", "system_handlers").Logger(),
		dataDir: dataDir,
	}
}

// HandleStats returns CPU, memory, and data directory usage.
// GET /api/system/stats
func (h *SystemHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"cpu_percent":  cpuPct,
		"mem_percent":  memPct,
		"data_dir":     h.dataDir,
		"data_size_mb": h.getDirSize(h.dataDir),
	})
}

// getSystemStats samples CPU over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}
	return float64(totalSize) / 1024 / 1024
}

// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // base directory for databases, history and picks (always absolute)
	HistoryDir      string // per-symbol daily bar databases
	PicksDir        string // timestamped pick CSVs
	UniversesDir    string // named symbol lists
	StateDBPath     string // portfolio state database
	LogLevel        string
	Port            int
	DevMode         bool
	StartingCash    float64
	RiskProfile     string
	Exchange        string
	Universe        string
	MaxHoldings     int
	FeeRate         float64
	FeeFixed        float64
	SlippageBps     float64
	MinTradeCashPct float64
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("FOLIOSIM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		HistoryDir:      filepath.Join(absDataDir, "history"),
		PicksDir:        filepath.Join(absDataDir, "picks"),
		UniversesDir:    filepath.Join(absDataDir, "universes"),
		StateDBPath:     filepath.Join(absDataDir, "state.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8090),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		StartingCash:    getEnvAsFloat("STARTING_CASH", 10000),
		RiskProfile:     getEnv("RISK_PROFILE", "balanced"),
		Exchange:        getEnv("EXCHANGE", "NYSE"),
		Universe:        getEnv("UNIVERSE", "default"),
		MaxHoldings:     getEnvAsInt("MAX_HOLDINGS", 10),
		FeeRate:         getEnvAsFloat("FEE_RATE", 0.0),
		FeeFixed:        getEnvAsFloat("FEE_FIXED", 0.0),
		SlippageBps:     getEnvAsFloat("SLIPPAGE_BPS", 0.0),
		MinTradeCashPct: getEnvAsFloat("MIN_TRADE_CASH_PCT", 0.01),
	}

	if cfg.StartingCash <= 0 {
		return nil, fmt.Errorf("STARTING_CASH must be positive, got %v", cfg.StartingCash)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig carries every knob the binaries read from the environment.
// Fields without an env value fall back to defaults usable out of the box.
type AppConfig struct {
	// chess-server
	ListenAddr string

	// chess-cli / roomcheck
	ServerBaseURL string
	ServerWSURL   string

	// local mode engine
	StockfishPath     string
	AIPreset          string
	AIPresetOverride  string
	AIThinkDelay      time.Duration
	EngineThreads     int
	EngineHashMB      int
	EnginePoolPerOpts int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:    ":8080",
		ServerBaseURL: "http://localhost:8080",
		ServerWSURL:   "ws://localhost:8080/ws",
		AIPreset:      "medium",
		AIThinkDelay:  500 * time.Millisecond,
		EngineThreads: 1,
		EngineHashMB:  64,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_BASE_URL")); v != "" {
		cfg.ServerBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_WS_URL")); v != "" {
		cfg.ServerWSURL = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("AI_PRESET")); v != "" {
		cfg.AIPreset = v
	}
	cfg.AIPresetOverride = strings.TrimSpace(os.Getenv("AI_PRESET_OVERRIDE"))

	if v := strings.TrimSpace(os.Getenv("AI_THINK_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AIThinkDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePoolPerOpts = n
		}
	}

	return cfg, nil
}

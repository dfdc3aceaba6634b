// Package config loads the server's environment-driven configuration,
// in the teacher's os.Getenv style rather than a flag/file framework.
// All defaults are safe for local development.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-tunable knob the game server reads at
// startup. Nothing here is re-read after boot.
type Config struct {
	Port                     string
	TurnTimeoutMs            int64
	MaxAutoPlays             int
	MaxChatHistory           int
	StaleGameMaxIdleMs       int64
	StaleGameSweepIntervalMs int64
	RoomIdleTTLMs            int64
	EnablePoker              bool
	EnableChess              bool
	DebugEvents              bool
	PostgresDSN              string
	ClickHouseDSN            string
	KafkaBrokers             []string
}

// Load reads Config from the process environment, applying defaults
// for anything unset or malformed.
func Load() Config {
	return Config{
		Port:                     getString("GAME_SERVER_PORT", "8080"),
		TurnTimeoutMs:            getInt64("TURN_TIMEOUT_MS", 15000),
		MaxAutoPlays:             getInt("MAX_AUTO_PLAYS", 3),
		MaxChatHistory:           getInt("MAX_CHAT_HISTORY", 50),
		StaleGameMaxIdleMs:       getInt64("STALE_GAME_MAX_IDLE_MS", 30*60*1000),
		StaleGameSweepIntervalMs: getInt64("STALE_GAME_SWEEP_INTERVAL_MS", 5*60*1000),
		RoomIdleTTLMs:            getInt64("ROOM_IDLE_TTL_MS", 30*60*1000),
		EnablePoker:              getBool("ENABLE_POKER", true),
		EnableChess:              getBool("ENABLE_CHESS", true),
		DebugEvents:              getBool("DEBUG_EVENTS", false),
		PostgresDSN:              getString("POSTGRES_DSN", ""),
		ClickHouseDSN:            getString("CLICKHOUSE_DSN", ""),
		KafkaBrokers:             getList("KAFKA_BROKERS"),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// clearEnv ensures every knob Load reads starts unset, so tests don't
// inherit values from the host environment or leak between cases.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"GAME_SERVER_PORT", "TURN_TIMEOUT_MS", "MAX_AUTO_PLAYS", "MAX_CHAT_HISTORY",
		"STALE_GAME_MAX_IDLE_MS", "STALE_GAME_SWEEP_INTERVAL_MS", "ROOM_IDLE_TTL_MS",
		"ENABLE_POKER", "ENABLE_CHESS", "DEBUG_EVENTS", "POSTGRES_DSN", "CLICKHOUSE_DSN",
		"KAFKA_BROKERS",
	}
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, int64(15000), cfg.TurnTimeoutMs)
	require.Equal(t, 3, cfg.MaxAutoPlays)
	require.Equal(t, 50, cfg.MaxChatHistory)
	require.True(t, cfg.EnablePoker)
	require.True(t, cfg.EnableChess)
	require.False(t, cfg.DebugEvents)
	require.Empty(t, cfg.PostgresDSN)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAME_SERVER_PORT", "9090")
	t.Setenv("TURN_TIMEOUT_MS", "5000")
	t.Setenv("MAX_AUTO_PLAYS", "7")
	t.Setenv("ENABLE_CHESS", "false")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092 ,")

	cfg := Load()

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, int64(5000), cfg.TurnTimeoutMs)
	require.Equal(t, 7, cfg.MaxAutoPlays)
	require.False(t, cfg.EnableChess)
	require.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers, "the list parser trims whitespace and drops empty entries")
}

func TestLoadFallsBackOnMalformedNumericEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_AUTO_PLAYS", "not-a-number")
	t.Setenv("ENABLE_POKER", "not-a-bool")

	cfg := Load()

	require.Equal(t, 3, cfg.MaxAutoPlays, "an unparseable int falls back to its default rather than zeroing out")
	require.True(t, cfg.EnablePoker, "an unparseable bool falls back to its default")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "REDIS_URL", "NATS_URL", "DATABASE_URL", "ROOM_IDLE_TIMEOUT", "SEQUENCE_RULES_FILE", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.IdleTimeout)
	assert.Equal(t, models.DefaultRoomSettings(), cfg.Rooms.Defaults)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROOM_IDLE_TIMEOUT", "45")
	t.Setenv("SNAPSHOT_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SEQUENCE_RULES_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 45*time.Second, cfg.Rooms.IdleTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SnapshotTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadRoomDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := "room:\n  max_players: 6\n  turn_time_limit: 0\n  rules:\n    free_corners_count: true\n    required_sequences: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	got, err := LoadRoomDefaults(path, models.DefaultRoomSettings())
	require.NoError(t, err)
	assert.Equal(t, 6, got.MaxPlayers)
	assert.Equal(t, 0, got.TurnTimeLimit)
	assert.Equal(t, "classic", got.GameMode, "keys absent from the file keep their default")
	assert.True(t, got.Rules.FreeCornersCount)
	assert.Equal(t, 3, got.Rules.RequiredSequences)
}

func TestLoadRoomDefaultsErrors(t *testing.T) {
	_, err := LoadRoomDefaults(filepath.Join(t.TempDir(), "missing.yaml"), models.DefaultRoomSettings())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("room: [unclosed"), 0o600))
	_, err = LoadRoomDefaults(path, models.DefaultRoomSettings())
	assert.Error(t, err)

	t.Setenv("SEQUENCE_RULES_FILE", path)
	_, err = Load()
	assert.Error(t, err)
}

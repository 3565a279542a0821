// Package config loads service settings from the environment, an optional
// .env file and an optional YAML file of room defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i-akshat-jain/sequence-game/service/internal/models"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	NATS    NATSConfig
	DB      DBConfig
	Rooms   RoomsConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Addr           string   // Listen address, e.g. ":8080".
	AllowedOrigins []string // Empty allows any origin.
	GinMode        string
}

type RedisConfig struct {
	URL         string        // Empty disables the action log and snapshots.
	SnapshotTTL time.Duration // Lifetime of a room's last saved state.
}

type NATSConfig struct {
	URL string // Empty disables event fan-out.
}

type DBConfig struct {
	URL string // Empty disables persistence.
}

type RoomsConfig struct {
	IdleTimeout  time.Duration       // Rooms idle this long are evicted.
	TicketSecret string              // HMAC key for seat tickets.
	TicketTTL    time.Duration       // Lifetime of a seat ticket.
	Defaults     models.RoomSettings // Settings a new room starts with.
}

type LoggingConfig struct {
	Level  string
	Format string // "json" or "text".
}

// roomDefaultsFile is the layout of SEQUENCE_RULES_FILE.
type roomDefaultsFile struct {
	Room *models.RoomSettings `yaml:"room"`
}

// Load reads .env (if present) and the environment. A missing .env file is
// not an error; an unreadable rules file is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read .env: %v", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:           ":" + getEnv("PORT", "8080"),
			AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
			GinMode:        getEnv("GIN_MODE", "release"),
		},
		Redis: RedisConfig{
			URL:         os.Getenv("REDIS_URL"),
			SnapshotTTL: getDuration("SNAPSHOT_TTL", 24*time.Hour),
		},
		NATS: NATSConfig{URL: os.Getenv("NATS_URL")},
		DB:   DBConfig{URL: os.Getenv("DATABASE_URL")},
		Rooms: RoomsConfig{
			IdleTimeout:  getDuration("ROOM_IDLE_TIMEOUT", 30*time.Minute),
			TicketSecret: os.Getenv("SEAT_TICKET_SECRET"),
			TicketTTL:    getDuration("SEAT_TICKET_TTL", 12*time.Hour),
			Defaults:     models.DefaultRoomSettings(),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if path := os.Getenv("SEQUENCE_RULES_FILE"); path != "" {
		defaults, err := LoadRoomDefaults(path, cfg.Rooms.Defaults)
		if err != nil {
			return nil, err
		}
		cfg.Rooms.Defaults = defaults
	}
	return cfg, nil
}

// LoadRoomDefaults overlays the `room:` section of a YAML file on base.
// Keys absent from the file keep base's value.
func LoadRoomDefaults(path string, base models.RoomSettings) (models.RoomSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read rules file: %w", err)
	}
	out := base
	f := roomDefaultsFile{Room: &out}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return out, nil
}

// SetupLogging applies the level and formatter to the standard logrus logger.
func (c LoggingConfig) SetupLogging() {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		log.Printf("Warning: unknown LOG_LEVEL %q, using info.", c.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go durations ("90s") or bare seconds ("90").
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: invalid duration %s=%q, using %s.", key, v, fallback)
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

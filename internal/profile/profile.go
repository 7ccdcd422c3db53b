package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where blubb stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Secret is the key used to verify access tokens
	Secret string

	// Cache Configuration
	// RedisAddr empty means the in-process cache is used instead of a
	// shared Redis instance.
	RedisAddr     string // BLUBB_REDIS_ADDR (e.g. localhost:6379)
	RedisPassword string // BLUBB_REDIS_PASSWORD
	RedisDB       int    // BLUBB_REDIS_DB (default: 0)
	RedisPrefix   string // BLUBB_REDIS_PREFIX (default: "blubb:")

	// Projection TTLs. Zero means the built-in default for that projection.
	RoomListTTL     time.Duration // BLUBB_CACHE_ROOM_LIST_TTL (default: 180s)
	RoomDetailTTL   time.Duration // BLUBB_CACHE_ROOM_DETAIL_TTL (default: 120s)
	ParticipantsTTL time.Duration // BLUBB_CACHE_PARTICIPANTS_TTL (default: 60s)
	MembershipTTL   time.Duration // BLUBB_CACHE_MEMBERSHIP_TTL (default: 300s)
	UserProfileTTL  time.Duration // BLUBB_CACHE_USER_PROFILE_TTL (default: 300s)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRedisEnabled returns true if a shared Redis cache is configured.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads cache configuration from BLUBB_* environment variables.
func (p *Profile) FromEnv() {
	// Helper to get duration env value, skipping unparsable values so
	// defaults take effect.
	getDurationEnv := func(key string, defaultValue time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return defaultValue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return defaultValue
		}
		return d
	}

	p.RedisAddr = os.Getenv("BLUBB_REDIS_ADDR")
	p.RedisPassword = os.Getenv("BLUBB_REDIS_PASSWORD")
	p.RedisPrefix = getEnvOrDefault("BLUBB_REDIS_PREFIX", "blubb:")

	p.RoomListTTL = getDurationEnv("BLUBB_CACHE_ROOM_LIST_TTL", 180*time.Second)
	p.RoomDetailTTL = getDurationEnv("BLUBB_CACHE_ROOM_DETAIL_TTL", 120*time.Second)
	p.ParticipantsTTL = getDurationEnv("BLUBB_CACHE_PARTICIPANTS_TTL", 60*time.Second)
	p.MembershipTTL = getDurationEnv("BLUBB_CACHE_MEMBERSHIP_TTL", 300*time.Second)
	p.UserProfileTTL = getDurationEnv("BLUBB_CACHE_USER_PROFILE_TTL", 300*time.Second)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "blubb")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/blubb"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("blubb_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for the postgres driver")
		}
	default:
		return errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	return nil
}

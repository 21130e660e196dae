package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline applied by the router

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Access gate
	OwnerPassword string
	GuestPassword string

	// Sessions
	SessionBackend       string        // "redis" | "memory"
	SessionTTL           time.Duration // idle lifetime of a session
	SessionSweepInterval time.Duration // memory backend only
	CookieSecure         bool          // set the Secure flag on the session cookie

	// Metadata fetcher
	FetchTimeout      time.Duration
	FetchUserAgent    string
	FetchRateBurst    int
	FetchRatePerMin   int
	FetchMaxBodyBytes int64

	// Drive (durable spreadsheet storage)
	Drive DriveConfig

	// Optional YAML file upserted into the owner collection on start and on change
	SeedFile     string
	SeedInterval time.Duration

	// Redis (only when SessionBackend == "redis")
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// DriveConfig is a tagged union: Type selects which of the other fields apply.
type DriveConfig struct {
	Type string // "s3" | "filesystem" | "memory"

	// filesystem
	Root string

	// s3
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string // optional, for S3-compatible services (MinIO, R2, ...)
	S3AccessKey string // optional, falls back to the default AWS credential chain
	S3SecretKey string
}

func Load() *Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	cfg := &Config{
		ListenPort:      getenv("SHELF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHELF_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("SHELF_REQUEST_TIMEOUT", 30*time.Second),

		LogLevel:  getenv("SHELF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHELF_PRETTY_LOG", true),

		OwnerPassword: getenv("SHELF_OWNER_PASSWORD", "admin123"),
		GuestPassword: getenv("SHELF_GUEST_PASSWORD", "guest456"),

		SessionBackend:       getenv("SHELF_SESSION_BACKEND", "redis"),
		SessionTTL:           mustDuration("SHELF_SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: mustDuration("SHELF_SESSION_SWEEP_INTERVAL", 10*time.Minute),
		CookieSecure:         mustBool("SHELF_COOKIE_SECURE", false),

		FetchTimeout:      mustDuration("SHELF_FETCH_TIMEOUT", 10*time.Second),
		FetchUserAgent:    getenv("SHELF_FETCH_USER_AGENT", "Mozilla/5.0"),
		FetchRateBurst:    getenvInt("SHELF_FETCH_RATE_BURST", 10),
		FetchRatePerMin:   getenvInt("SHELF_FETCH_RATE_PER_MIN", 30),
		FetchMaxBodyBytes: int64(getenvInt("SHELF_FETCH_MAX_BODY_BYTES", 2<<20)),

		Drive: DriveConfig{
			Type:        getenv("SHELF_DRIVE_TYPE", "filesystem"),
			Root:        getenv("SHELF_DRIVE_ROOT", "/app/data"),
			S3Bucket:    getenv("SHELF_S3_BUCKET", ""),
			S3Prefix:    getenv("SHELF_S3_PREFIX", ""),
			S3Region:    getenv("SHELF_S3_REGION", ""),
			S3Endpoint:  getenv("SHELF_S3_ENDPOINT", ""),
			S3AccessKey: getenv("SHELF_S3_ACCESS_KEY", ""),
			S3SecretKey: getenv("SHELF_S3_SECRET_KEY", ""),
		},

		SeedFile:     getenv("SHELF_SEED_FILE", ""),
		SeedInterval: mustDuration("SHELF_SEED_INTERVAL", 5*time.Minute),

		RedisUser:           getenv("SHELF_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("SHELF_REDIS_PASSWORD", ""),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		AllowedHosts: splitAndTrim(getenv("SHELF_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("SHELF_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SHELF_TRUST_PROXY", true),
	}

	switch cfg.SessionBackend {
	case "redis":
		cfg.RedisAddr = requireEnv("SHELF_REDIS_ADDR")
		cfg.RedisDB = getenvInt("SHELF_REDIS_DB", 0)
	case "memory":
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown SHELF_SESSION_BACKEND %q (want redis or memory)", cfg.SessionBackend))
	}

	if err := cfg.Drive.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	if cfg.OwnerPassword == cfg.GuestPassword {
		panic("❌ FATAL: SHELF_OWNER_PASSWORD and SHELF_GUEST_PASSWORD must differ")
	}

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.OwnerPassword = "***REDACTED***"
		cfgCopy.GuestPassword = "***REDACTED***"
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.Drive.S3SecretKey = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (d DriveConfig) validate() error {
	switch d.Type {
	case "memory":
		return nil
	case "filesystem":
		if d.Root == "" {
			return fmt.Errorf("filesystem drive requires SHELF_DRIVE_ROOT")
		}
		return nil
	case "s3":
		if d.S3Bucket == "" {
			return fmt.Errorf("s3 drive requires SHELF_S3_BUCKET")
		}
		if (d.S3AccessKey == "") != (d.S3SecretKey == "") {
			return fmt.Errorf("SHELF_S3_ACCESS_KEY and SHELF_S3_SECRET_KEY must be set together")
		}
		return nil
	default:
		return fmt.Errorf("unknown SHELF_DRIVE_TYPE %q (want s3, filesystem or memory)", d.Type)
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Client captures the configuration of the portal client process.
type Client struct {
	// APIBaseURL is the REST base, including any version prefix.
	APIBaseURL string
	// SocketURL is the realtime server origin; the Socket.IO path is appended.
	SocketURL string
	// HTTPTimeout bounds each REST call. Zero disables the timeout.
	HTTPTimeout time.Duration
	// FenceFetches discards stale fetch resolutions instead of letting the last
	// resolved response win.
	FenceFetches bool
	LogLevel     string
	LogFormat    string
	Token        TokenStore
	Redis        RedisConfig
}

// TokenStore selects where the session token is persisted between runs.
type TokenStore struct {
	// Kind is one of memory, file, redis, sqlite.
	Kind string
	// Path is the file or sqlite database location.
	Path string
	// Key is the storage key the token lives under.
	Key string
}

// RedisConfig configures the optional Redis connection used by the redis token store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Stub captures the configuration of the local fake backend.
type Stub struct {
	Addr         string
	JWTSecret    string
	TokenTTL     time.Duration
	PingInterval time.Duration
	// SeedAdminEmail creates an administrator with SeedAdminPassword at start-up.
	SeedAdminEmail    string
	SeedAdminPassword string
}

const (
	defaultAPIBaseURL = "http://localhost:5000/api/v1"
	defaultSocketURL  = "http://localhost:5000"
	defaultTokenKey   = "token"
)

// LoadDotEnv reads a .env file when present. Variables already set in the
// environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() Client {
	return Client{
		APIBaseURL:   getEnv("PORTAL_API_URL", defaultAPIBaseURL),
		SocketURL:    getEnv("PORTAL_SOCKET_URL", defaultSocketURL),
		HTTPTimeout:  getDuration("PORTAL_HTTP_TIMEOUT", 30*time.Second),
		FenceFetches: os.Getenv("PORTAL_FENCE_FETCHES") == "true",
		LogLevel:     getEnv("PORTAL_LOG_LEVEL", "warn"),
		LogFormat:    getEnv("PORTAL_LOG_FORMAT", "text"),
		Token: TokenStore{
			Kind: getEnv("PORTAL_TOKEN_STORE", "file"),
			Path: getEnv("PORTAL_TOKEN_PATH", defaultTokenPath()),
			Key:  getEnv("PORTAL_TOKEN_KEY", defaultTokenKey),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("PORTAL_REDIS_URL"),
			PoolSize:     getInt("PORTAL_REDIS_POOL_SIZE", 4),
			MinIdleConns: getInt("PORTAL_REDIS_MIN_IDLE", 0),
			DialTimeout:  getDuration("PORTAL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("PORTAL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("PORTAL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

// StubFromEnv builds the fake backend configuration.
func StubFromEnv() Stub {
	secret := os.Getenv("STUB_JWT_SECRET")
	if secret == "" {
		// Development default; the stub never runs anywhere real.
		secret = "dev-secret-key-change-me"
	}
	return Stub{
		Addr:              getEnv("STUB_ADDR", ":5000"),
		JWTSecret:         secret,
		TokenTTL:          getDuration("STUB_TOKEN_TTL", 24*time.Hour),
		PingInterval:      getDuration("STUB_PING_INTERVAL", 25*time.Second),
		SeedAdminEmail:    os.Getenv("STUB_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("STUB_ADMIN_PASSWORD"),
	}
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".taskportal-token"
	}
	return filepath.Join(dir, "taskportal", "token")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

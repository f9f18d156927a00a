package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hashpaste/internal/util"
)

// Config holds server configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Paste     PasteConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Listen     string
	PublicBase string
	StaticDir  string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

type StoreConfig struct {
	Backend         string
	JanitorInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type PasteConfig struct {
	TTL          time.Duration
	MaxBodyBytes int64
	IDLength     int
	BlockSecrets bool
}

type RateLimitConfig struct {
	Enabled  bool
	RPS      float64
	Burst    int
	UseRedis bool
	Window   time.Duration
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Load reads configuration from the environment, after loading the given
// .env files (missing files are ignored).
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN", "")
	v.SetDefault("PORT", "3535")
	v.SetDefault("STATIC_DIR", "static")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("STORE", BackendMemory)
	v.SetDefault("JANITOR_INTERVAL", "30s")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MONGODB_DATABASE", "hashpaste")
	v.SetDefault("PASTE_TTL", "never")
	v.SetDefault("MAX_BODY_BYTES", 256*1024)
	v.SetDefault("ID_LENGTH", util.DefaultIDLength)
	v.SetDefault("BLOCK_SECRETS", false)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW", "1s")
	v.SetDefault("LOG_LEVEL", "info")

	ttl, err := util.ParseTTL(v.GetString("PASTE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("PASTE_TTL: %w", err)
	}

	listen := v.GetString("LISTEN")
	if listen == "" {
		listen = ":" + v.GetString("PORT")
	}

	cfg := &Config{
		Server: ServerConfig{
			Listen:     listen,
			PublicBase: strings.TrimRight(v.GetString("PUBLIC_BASE"), "/"),
			StaticDir:  v.GetString("STATIC_DIR"),
			TrustProxy: v.GetBool("TRUST_PROXY"),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(v.GetString("STORE")),
			JanitorInterval: v.GetDuration("JANITOR_INTERVAL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
		},
		Paste: PasteConfig{
			TTL:          ttl,
			MaxBodyBytes: v.GetInt64("MAX_BODY_BYTES"),
			IDLength:     v.GetInt("ID_LENGTH"),
			BlockSecrets: v.GetBool("BLOCK_SECRETS"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			UseRedis: v.GetBool("RATE_LIMIT_REDIS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("STORE=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown STORE %q (want memory, redis or mongo)", c.Store.Backend)
	}
	if c.Paste.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.Paste.IDLength < 4 {
		return fmt.Errorf("ID_LENGTH must be at least 4")
	}
	if c.RateLimit.UseRedis && c.Store.Backend != BackendRedis {
		return fmt.Errorf("RATE_LIMIT_REDIS requires STORE=redis")
	}
	return nil
}

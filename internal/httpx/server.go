package httpx

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"hashpaste/internal/store"
)

/*
Server holds the store and the settings the API handlers need.
*/
type Server struct {
	Store   store.Store
	Config  Config
	Log     *zap.Logger
	Limiter func(http.Handler) http.Handler
	now     func() time.Time
}

/*
Config mirrors the paste-related parts of the process configuration.
*/
type Config struct {
	PublicBase   string
	StaticDir    string
	MaxBodyBytes int64
	IDLength     int
	TTL          time.Duration
	BlockSecrets bool
}

// DefaultMaxBodyBytes caps JSON request bodies at 256 KiB.
const DefaultMaxBodyBytes = 256 * 1024

func NewServer(cfg Config, st store.Store, log *zap.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Store:  st,
		Config: cfg,
		Log:    log,
		now:    time.Now,
	}
}

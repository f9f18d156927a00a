package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hashpaste/internal/config"
	"hashpaste/internal/httpx"
	"hashpaste/internal/logging"
	"hashpaste/internal/metrics"
	"hashpaste/internal/store"
)

func main() {
	var listenAddr, publicBase, envFile string
	flag.StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides LISTEN/PORT)")
	flag.StringVar(&publicBase, "public", "", "public base URL (e.g. https://paste.example.com)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}
	if publicBase != "" {
		cfg.Server.PublicBase = publicBase
	}

	log := logging.Must(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer st.Close()
	log.Info("store ready", zap.String("backend", cfg.Store.Backend))

	srv := httpx.NewServer(httpx.Config{
		PublicBase:   cfg.Server.PublicBase,
		StaticDir:    cfg.Server.StaticDir,
		MaxBodyBytes: cfg.Paste.MaxBodyBytes,
		IDLength:     cfg.Paste.IDLength,
		TTL:          cfg.Paste.TTL,
		BlockSecrets: cfg.Paste.BlockSecrets,
	}, st, log)
	srv.Limiter = limiter(cfg, st, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	r := chi.NewRouter()
	if cfg.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(httpx.RequestID, middleware.Recoverer, httpx.AccessLog(log), httpx.NoIndex)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpx.MountRoutes(r, srv)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Listen), zap.String("public", cfg.Server.PublicBase))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Store.Backend {
	case config.BackendRedis:
		return store.DialRedis(dialCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case config.BackendMongo:
		return store.DialMongo(dialCtx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	default:
		return store.NewMemory(cfg.Store.JanitorInterval), nil
	}
}

func limiter(cfg *config.Config, st store.Store, log *zap.Logger) func(http.Handler) http.Handler {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rs, ok := st.(*store.Redis); ok && rl.UseRedis {
		log.Info("rate limiting via redis", zap.Float64("rps", rl.RPS), zap.Int("burst", rl.Burst), zap.Duration("window", rl.Window))
		return httpx.RedisRateLimit(rs.Client(), rl.RPS, rl.Burst, rl.Window)
	}
	log.Info("rate limiting in memory", zap.Float64("rps", rl.RPS), zap.Int("burst", rl.Burst))
	return httpx.RateLimit(rl.RPS, rl.Burst)
}

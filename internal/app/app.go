// Package app wires the courier server runtime: config, logging, HTTP routes,
// the auth API, and the websocket relay gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"courier/internal/authapi"
	"courier/internal/friendship"
	"courier/internal/identity"
	"courier/internal/relay"
	"courier/internal/token"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the courier server runtime: it owns HTTP server wiring and the
// relay gateway dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *prometheus.Registry

	ws   *relay.Gateway
	auth *authapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	st, dbPool, dbEnabled, idStore, friendStore, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	tokens, err := newTokenService(log)
	if err != nil {
		if st != nil {
			_ = st.Close(context.Background())
		}
		return nil, err
	}

	friends := friendship.NewService(log, friendStore)

	promReg := prometheus.NewRegistry()
	relayMetrics := relay.NewMetrics(promReg)

	rly := relay.NewRelay(log, relay.NewRegistry(), friends, friends,
		relay.WithMetrics(relayMetrics))
	ws := relay.NewGateway(log, rly, tokens)

	auth := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), idStore, friends, tokens)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   promReg,
		ws:        ws,
		auth:      auth,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.ws, a.auth)

	var handler http.Handler = mux
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		handler = WithCORS(handler, a.cfg, a.log)
	}
	handler = WithSecurityHeaders(handler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(handler, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, friendship.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewMemoryStore(), friendship.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")

	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	friendStore, err := friendship.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	// Ownership model: the app owns the pool lifecycle; the stores do not
	// close it themselves.
	return dbStore{pool: pool}, pool, true, idStore, friendStore, nil
}

// newTokenService builds the token service from env. When neither signing key
// is configured, ephemeral dev keys are generated so a bare `courier` starts
// locally; tokens then do not survive a restart.
func newTokenService(log Logger) (*token.Service, error) {
	tcfg, err := token.LoadConfigFromEnv()
	if err != nil {
		accessSet := os.Getenv("COURIER_ACCESS_SECRET_KEY_HEX") != ""
		refreshSet := os.Getenv("COURIER_REFRESH_SECRET_KEY_HEX") != ""
		if accessSet || refreshSet {
			return nil, err
		}

		log.Warn("token.keys.ephemeral", "reason", "no signing keys configured")
		tcfg = token.DefaultConfig()
		tcfg.AccessSecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
		tcfg.RefreshSecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
	}

	return token.NewService(tcfg)
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

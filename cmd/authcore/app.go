package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/datastore"
	"github.com/alexedwards/scs/v2"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	authcore "github.com/gr-backend/authcore"
	"github.com/gr-backend/authcore/oauth2"
	"github.com/gr-backend/authcore/stores/fs"
	"github.com/gr-backend/authcore/stores/gae"
	gormstore "github.com/gr-backend/authcore/stores/gorm"
	"github.com/gr-backend/authcore/stores/postgrest"
	redisstore "github.com/gr-backend/authcore/stores/redis"
)

// app holds the assembled components and whatever needs closing on shutdown.
type app struct {
	cfg          authcore.Config
	sessions     *authcore.SessionManager
	orchestrator *authcore.Orchestrator
	handler      http.Handler
	closers      []io.Closer
}

func newApp(ctx context.Context, cfg authcore.Config) (*app, error) {
	a := &app{cfg: cfg}

	store, err := a.openDirectory(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening %s directory: %w", cfg.DirectoryDriver, err)
	}
	sm, err := a.newSessionManager(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configuring sessions: %w", err)
	}

	a.sessions = authcore.NewSessionManager(sm)
	a.orchestrator = authcore.NewOrchestrator(authcore.NewDirectoryClient(store), a.sessions)
	a.handler = a.routes()
	return a, nil
}

func (a *app) Handler() http.Handler {
	return a.handler
}

func (a *app) Close() error {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	return nil
}

func (a *app) routes() http.Handler {
	cfg := a.cfg
	failureURL := cfg.AuthFailureURL
	if failureURL == "" {
		failureURL = "/error"
	}

	api := (&authcore.API{
		Auth:            a.orchestrator,
		LoginSuccessURL: cfg.LoginSuccessURL,
		AuthFailureURL:  failureURL,
		ReturnURL:       oauth2.PopCallbackURL,
	}).EnsureDefaults()

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"service": "authcore"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Authentication failed"})
	})
	api.RegisterRoutes(router, "/api")

	if cfg.GithubEnabled() {
		gh := oauth2.NewGithubOAuth2(cfg.GithubClientID, cfg.GithubClientSecret, cfg.GithubCallbackURL, api.HandleProviderUser)
		gh.AuthFailureUrl = failureURL
		router.PathPrefix("/oauth2/github").Handler(http.StripPrefix("/oauth2/github", gh))
	}

	gate := (&authcore.RouteGate{
		Sessions:     a.sessions,
		PublicRoutes: cfg.PublicRoutes,
		LoginURL:     cfg.LoginURL,
	}).EnsureDefaults()

	return otelhttp.NewHandler(a.sessions.LoadAndSave(gate.Wrap(router)), "authcore")
}

func (a *app) openDirectory(ctx context.Context) (authcore.DirectoryStore, error) {
	cfg := a.cfg
	switch cfg.DirectoryDriver {
	case authcore.DirectoryPostgREST:
		return postgrest.New(postgrest.Config{
			BaseURL: cfg.DirectoryURL,
			APIKey:  cfg.DirectoryAPIKey,
			Table:   cfg.DirectoryTable,
			Timeout: cfg.DirectoryTimeout,
		}), nil

	case authcore.DirectoryPostgres, authcore.DirectorySQLite:
		dialector := postgres.Open(cfg.DatabaseDSN)
		if cfg.DirectoryDriver == authcore.DirectorySQLite {
			dialector = sqlite.Open(cfg.DatabaseDSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if cfg.DirectoryDriver == authcore.DirectorySQLite {
			sqlDB.SetMaxOpenConns(1)
		}
		a.closers = append(a.closers, sqlDB)
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, err
		}
		return gormstore.NewDirectoryStore(db), nil

	case authcore.DirectoryDatastore:
		var opts []option.ClientOption
		if cfg.DatastoreEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.DatastoreEndpoint), option.WithoutAuthentication())
		}
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		return gae.NewDirectoryStore(client, cfg.DatastoreNamespace), nil

	case authcore.DirectoryFS:
		return fs.NewFSDirectoryStore(cfg.DirectoryPath), nil
	}
	return nil, fmt.Errorf("unknown directory driver %q", cfg.DirectoryDriver)
}

func (a *app) newSessionManager(ctx context.Context) (*scs.SessionManager, error) {
	cfg := a.cfg
	sm := scs.New()
	sm.Lifetime = cfg.SessionLifetime
	sm.Cookie.Name = cfg.SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.SessionCookieSecure
	sm.Cookie.Persist = true

	if cfg.RedisAddr != "" {
		client, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		sm.Store = redisstore.New(client)
	}
	return sm, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

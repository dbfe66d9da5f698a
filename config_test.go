package authcore_test

import (
	"reflect"
	"testing"
	"time"

	oa "github.com/gr-backend/authcore"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://xyz.supabase.co")
	t.Setenv("SUPABASE_API_KEY", "service-key")

	cfg, err := oa.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DirectoryDriver != oa.DirectoryPostgREST || cfg.DirectoryTable != "users" {
		t.Errorf("directory = %s/%s", cfg.DirectoryDriver, cfg.DirectoryTable)
	}
	if cfg.DirectoryTimeout != 10*time.Second {
		t.Errorf("DirectoryTimeout = %v", cfg.DirectoryTimeout)
	}
	if cfg.SessionLifetime != 24*time.Hour {
		t.Errorf("SessionLifetime = %v", cfg.SessionLifetime)
	}
	if cfg.SessionCookieName != "authcore_session" || cfg.SessionCookieSecure {
		t.Errorf("cookie = %s secure=%v", cfg.SessionCookieName, cfg.SessionCookieSecure)
	}
	if cfg.LoginSuccessURL != "http://localhost:5173/dashboard" {
		t.Errorf("LoginSuccessURL = %q", cfg.LoginSuccessURL)
	}
	if cfg.PublicRoutes != nil {
		t.Errorf("PublicRoutes = %v, want nil so the gate uses its defaults", cfg.PublicRoutes)
	}
	if cfg.GithubEnabled() {
		t.Error("GitHub should be disabled without credentials")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DIRECTORY_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file::memory:")
	t.Setenv("SESSION_LIFETIME", "30m")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("PUBLIC_ROUTES", "/,/api/login,/static/**")
	t.Setenv("OAUTH2_GITHUB_CLIENT_ID", "id")
	t.Setenv("OAUTH2_GITHUB_CLIENT_SECRET", "secret")

	cfg, err := oa.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.SessionLifetime != 30*time.Minute || !cfg.SessionCookieSecure {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if want := []string{"/", "/api/login", "/static/**"}; !reflect.DeepEqual(cfg.PublicRoutes, want) {
		t.Errorf("PublicRoutes = %v, want %v", cfg.PublicRoutes, want)
	}
	if !cfg.GithubEnabled() {
		t.Error("GitHub should be enabled")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://xyz.supabase.co")
	t.Setenv("SUPABASE_API_KEY", "k")
	t.Setenv("SESSION_LIFETIME", "forever")

	if _, err := oa.LoadConfig(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     oa.Config
		wantErr bool
	}{
		{"postgrest ok", oa.Config{DirectoryDriver: oa.DirectoryPostgREST, DirectoryURL: "u", DirectoryAPIKey: "k"}, false},
		{"postgrest missing key", oa.Config{DirectoryDriver: oa.DirectoryPostgREST, DirectoryURL: "u"}, true},
		{"postgres ok", oa.Config{DirectoryDriver: oa.DirectoryPostgres, DatabaseDSN: "postgres://"}, false},
		{"sqlite missing dsn", oa.Config{DirectoryDriver: oa.DirectorySQLite}, true},
		{"datastore ok", oa.Config{DirectoryDriver: oa.DirectoryDatastore, DatastoreProject: "p"}, false},
		{"datastore missing project", oa.Config{DirectoryDriver: oa.DirectoryDatastore}, true},
		{"fs ok", oa.Config{DirectoryDriver: oa.DirectoryFS, DirectoryPath: "/tmp/users"}, false},
		{"fs missing path", oa.Config{DirectoryDriver: oa.DirectoryFS}, true},
		{"unknown driver", oa.Config{DirectoryDriver: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package authcore

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Directory drivers understood by the server
const (
	DirectoryPostgREST = "postgrest"
	DirectoryPostgres  = "postgres"
	DirectorySQLite    = "sqlite"
	DirectoryDatastore = "datastore"
	DirectoryFS        = "fs"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port string `env:"APP_PORT" envDefault:"8080"`

	LoginSuccessURL string   `env:"LOGIN_SUCCESS_URL" envDefault:"http://localhost:5173/dashboard"`
	AuthFailureURL  string   `env:"AUTH_FAILURE_URL"`
	LoginURL        string   `env:"LOGIN_URL"`
	PublicRoutes    []string `env:"PUBLIC_ROUTES" envSeparator:","`

	DirectoryDriver  string        `env:"DIRECTORY_DRIVER" envDefault:"postgrest"`
	DirectoryURL     string        `env:"SUPABASE_URL"`
	DirectoryAPIKey  string        `env:"SUPABASE_API_KEY"`
	DirectoryTable   string        `env:"DIRECTORY_TABLE" envDefault:"users"`
	DirectoryTimeout time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"10s"`
	DatabaseDSN      string        `env:"DATABASE_DSN"`
	DirectoryPath    string        `env:"DIRECTORY_PATH"`

	DatastoreProject   string `env:"DATASTORE_PROJECT"`
	DatastoreNamespace string `env:"DATASTORE_NAMESPACE"`
	DatastoreEndpoint  string `env:"DATASTORE_ENDPOINT"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SessionLifetime     time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"authcore_session"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	GithubClientID     string `env:"OAUTH2_GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"OAUTH2_GITHUB_CLIENT_SECRET"`
	GithubCallbackURL  string `env:"OAUTH2_GITHUB_CALLBACK_URL"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig parses the environment into a Config and validates it.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected directory driver has what it needs.
func (c Config) Validate() error {
	switch c.DirectoryDriver {
	case DirectoryPostgREST:
		if c.DirectoryURL == "" || c.DirectoryAPIKey == "" {
			return fmt.Errorf("directory driver %q needs SUPABASE_URL and SUPABASE_API_KEY", c.DirectoryDriver)
		}
	case DirectoryPostgres, DirectorySQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("directory driver %q needs DATABASE_DSN", c.DirectoryDriver)
		}
	case DirectoryDatastore:
		if c.DatastoreProject == "" {
			return fmt.Errorf("directory driver %q needs DATASTORE_PROJECT", c.DirectoryDriver)
		}
	case DirectoryFS:
		if c.DirectoryPath == "" {
			return fmt.Errorf("directory driver %q needs DIRECTORY_PATH", c.DirectoryDriver)
		}
	default:
		return fmt.Errorf("unknown directory driver %q", c.DirectoryDriver)
	}
	return nil
}

// GithubEnabled reports whether GitHub login is configured.
func (c Config) GithubEnabled() bool {
	return c.GithubClientID != "" && c.GithubClientSecret != ""
}

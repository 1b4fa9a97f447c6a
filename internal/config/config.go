package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"hermannm.dev/wrap"
)

type Config struct {
	API              API
	AnalysisServices AnalysisServices
	Identity         Identity
	History          History
	Log              Log
}

type API struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`
}

func (api API) validate() error {
	switch api.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf(
			"GIN_MODE must be one of %s, %s or %s, got '%s'",
			gin.DebugMode, gin.ReleaseMode, gin.TestMode, api.GinMode,
		)
	}
}

type AnalysisServices struct {
	RegionHost string        `env:"AAS_REGION_HOST,notEmpty"`
	ServerName string        `env:"AAS_SERVER_NAME,notEmpty"`
	Database   string        `env:"AAS_DATABASE,notEmpty"`
	Timeout    time.Duration `env:"AAS_TIMEOUT" envDefault:"2m"`
}

// ConnectionString returns the ADOMD-style connection string for the configured
// server, used in diagnostics.
func (aas AnalysisServices) ConnectionString() string {
	return fmt.Sprintf(
		"Data Source=asazure://%s/%s;Initial Catalog=%s;", aas.RegionHost, aas.ServerName, aas.Database,
	)
}

type Identity struct {
	TenantID      string `env:"TENANT_ID,notEmpty"`
	ClientID      string `env:"CLIENT_ID,notEmpty"`
	ClientSecret  string `env:"CLIENT_SECRET,notEmpty"`
	AuthorityHost string `env:"AUTHORITY_HOST" envDefault:"https://login.microsoftonline.com"`
	Scope         string `env:"AAS_SCOPE" envDefault:"https://*.asazure.windows.net/.default"`
}

// TokenURL is the v2 token endpoint of the tenant.
func (identity Identity) TokenURL() string {
	return fmt.Sprintf(
		"%s/%s/oauth2/v2.0/token", strings.TrimRight(identity.AuthorityHost, "/"), identity.TenantID,
	)
}

type History struct {
	// Empty disables query history.
	DSN string `env:"QUERY_HISTORY_DSN" envDefault:""`
}

func (history History) Enabled() bool {
	return history.DSN != ""
}

type Log struct {
	Level slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	JSON  bool       `env:"LOG_JSON" envDefault:"false"`
}

// ReadFromEnv loads .env if present, then parses the process environment.
func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	return parse(env.Options{RequiredIfNoDef: true})
}

// ReadFromMap parses configuration from the given variables only.
func ReadFromMap(environment map[string]string) (Config, error) {
	return parse(env.Options{RequiredIfNoDef: true, Environment: environment})
}

func parse(options env.Options) (Config, error) {
	var config Config
	var errs []error
	if err := env.ParseWithOptions(&config, options); err != nil {
		errs = append(errs, err)
	}
	if err := config.API.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, wrap.Error(errors.Join(errs...), "invalid environment variables")
	}
	return config, nil
}

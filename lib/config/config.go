package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"studyhub-backend/lib/configutil"

	"dario.cat/mergo"
)

const (
	DefaultBaseUrl         = "https://canvas.instructure.com/api/v1/courses"
	DefaultEnrollmentState = "active"
	DefaultStoreFile       = "studyhub.db"

	EnvBaseUrl         = "CANVAS_BASE_URL"
	EnvAccessToken     = "CANVAS_ACCESS_TOKEN"
	EnvEnrollmentState = "CANVAS_ENROLLMENT_STATE"
)

type Store struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type Config struct {
	BaseUrl         string `json:"base_url"`
	AccessToken     string `json:"access_token"`
	EnrollmentState string `json:"enrollment_state"`
	// 0 means no timeout.
	TimeoutSeconds int   `json:"timeout_seconds"`
	Store          Store `json:"store"`
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks that every value needed to build a course request is present.
func (c Config) Validate() error {
	var errs []error
	if c.BaseUrl == "" {
		errs = append(errs, fmt.Errorf("base_url is empty"))
	}
	if c.AccessToken == "" {
		errs = append(errs, fmt.Errorf("access_token is empty (set %s)", EnvAccessToken))
	}
	if c.EnrollmentState == "" {
		errs = append(errs, fmt.Errorf("enrollment_state is empty"))
	}
	return errors.Join(errs...)
}

func defaults() Config {
	return Config{
		BaseUrl:         DefaultBaseUrl,
		EnrollmentState: DefaultEnrollmentState,
		Store: Store{
			File: DefaultStoreFile,
		},
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseUrl); v != "" {
		c.BaseUrl = v
	}
	if v := getenv(EnvAccessToken); v != "" {
		c.AccessToken = v
	}
	if v := getenv(EnvEnrollmentState); v != "" {
		c.EnrollmentState = v
	}
}

// Load resolves the configuration from defaults, the json5 file at `path`
// (with its .local override) and the environment, in that order of
// increasing priority. A missing file is not an error.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := defaults()

	if path != "" {
		file, err := configutil.ReadConfig[Config](path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("no config file found, using defaults and environment", "path", path)
		case err != nil:
			return Config{}, err
		default:
			err = mergo.Merge(&cfg, file, mergo.WithOverride)
			if err != nil {
				return Config{}, err
			}
		}
	}

	cfg.applyEnv(getenv)
	return cfg, nil
}

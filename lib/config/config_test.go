package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "canvas.json5"), envFrom(nil))
	require.NoError(t, err)
	require.Equal(t, DefaultBaseUrl, cfg.BaseUrl)
	require.Equal(t, DefaultEnrollmentState, cfg.EnrollmentState)
	require.Equal(t, DefaultStoreFile, cfg.Store.File)
	require.Empty(t, cfg.AccessToken)
	require.Equal(t, time.Duration(0), cfg.Timeout())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.json5")
	err := os.WriteFile(path, []byte(`{
		base_url: "https://school.instructure.com/api/v1/courses",
		access_token: "from-file",
		enrollment_state: "completed",
		timeout_seconds: 10,
		store: { file: "courses.db" },
	}`), 0600)
	require.NoError(t, err)

	cfg, err := Load(path, envFrom(map[string]string{
		EnvAccessToken: "from-env",
	}))
	require.NoError(t, err)
	require.Equal(t, "https://school.instructure.com/api/v1/courses", cfg.BaseUrl)
	require.Equal(t, "from-env", cfg.AccessToken)
	require.Equal(t, "completed", cfg.EnrollmentState)
	require.Equal(t, 10*time.Second, cfg.Timeout())
	require.Equal(t, "courses.db", cfg.Store.File)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{ base_url: `), 0600))

	_, err := Load(path, envFrom(nil))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{BaseUrl: DefaultBaseUrl, AccessToken: "token", EnrollmentState: "active"}
	require.NoError(t, cfg.Validate())

	err := Config{}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "base_url")
	require.Contains(t, err.Error(), EnvAccessToken)
	require.Contains(t, err.Error(), "enrollment_state")
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"procstudio-console/internal/config"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{
		"PROCSTUDIO_CONFIG", "PROCSTUDIO_CONFIG_DIR", "PORT", "PROCSTUDIO_API_URL",
		"PROCSTUDIO_DEBUG_TOKEN", "PROCSTUDIO_LOG", "TLS_CERT_FILE", "TLS_KEY_FILE",
		"PROCSTUDIO_HTTP_TIMEOUT", "PROCSTUDIO_CACHE_TTL", "PROCSTUDIO_CACHE_SWEEP",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func runLoad(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var got config.Config
	cmd := newCommand()
	cmd.Action = func(_ context.Context, c *cli.Command) error {
		var err error
		got, err = loadConfig(c)
		return err
	}
	err := cmd.Run(context.Background(), append([]string{"procstudio-console"}, args...))
	return got, err
}

func TestLoadConfigPrecedence(t *testing.T) {
	isolateEnv(t)
	file := filepath.Join(t.TempDir(), "procstudio.yaml")
	require.NoError(t, os.WriteFile(file, []byte("port: \"4000\"\napi_url: https://file.example\ncache:\n  teams_ttl: 2m\n"), 0o600))
	t.Setenv("PROCSTUDIO_API_URL", "https://env.example")

	cfg, err := runLoad(t, "--config", file, "--port", "5000")
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "https://env.example", cfg.APIURL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TeamsTTL)
	assert.Equal(t, file, cfg.Source)
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := runLoad(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigInvalid(t *testing.T) {
	isolateEnv(t)

	_, err := runLoad(t, "--api-url", " ")
	assert.ErrorContains(t, err, "api_url is required")
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 10*time.Second, cfg.EmailTimeout)
	assert.Equal(t, int64(65536), cfg.WSMaxMessageSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uat.yaml")
	content := "http_port: 9000\npublic_base_url: https://uat.example.com/\nemail_api_key: from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("EMAIL_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "https://uat.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "from-env", cfg.EmailAPIKey)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "-1")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	for _, env := range []string{"WS_PING_INTERVAL_MS", "WS_READ_TIMEOUT_MS", "WS_WRITE_TIMEOUT_MS", "EMAIL_TIMEOUT_MS", "LLM_TIMEOUT_MS"} {
		for _, value := range []string{"0", "-5"} {
			t.Run(env+"="+value, func(t *testing.T) {
				t.Setenv(env, value)
				_, err := Load("")
				require.Error(t, err)
				assert.Contains(t, err.Error(), strings.ToLower(env))
			})
		}
	}
}

func TestLoadRejectsBadMessageSize(t *testing.T) {
	t.Setenv("WS_MAX_MESSAGE_SIZE", "0")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

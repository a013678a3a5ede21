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

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyConfig()

	assert.Equal(t, DefaultBackendURL, cfg.GetBackendURL())
	assert.Equal(t, DefaultListen, cfg.GetListen())
	assert.Equal(t, DefaultRequestTimeout, cfg.GetRequestTimeout())
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.GetMaxUploadBytes())
	assert.Equal(t, DefaultPalette, cfg.GetPalette())
	assert.Empty(t, cfg.GetEchartsAssetsHost())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "covdash.json", `{
		"backend_url": "http://coverage.internal:9000/",
		"request_timeout": "3s",
		"palette": ["#112233", "#445566"]
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://coverage.internal:9000", cfg.GetBackendURL())
	assert.Equal(t, 3*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, []string{"#112233", "#445566"}, cfg.GetPalette())
	// unset fields keep defaults
	assert.Equal(t, DefaultListen, cfg.GetListen())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "covdash.yaml", "backend_url: https://cov.example.com\nlisten: \":9090\"\nmax_upload_bytes: 1024\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cov.example.com", cfg.GetBackendURL())
	assert.Equal(t, ":9090", cfg.GetListen())
	assert.Equal(t, int64(1024), cfg.GetMaxUploadBytes())
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad extension", "covdash.toml", "x = 1", "extension"},
		{"malformed json", "covdash.json", "{", "failed to parse"},
		{"bad scheme", "covdash.json", `{"backend_url": "ftp://x"}`, "http or https"},
		{"no host", "covdash.json", `{"backend_url": "http://"}`, "no host"},
		{"bad timeout", "covdash.json", `{"request_timeout": "soon"}`, "request_timeout"},
		{"negative timeout", "covdash.json", `{"request_timeout": "-1s"}`, "non-negative"},
		{"zero upload cap", "covdash.yml", "max_upload_bytes: 0\n", "max_upload_bytes"},
		{"bad palette", "covdash.json", `{"palette": ["red"]}`, "palette[0]"},
		{"empty listen", "covdash.json", `{"listen": ""}`, "listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestLoadConfig_TooLarge(t *testing.T) {
	big := `{"listen": ":8080", "pad": "` + strings.Repeat("x", maxConfigFileSize) + `"}`
	_, err := LoadConfig(writeConfig(t, "big.json", big))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestSetters(t *testing.T) {
	cfg := EmptyConfig()
	cfg.SetBackendURL("http://10.0.0.5:8000")
	cfg.SetListen("127.0.0.1:7000")
	cfg.SetRequestTimeout(1500 * time.Millisecond)
	cfg.SetMaxUploadBytes(2048)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://10.0.0.5:8000", cfg.GetBackendURL())
	assert.Equal(t, "127.0.0.1:7000", cfg.GetListen())
	assert.Equal(t, 1500*time.Millisecond, cfg.GetRequestTimeout())
	assert.Equal(t, int64(2048), cfg.GetMaxUploadBytes())
}

func TestGetPaletteReturnsCopy(t *testing.T) {
	cfg := EmptyConfig()
	p := cfg.GetPalette()
	p[0] = "#000000"
	assert.Equal(t, "#0088FE", DefaultPalette[0])
}

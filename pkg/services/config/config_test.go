package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "site-report.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "site-report.db", cfg.Database.Path)
	assert.Equal(t, BlobBackendDuckDB, cfg.Blob.Backend)
	assert.Equal(t, 10*time.Second, cfg.Undo.Window)
	assert.Empty(t, cfg.TextAPI.BaseURL)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `server:
  host: 0.0.0.0
  port: 9090
database:
  path: /var/lib/site-report/reports.db
blob:
  backend: s3
  s3:
    bucket: inspections
    region: eu-central-1
text_api:
  base_url: http://localhost:8000
  timeout: 5s
undo:
  window: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "/var/lib/site-report/reports.db", cfg.Database.Path)
	assert.Equal(t, "inspections", cfg.Blob.S3.Bucket)
	assert.Equal(t, "site-report", cfg.Blob.S3.Prefix)
	assert.Equal(t, "http://localhost:8000", cfg.TextAPI.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.TextAPI.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Undo.Window)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SITE_REPORT_DATABASE_PATH", "env.db")
	t.Setenv("SITE_REPORT_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown backend", content: "blob:\n  backend: ftp\n", want: "Backend"},
		{name: "s3 without bucket", content: "blob:\n  backend: s3\n", want: "bucket"},
		{name: "bad url", content: "mail:\n  base_url: not a url\n", want: "BaseURL"},
		{name: "bad yaml", content: "server: [", want: "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn"}.NewLogger(&buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

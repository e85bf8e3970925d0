package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Reporting: ReportingConfig{Timezone: "UTC", JobTimeout: time.Minute},
		Storage:   StorageConfig{Driver: "fs", Root: "data"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "APP_PORT"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: "DATABASE_DRIVER"},
		{name: "missing dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: "DATABASE_DSN"},
		{name: "bad timezone", mutate: func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "zero job timeout", mutate: func(c *Config) { c.Reporting.JobTimeout = 0 }, wantErr: "JOB_TIMEOUT"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Driver = "s3" }, wantErr: "STORAGE_BUCKET"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Driver = "ftp" }, wantErr: "STORAGE_DRIVER"},
		{
			name:    "whatsapp without phone id",
			mutate:  func(c *Config) { c.WhatsApp = WhatsAppConfig{AccessToken: "tok", VerifyToken: "v", BaseURL: "x", APIVersion: "v20.0"} },
			wantErr: "WHATSAPP_PHONE_NUMBER_ID",
		},
		{
			name:   "whatsapp disabled needs nothing",
			mutate: func(c *Config) { c.WhatsApp = WhatsAppConfig{} },
		},
		{
			name:    "sheet without credentials",
			mutate:  func(c *Config) { c.Sheets.SpreadsheetID = "sheet" },
			wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNil(t *testing.T) {
	var c *Config
	assert.Error(t, c.Validate())
}

func TestLoadDefaultsAndEnvironment(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DATABASE_DSN", ":memory:")
	t.Setenv("WHATSAPP_TOKEN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "UTC", cfg.Reporting.Timezone)
	assert.Equal(t, 2*time.Minute, cfg.Reporting.JobTimeout)
	assert.Equal(t, "0 20 * * 0", cfg.Reporting.WeeklyReportSchedule)
	assert.Equal(t, "fs", cfg.Storage.Blob().Driver)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.Empty(t, cfg.MongoDB.URI)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: "7000"
  cors_origins: ["https://farm.example"]
database:
  driver: postgres
  dsn: postgres://farm@localhost/farm
storage:
  driver: s3
  bucket: reports
reporting:
  timezone: UTC
  job_timeout: 30s
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WHATSAPP_TOKEN", "")

	cfg, err := Load(filepath.Join(dir, "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"https://farm.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "reports", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Reporting.JobTimeout)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mamadbah2/dairyfarm/internal/blob"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Redis     RedisConfig     `mapstructure:"redis"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	AI        AIConfig        `mapstructure:"ai"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig selects the relational backend. Driver is postgres or sqlite.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// MongoDBConfig holds the summary archive settings. An empty URI disables the archive.
type MongoDBConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"db_name"`
}

// SheetsConfig contains configuration required to export summaries to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
}

// RedisConfig points the notification broker at redis. Without an address the
// broker stays in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string `mapstructure:"token"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	VerifyToken   string `mapstructure:"verify_token"`
	BaseURL       string `mapstructure:"base_url"`
	APIVersion    string `mapstructure:"api_version"`
	ManagerNumber string `mapstructure:"manager_number"`
	DefaultFarmID string `mapstructure:"default_farm_id"`
}

// Enabled reports whether messaging is configured at all.
func (w WhatsAppConfig) Enabled() bool { return w.AccessToken != "" }

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string `mapstructure:"anthropic_key"`
	Model        string `mapstructure:"model"`
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	DailyMilkSchedule    string        `mapstructure:"daily_milk_schedule"`
	MonthlySchedule      string        `mapstructure:"monthly_schedule"`
	AlertsSchedule       string        `mapstructure:"alerts_schedule"`
	WeeklyReportSchedule string        `mapstructure:"weekly_report_schedule"`
	Timezone             string        `mapstructure:"timezone"`
	JobTimeout           time.Duration `mapstructure:"job_timeout"`
}

// Location resolves the configured timezone.
func (r ReportingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	Root      string `mapstructure:"root"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Blob converts the storage section into the blob package's settings.
func (s StorageConfig) Blob() blob.Config {
	return blob.Config{
		Driver:    s.Driver,
		Root:      s.Root,
		Bucket:    s.Bucket,
		Region:    s.Region,
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		PathStyle: s.PathStyle,
	}
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// envNames maps each key to the environment variables that may set it, the
// first one found winning. Keys not listed here still resolve from the
// upper-cased key with dots turned into underscores (DATABASE_DSN, ...).
var envNames = map[string][]string{
	"server.port":                      {"APP_PORT", "SERVER_PORT"},
	"server.cors_origins":              {"CORS_ALLOWED_ORIGINS"},
	"whatsapp.token":                   {"WHATSAPP_TOKEN"},
	"whatsapp.phone_number_id":         {"WHATSAPP_PHONE_NUMBER_ID"},
	"whatsapp.verify_token":            {"META_VERIFY_TOKEN"},
	"whatsapp.base_url":                {"WHATSAPP_BASE_URL"},
	"whatsapp.api_version":             {"WHATSAPP_API_VERSION"},
	"whatsapp.manager_number":          {"WHATSAPP_MANAGER_NUMBER"},
	"whatsapp.default_farm_id":         {"WHATSAPP_DEFAULT_FARM_ID", "DEFAULT_FARM_ID"},
	"sheets.credentials_path":          {"GOOGLE_SHEETS_CREDENTIALS_PATH"},
	"sheets.spreadsheet_id":            {"GOOGLE_SHEET_DATABASE_ID"},
	"ai.anthropic_key":                 {"ANTHROPIC_API_KEY"},
	"mongodb.uri":                      {"MONGODB_URI"},
	"mongodb.db_name":                  {"MONGODB_DB_NAME"},
	"reporting.weekly_report_schedule": {"REPORT_CRON_SCHEDULE"},
	"reporting.timezone":               {"TIMEZONE"},
	"log.level":                        {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:dairyfarm.db?_pragma=foreign_keys(1)")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("mongodb.db_name", "dairyfarm")
	v.SetDefault("whatsapp.base_url", "https://graph.facebook.com")
	v.SetDefault("whatsapp.api_version", "v20.0")
	v.SetDefault("ai.model", "claude-3-haiku-20240307")
	v.SetDefault("reporting.daily_milk_schedule", "30 0 * * *")
	v.SetDefault("reporting.monthly_schedule", "0 1 1 * *")
	v.SetDefault("reporting.alerts_schedule", "0 6 * * *")
	v.SetDefault("reporting.weekly_report_schedule", "0 20 * * 0")
	v.SetDefault("reporting.timezone", "Africa/Nairobi")
	v.SetDefault("reporting.job_timeout", "2m")
	v.SetDefault("storage.driver", "fs")
	v.SetDefault("storage.root", "data/reports")
	v.SetDefault("log.level", "info")
}

// Load reads environment variables (optionally from the provided .env file),
// layers the YAML file named by CONFIG_FILE on top of the defaults and
// materializes a validated Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// a missing .env is fine when the environment is set directly
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "configs/config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings each enabled feature depends on.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("APP_PORT must be provided"))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be provided"))
	}

	if c.Reporting.Timezone == "" {
		errs = append(errs, errors.New("TIMEZONE must be provided"))
	} else if _, err := c.Reporting.Location(); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err))
	}
	if c.Reporting.JobTimeout <= 0 {
		errs = append(errs, errors.New("REPORTING_JOB_TIMEOUT must be positive"))
	}

	switch c.Storage.Driver {
	case "fs", "":
		if c.Storage.Root == "" {
			errs = append(errs, errors.New("STORAGE_ROOT must be provided for the fs driver"))
		}
	case "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET must be provided for the s3 driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not supported", c.Storage.Driver))
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			errs = append(errs, errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided"))
		case c.WhatsApp.VerifyToken == "":
			errs = append(errs, errors.New("META_VERIFY_TOKEN must be provided"))
		case c.WhatsApp.BaseURL == "":
			errs = append(errs, errors.New("WHATSAPP_BASE_URL must not be empty"))
		case c.WhatsApp.APIVersion == "":
			errs = append(errs, errors.New("WHATSAPP_API_VERSION must not be empty"))
		}
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		errs = append(errs, errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_DATABASE_ID"))
	}

	return errors.Join(errs...)
}

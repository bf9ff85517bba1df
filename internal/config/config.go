package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Store backends understood by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendREST     = "rest"
	BackendMongoDB  = "mongodb"
	BackendPostgres = "postgres"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	Sync      SyncConfig
	Shop      ShopConfig
	Operator  OperatorConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port            string
	RecordStorePort string
}

// LogConfig tunes the zap logger.
type LogConfig struct {
	Level string
}

// StoreConfig selects and tunes the record store backend.
type StoreConfig struct {
	Backend string
	BaseURL string
	File    string
	Timeout time.Duration
}

// SyncConfig drives the polling task.
type SyncConfig struct {
	Interval time.Duration
}

// ShopConfig holds pricing rules and the shop's local time zone.
type ShopConfig struct {
	SurchargeAmount float64
	Timezone        string
}

// OperatorConfig is the dashboard login gate. It keeps casual visitors out
// and nothing more.
type OperatorConfig struct {
	User         string
	Password     string
	PasswordHash string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// Reports are only sent when AccessToken and PhoneNumberID are set.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	ReportTo      string
	VerifyToken   string
	AppSecret     string
}

// Enabled reports whether closing reports should be sent over WhatsApp.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.ReportTo != ""
}

// ChatEnabled reports whether the operator chat webhook should be served.
func (c WhatsAppConfig) ChatEnabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.VerifyToken != ""
}

// Recipients splits ReportTo into phone numbers.
func (c WhatsAppConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(c.ReportTo, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether closing reports should be appended to a sheet.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// PostgresConfig holds settings for the relational backend.
type PostgresConfig struct {
	DSN string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	storeTimeout, err := getDurationWithDefault("STORE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	syncInterval, err := getDurationWithDefault("SYNC_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	surcharge, err := getFloatWithDefault("SURCHARGE_AMOUNT", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getenvWithDefault("APP_PORT", "8080"),
			RecordStorePort: getenvWithDefault("RECORDSTORE_PORT", "3000"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend: getenvWithDefault("STORE_BACKEND", BackendMemory),
			BaseURL: getenvWithDefault("STORE_BASE_URL", "http://localhost:3000"),
			File:    os.Getenv("STORE_FILE"),
			Timeout: storeTimeout,
		},
		Sync: SyncConfig{
			Interval: syncInterval,
		},
		Shop: ShopConfig{
			SurchargeAmount: surcharge,
			Timezone:        getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		},
		Operator: OperatorConfig{
			User:         getenvWithDefault("OPERATOR_USER", "admin"),
			Password:     getenvWithDefault("OPERATOR_PASSWORD", "admin"),
			PasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 1-6"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ReportTo:      os.Getenv("WHATSAPP_REPORT_TO"),
			VerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
			AppSecret:     os.Getenv("WHATSAPP_APP_SECRET"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "barberdash"),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendREST:
		if c.Store.BaseURL == "" {
			return errors.New("STORE_BASE_URL must be provided for the rest backend")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
			return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided for the mongodb backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN must be provided for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Sync.Interval < time.Second {
		return errors.New("SYNC_INTERVAL must be at least 1s")
	}

	if c.Shop.SurchargeAmount < 0 {
		return errors.New("SURCHARGE_AMOUNT must not be negative")
	}

	if _, err := time.LoadLocation(c.Shop.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Shop.Timezone, err)
	}

	if c.Operator.User == "" {
		return errors.New("OPERATOR_USER must be provided")
	}
	if c.Operator.Password == "" && c.Operator.PasswordHash == "" {
		return errors.New("OPERATOR_PASSWORD or OPERATOR_PASSWORD_HASH must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.WhatsApp.AccessToken != "" {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	return nil
}

// Location resolves the shop time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Shop.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getFloatWithDefault(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

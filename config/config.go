package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite3"
)

// Backends for optional integrations.
const (
	BackendNone     = "none"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
)

type Config struct {
	ServerPort     int            `yaml:"server_port"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Log            LogConfig      `yaml:"log"`
	Database       DatabaseConfig `yaml:"database"`
	Auth           AuthConfig     `yaml:"auth"`
	Events         EventsConfig   `yaml:"events"`
	Export         ExportConfig   `yaml:"export"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	ReaderHost string `yaml:"reader_host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"db_name"`
	UseSSL     bool   `yaml:"use_ssl"`
	SQLitePath string `yaml:"sqlite_path"`
}

type AuthConfig struct {
	JWTSecret                string `yaml:"jwt_secret"`
	JWTAlgorithm             string `yaml:"jwt_algorithm"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes"`
}

type EventsConfig struct {
	Backend  string         `yaml:"backend"`
	Channel  string         `yaml:"channel"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
}

type RabbitMQConfig struct {
	URL             string `yaml:"url"`
	QueueDurable    bool   `yaml:"queue_durable"`
	QueueAutoDelete bool   `yaml:"queue_auto_delete"`
	PrefetchCount   int    `yaml:"prefetch_count"`
}

type PubSubConfig struct {
	ProjectID          string `yaml:"project_id"`
	CredentialsFile    string `yaml:"credentials_file"`
	SubscriptionSuffix string `yaml:"subscription_suffix"`
}

type ExportConfig struct {
	Backend string      `yaml:"backend"`
	Minio   MinioConfig `yaml:"minio"`
	GCS     GCSConfig   `yaml:"gcs"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type GCSConfig struct {
	ProjectID       string `yaml:"project_id"`
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Driver:     getEnv("DB_DRIVER", DriverPostgres),
		Host:       getEnv("DB_HOST", "localhost"),
		ReaderHost: getEnv("DB_READER_HOST", ""),
		Port:       getEnvInt("DB_PORT", 5432),
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "notes_db"),
		UseSSL:     getEnvBool("DB_USE_SSL", false),
		SQLitePath: getEnv("DB_SQLITE_PATH", "notes.db"),
	}

	authConfig := AuthConfig{
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTAlgorithm:             getEnv("JWT_ALGORITHM", "HS256"),
		AccessTokenExpireMinutes: getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
	}

	eventsConfig := EventsConfig{
		Backend: getEnv("EVENTS_BACKEND", BackendNone),
		Channel: getEnv("EVENTS_CHANNEL", "notes-activity"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH_COUNT", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	exportConfig := ExportConfig{
		Backend: getEnv("EXPORT_BACKEND", BackendNone),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "notes-exports"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			Bucket:          getEnv("GCS_BUCKET", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8000"}),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: dbConfig,
		Auth:     authConfig,
		Events:   eventsConfig,
		Export:   exportConfig,
	}
}

// Load returns the environment configuration overlaid with the YAML file at
// path, if any. ${VAR} references in the file are expanded from the
// environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := LoadConfig()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ServerPort, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("json", "console")),
	)
}

func (c *DatabaseConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverPostgres, DriverPGX, DriverSQLite)),
	); err != nil {
		return err
	}
	if c.Driver == DriverSQLite {
		return validation.ValidateStruct(c,
			validation.Field(&c.SQLitePath, validation.Required),
		)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.DBName, validation.Required),
	)
}

// IsSQLite reports whether the configured driver is SQLite.
func (c DatabaseConfig) IsSQLite() bool {
	return c.Driver == DriverSQLite
}

func (c *AuthConfig) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTAlgorithm, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.AccessTokenExpireMinutes, validation.Required, validation.Min(1)),
	)
}

func (c *EventsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendNone, BackendRabbitMQ, BackendPubSub)),
	); err != nil {
		return err
	}
	switch c.Backend {
	case BackendRabbitMQ:
		if err := validation.Validate(c.Channel, validation.Required); err != nil {
			return fmt.Errorf("channel: %w", err)
		}
		return c.RabbitMQ.Validate()
	case BackendPubSub:
		if err := validation.Validate(c.Channel, validation.Required); err != nil {
			return fmt.Errorf("channel: %w", err)
		}
		return c.PubSub.Validate()
	}
	return nil
}

func (c *RabbitMQConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.PrefetchCount, validation.Min(0)),
	)
}

func (c *PubSubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProjectID, validation.Required),
	)
}

// Enabled reports whether an events backend is configured.
func (c EventsConfig) Enabled() bool {
	return c.Backend != "" && c.Backend != BackendNone
}

func (c *ExportConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendNone, BackendMinio, BackendGCS)),
	); err != nil {
		return err
	}
	switch c.Backend {
	case BackendMinio:
		return c.Minio.Validate()
	case BackendGCS:
		return c.GCS.Validate()
	}
	return nil
}

func (c *MinioConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.AccessKey, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
	)
}

func (c *GCSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
	)
}

// Enabled reports whether an export backend is configured.
func (c ExportConfig) Enabled() bool {
	return c.Backend != "" && c.Backend != BackendNone
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if v := strings.TrimRight(strings.TrimSpace(part), "/"); v != "" {
			values = append(values, v)
		}
	}
	return values
}

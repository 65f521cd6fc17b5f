package formpipe

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config consolidates settings for the import/export pipeline.
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Import   ImportConfig   `json:"import" yaml:"import"`
	Export   ExportConfig   `json:"export" yaml:"export"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Database        string        `json:"database" yaml:"database"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
	SSLMode         string        `json:"sslMode" yaml:"ssl_mode"`
	MaxConnections  int           `json:"maxConnections" yaml:"max_connections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"conn_max_lifetime"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`

	// UseIAMAuth enables AWS DSQL token generation instead of a static
	// password (the password field is ignored when set).
	UseIAMAuth bool   `json:"useIamAuth" yaml:"use_iam_auth"`
	Region     string `json:"region" yaml:"region"`
}

// ImportConfig contains bulk import settings
type ImportConfig struct {
	// ChunkSize bounds how many input rows are validated and committed as
	// one transactional unit.
	ChunkSize int `json:"chunkSize" yaml:"chunk_size"`
	// ResponseBatchSize bounds the VALUES clause of one response insert.
	ResponseBatchSize int `json:"responseBatchSize" yaml:"response_batch_size"`
	// TempDir receives spreadsheet files downloaded from object storage.
	TempDir string `json:"tempDir" yaml:"temp_dir"`
	// S3Region overrides the ambient AWS region for source downloads.
	S3Region string `json:"s3Region" yaml:"s3_region"`
}

// ExportConfig contains export projection settings
type ExportConfig struct {
	TimeFormat string `json:"timeFormat" yaml:"time_format"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "formpipe",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Import: ImportConfig{
			ChunkSize:         500,
			ResponseBatchSize: 500,
			TempDir:           os.TempDir(),
		},
		Export: ExportConfig{
			TimeFormat: time.RFC3339,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfigFile reads a YAML configuration file over the defaults.
// Missing keys keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}
	if c.Import.ChunkSize <= 0 {
		return &ConfigError{Field: "import.chunkSize", Message: "must be greater than 0"}
	}
	if c.Import.ResponseBatchSize <= 0 {
		return &ConfigError{Field: "import.responseBatchSize", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

package common

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxConns        int32         `mapstructure:"max_conns" validate:"gte=1"`
	MinConns        int32         `mapstructure:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" validate:"required"`
	HTTPAddr string `mapstructure:"http_addr"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Provider    string   `mapstructure:"provider" validate:"oneof=tesseract azure"`
	TessdataDir string   `mapstructure:"tessdata_dir"`
	Languages   []string `mapstructure:"languages"`
	Preprocess  bool     `mapstructure:"preprocess"`
	// TargetWidth is the width in pixels images are resized to before OCR.
	TargetWidth int `mapstructure:"target_width" validate:"gte=0"`
	// Threshold is the 0-255 luminance cut used to binarize.
	Threshold     int    `mapstructure:"threshold" validate:"gte=0,lte=255"`
	AzureEndpoint string `mapstructure:"azure_endpoint"`
	AzureKey      string `mapstructure:"azure_key"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string        `mapstructure:"model" validate:"required"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds orchestration settings
type PipelineConfig struct {
	StageTimeout    time.Duration `mapstructure:"stage_timeout" validate:"gt=0"`
	AuditLog        bool          `mapstructure:"audit_log"`
	StrictLineItems bool          `mapstructure:"strict_line_items"`
	TempDir         string        `mapstructure:"temp_dir"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

var defaults = map[string]any{
	"database.driver":             "postgres",
	"database.max_conns":          20,
	"database.min_conns":          2,
	"database.max_conn_lifetime":  30 * time.Minute,
	"database.max_conn_idle_time": 5 * time.Minute,
	"database.dial_timeout":       3 * time.Second,
	"server.grpc_addr":            ":8080",
	"server.http_addr":            ":8081",
	"ocr.provider":                "tesseract",
	"ocr.languages":               []string{"eng"},
	"ocr.preprocess":              true,
	"ocr.target_width":            1800,
	"ocr.threshold":               160,
	"llm.model":                   "gpt-4o-mini",
	"llm.temperature":             0.1, // matches extract.DefaultTemperature
	"llm.timeout":                 45 * time.Second,
	"pipeline.stage_timeout":      60 * time.Second,
	"pipeline.audit_log":          true,
	"pipeline.strict_line_items":  false,
	"pipeline.temp_dir":           "",
	"logging.level":               "info",
}

// conventional variable names accepted next to the INVOICE_ prefixed ones
var envAliases = map[string][]string{
	"database.dsn":       {"DB_URL", "DATABASE_URL"},
	"llm.api_key":        {"OPENAI_API_KEY"},
	"llm.model":          {"OPENAI_MODEL"},
	"llm.base_url":       {"OPENAI_BASE_URL"},
	"ocr.tessdata_dir":   {"TESSDATA_PREFIX"},
	"ocr.azure_endpoint": {"AZURE_VISION_ENDPOINT"},
	"ocr.azure_key":      {"AZURE_VISION_KEY"},
}

// LoadConfig reads .env (if present), an optional YAML file and the
// environment. configFile may be empty.
func LoadConfig(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		prefixed := "INVOICE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", key)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:invoices.db"
	}
	return &cfg, nil
}

// Validate checks the struct tags. It does not require LLM or OCR
// credentials; see ValidateForPipeline.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}

// ValidateForPipeline additionally requires what processing an invoice needs.
func (c *Config) ValidateForPipeline() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.OCR.Provider == "azure" && (c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "") {
		return NewAppError(CodeConfig, "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for the azure provider", ErrInvalidInput)
	}
	return nil
}

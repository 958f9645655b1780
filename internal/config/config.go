package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"aicfo/internal/core"
)

const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port           string `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	// Ledger
	DataBackend     string `yaml:"data_backend"`
	MemorySeedFile  string `yaml:"memory_seed_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SpreadsheetName string `yaml:"spreadsheet_name"`
	SheetName       string `yaml:"sheet_name"`

	// Google service account; secrets are never read from the YAML file.
	ServiceAccountJSON string `yaml:"-"`
	ServiceAccountFile string `yaml:"service_account_file"`

	// Language model
	LLMProvider   string `yaml:"llm_provider"`
	LLMModel      string `yaml:"llm_model"`
	GeminiAPIKey  string `yaml:"-"`
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	Currency string `yaml:"currency"`

	// AMQP events, disabled when AMQPURL is empty
	AMQPURL        string `yaml:"-"`
	AMQPExchange   string `yaml:"amqp_exchange"`
	AMQPRoutingKey string `yaml:"amqp_routing_key"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:            "8081",
		MaxUploadBytes:  10 << 20,
		DataBackend:     BackendSheets,
		SpreadsheetName: "Expense_Tracker",
		LLMProvider:     "gemini",
		LLMModel:        "gemini-2.5-flash",
		Currency:        core.DefaultCurrency,
		AMQPExchange:    "aicfo",
		AMQPRoutingKey:  "expense.recorded",
		LogLevel:        "info",
	}
}

// LoadFile applies a YAML file over the defaults, then the environment over
// the file. An empty path reads the environment alone.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", c.DataBackend))
	c.MemorySeedFile = getEnv("MEMORY_SEED_FILE", c.MemorySeedFile)
	c.SpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.SpreadsheetID)
	c.SpreadsheetName = getEnv("GOOGLE_SPREADSHEET_NAME", c.SpreadsheetName)
	c.SheetName = getEnv("GOOGLE_SHEET_NAME", c.SheetName)
	c.ServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.ServiceAccountJSON)
	c.ServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.ServiceAccountFile)
	if c.ServiceAccountFile == "" {
		c.ServiceAccountFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	}

	c.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLMProvider))
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)

	c.Currency = strings.ToUpper(getEnv("CURRENCY", c.Currency))

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPRoutingKey = getEnv("AMQP_ROUTING_KEY", c.AMQPRoutingKey)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// APIKey returns the key of the selected model provider.
func (c *Config) APIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Credentials returns the service account key, inline JSON first.
func (c *Config) Credentials() ([]byte, error) {
	if strings.TrimSpace(c.ServiceAccountJSON) != "" {
		return []byte(c.ServiceAccountJSON), nil
	}
	if c.ServiceAccountFile == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(c.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1<<10 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSheets:
		if c.SpreadsheetID == "" && c.SpreadsheetName == "" {
			errors = append(errors, "either GOOGLE_SPREADSHEET_ID or GOOGLE_SPREADSHEET_NAME is required when using sheets backend")
		}
		if strings.TrimSpace(c.ServiceAccountJSON) == "" && c.ServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		} else if strings.TrimSpace(c.ServiceAccountJSON) == "" {
			if _, err := os.Stat(c.ServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.ServiceAccountFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendSheets, BackendMemory))
	}

	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
		if c.OpenAIBaseURL != "" {
			if u, err := url.Parse(c.OpenAIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid OPENAI_BASE_URL '%s'", c.OpenAIBaseURL))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid LLM provider '%s': must be one of [gemini openai]", c.LLMProvider))
	}

	if !core.IsKnownCurrency(c.Currency) {
		errors = append(errors, fmt.Sprintf("unknown currency '%s': must be an ISO 4217 code", c.Currency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

package common

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/pagemeta/constants"
)

// Config holds all pipeline configuration
type Config struct {
	// DocumentPath is the source document; set from the CLI argument.
	DocumentPath string `yaml:"document"`
	// OutputDir is the artifact root; documents are namespaced under it by stem.
	OutputDir string `yaml:"output_dir"`

	// Model is a provider-prefixed identifier, e.g. "openai/gpt-4o" or
	// "gemini/gemini-2.5-flash". A bare identifier routes to openai.
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// MaxPages caps page iteration in every stage; 0 means all pages.
	MaxPages int `yaml:"max_pages"`

	SkipExtractIfExists bool `yaml:"skip_extract_if_exists"`
	SkipContextIfExists bool `yaml:"skip_context_if_exists"`

	OpenAI    ProviderConfig  `yaml:"openai"`
	Gemini    ProviderConfig  `yaml:"gemini"`
	Extractor ExtractorConfig `yaml:"extractor"`
	History   HistoryConfig   `yaml:"history"`
}

// ProviderConfig holds model-provider credentials and endpoint overrides
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExtractorConfig holds the OCR/layout sidecar endpoint
type ExtractorConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig holds the run-history sidecar settings
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled"`
	DBPath   string `yaml:"db_path"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OutputDir:           getEnv("PAGEMETA_OUTPUT_DIR", "output"),
		Model:               getEnv("PAGEMETA_MODEL", "openai/gpt-4o"),
		Temperature:         getEnvAsFloat32("PAGEMETA_TEMPERATURE", 0.0),
		MaxTokens:           getEnvAsInt("PAGEMETA_MAX_TOKENS", 0),
		MaxPages:            getEnvAsInt("PAGEMETA_MAX_PAGES", 0),
		SkipExtractIfExists: true,
		SkipContextIfExists: true,
		OpenAI: ProviderConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Timeout: getEnvAsDuration("PAGEMETA_MODEL_TIMEOUT", 90*time.Second),
		},
		Gemini: ProviderConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Timeout: getEnvAsDuration("PAGEMETA_MODEL_TIMEOUT", 90*time.Second),
		},
		Extractor: ExtractorConfig{
			BaseURL: getEnv("PAGEMETA_EXTRACTOR_URL", "http://localhost:5001"),
			Timeout: getEnvAsDuration("PAGEMETA_EXTRACTOR_TIMEOUT", 120*time.Second),
		},
		History: HistoryConfig{},
	}
}

// LoadConfigFile overlays a YAML file on top of the env-derived config.
// Absent keys keep their current values.
func (c *Config) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapError(err, "read config "+path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return WrapError(err, "parse config "+path)
	}
	return nil
}

// HistoryDBPath resolves the run-history database location.
func (c *Config) HistoryDBPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return filepath.Join(c.OutputDir, "pagemeta.db")
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.DocumentPath == "" {
		return NewAppError("CONFIG_ERROR", "document path is required", ErrConfiguration)
	}
	if st, err := os.Stat(c.DocumentPath); err != nil || st.IsDir() {
		return NewAppError("CONFIG_ERROR", "document path does not point to a file: "+c.DocumentPath, ErrConfiguration)
	}
	ext := constants.NormalizeExt(filepath.Ext(c.DocumentPath))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return NewAppError("CONFIG_ERROR", "unsupported document format: "+ext, ErrConfiguration)
	}
	if c.OutputDir == "" {
		return NewAppError("CONFIG_ERROR", "output_dir is required", ErrConfiguration)
	}
	if c.Model == "" {
		return NewAppError("CONFIG_ERROR", "model identifier is required", ErrConfiguration)
	}
	if c.MaxPages < 0 {
		return NewAppError("CONFIG_ERROR", "max_pages must be >= 0", ErrConfiguration)
	}
	if c.OpenAI.APIKey == "" && c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "no model provider credentials found (set OPENAI_API_KEY or GEMINI_API_KEY)", ErrConfiguration)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Reader     ReaderConfig     `yaml:"reader"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Limits     LimitsConfig     `yaml:"limits"`
	Store      StoreConfig      `yaml:"store"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`
}

type AuthConfig struct {
	AppPassword      string `yaml:"app_password"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type OpenRouterConfig struct {
	APIURL         string  `yaml:"api_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	PDFEngine      string  `yaml:"pdf_engine"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type ReaderConfig struct {
	APIURL         string `yaml:"api_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type LimitsConfig struct {
	MaxClauses        int `yaml:"max_clauses"`
	MaxUploadMB       int `yaml:"max_upload_mb"`
	MaxAttachmentMB   int `yaml:"max_attachment_mb"`
	Workers           int `yaml:"workers"`
	CallIntervalMS    int `yaml:"call_interval_ms"`
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type StoreConfig struct {
	MaxJobs       int `yaml:"max_jobs"`
	JobTTLMinutes int `yaml:"job_ttl_minutes"`
}

type PromptsConfig struct {
	File string `yaml:"file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML config file, overlays secrets from the environment
// (a .env file is honored when present) and applies defaults. A missing
// config file is not an error; everything has a default except secrets.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Secrets always come from the environment when set
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouter.APIKey = v
	}
	if v := os.Getenv("JINA_API_KEY"); v != "" {
		cfg.Reader.APIKey = v
	}
	if v := os.Getenv("APP_PASSWORD"); v != "" {
		cfg.Auth.AppPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = "http://localhost:3000"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.OpenRouter.APIURL == "" {
		c.OpenRouter.APIURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = "openai/gpt-5-mini"
	}
	if c.OpenRouter.PDFEngine == "" {
		c.OpenRouter.PDFEngine = "pdf-text"
	}
	if c.OpenRouter.MaxTokens == 0 {
		c.OpenRouter.MaxTokens = 100000
	}
	if c.OpenRouter.TimeoutSeconds == 0 {
		c.OpenRouter.TimeoutSeconds = 120
	}
	if c.Reader.APIURL == "" {
		c.Reader.APIURL = "https://r.jina.ai"
	}
	if c.Reader.TimeoutSeconds == 0 {
		c.Reader.TimeoutSeconds = 60
	}
	if c.Archive.ExpireDays == 0 {
		c.Archive.ExpireDays = 7
	}
	if c.Limits.MaxClauses == 0 {
		c.Limits.MaxClauses = 10
	}
	if c.Limits.MaxUploadMB == 0 {
		c.Limits.MaxUploadMB = 50
	}
	if c.Limits.MaxAttachmentMB == 0 {
		c.Limits.MaxAttachmentMB = 20
	}
	if c.Limits.Workers == 0 {
		c.Limits.Workers = 3
	}
	if c.Limits.CallIntervalMS == 0 {
		c.Limits.CallIntervalMS = 500
	}
	if c.Limits.RequestsPerMinute == 0 {
		c.Limits.RequestsPerMinute = 100
	}
	if c.Store.MaxJobs == 0 {
		c.Store.MaxJobs = 100
	}
	if c.Store.JobTTLMinutes == 0 {
		c.Store.JobTTLMinutes = 60
	}
	if c.Prompts.File == "" {
		c.Prompts.File = "custom_prompt.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks that the configuration required for analysis is present.
// Reported by the health endpoint rather than enforced at startup.
func (c *Config) Validate() error {
	if c.OpenRouter.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY not configured")
	}
	if c.Auth.AppPassword == "" {
		return fmt.Errorf("APP_PASSWORD not configured")
	}
	return nil
}

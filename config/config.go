package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	LLM struct {
		Provider       string // "gemini", "mistral" or "ollama"
		APIKey         string
		Model          string
		ImageModel     string
		BaseURL        string
		MaxTokens      int
		TimeoutSecs    int
		Retries        int
		RequestsPerMin int
	}
	Database struct {
		Type   string // "sqlite", "libsql", "postgres" or "memory"
		DBName string
		Url    string
		Token  string
		DSN    string
	}
	Image struct {
		Provider string // "pollinations", "gemini" or "none"
		BaseURL  string
		Width    int
		Height   int
		Probe    bool
	}
	Similarity struct {
		Enabled    bool
		Provider   string // "ollama" or "gemini"
		BaseURL    string
		Model      string
		Dimensions int
		Limit      int
	}
	Server struct {
		Addr   string
		APIKey string
	}
	Log struct {
		Level      string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// Load reads config.yaml from . or ./config and applies STRATEGIA_ environment
// overrides, e.g. STRATEGIA_LLM_API_KEY.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadFile reads an explicit config file instead of searching for one.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("strategia")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and env vars are enough to run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	cfg.LLM.Provider = strings.ToLower(v.GetString("llm.provider"))
	cfg.LLM.APIKey = v.GetString("llm.api_key")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.ImageModel = v.GetString("llm.image_model")
	cfg.LLM.BaseURL = v.GetString("llm.base_url")
	cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	cfg.LLM.TimeoutSecs = v.GetInt("llm.timeout_secs")
	cfg.LLM.Retries = v.GetInt("llm.retries")
	cfg.LLM.RequestsPerMin = v.GetInt("llm.requests_per_min")

	cfg.Database.Type = strings.ToLower(v.GetString("database.type"))
	cfg.Database.DBName = v.GetString("database.dbname")
	cfg.Database.Url = v.GetString("database.url")
	cfg.Database.Token = v.GetString("database.token")
	cfg.Database.DSN = v.GetString("database.dsn")

	cfg.Image.Provider = strings.ToLower(v.GetString("image.provider"))
	cfg.Image.BaseURL = v.GetString("image.base_url")
	cfg.Image.Width = v.GetInt("image.width")
	cfg.Image.Height = v.GetInt("image.height")
	cfg.Image.Probe = v.GetBool("image.probe")

	cfg.Similarity.Enabled = v.GetBool("similarity.enabled")
	cfg.Similarity.Provider = strings.ToLower(v.GetString("similarity.provider"))
	cfg.Similarity.BaseURL = v.GetString("similarity.base_url")
	cfg.Similarity.Model = v.GetString("similarity.model")
	cfg.Similarity.Dimensions = v.GetInt("similarity.dimensions")
	cfg.Similarity.Limit = v.GetInt("similarity.limit")

	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Server.APIKey = v.GetString("server.api_key")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.File = v.GetString("log.file")
	cfg.Log.MaxSizeMB = v.GetInt("log.max_size_mb")
	cfg.Log.MaxBackups = v.GetInt("log.max_backups")
	cfg.Log.MaxAgeDays = v.GetInt("log.max_age_days")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.image_model", "gemini-2.5-flash-image")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.retries", 0)
	v.SetDefault("llm.requests_per_min", 30)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dbname", "strategia.db")

	// Image defaults
	v.SetDefault("image.provider", "pollinations")
	v.SetDefault("image.base_url", "https://image.pollinations.ai/prompt/")
	v.SetDefault("image.width", 1280)
	v.SetDefault("image.height", 720)
	v.SetDefault("image.probe", false)

	// Similarity defaults
	v.SetDefault("similarity.enabled", false)
	v.SetDefault("similarity.provider", "ollama")
	v.SetDefault("similarity.base_url", "http://localhost:11434")
	v.SetDefault("similarity.model", "nomic-embed-text")
	v.SetDefault("similarity.dimensions", 768)
	v.SetDefault("similarity.limit", 5)

	// Server defaults
	v.SetDefault("server.addr", ":8080")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

func validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "gemini", "mistral":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %q", cfg.LLM.Provider)
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("llm.provider must be gemini, mistral or ollama, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if cfg.LLM.Retries < 0 {
		return fmt.Errorf("llm.retries must not be negative")
	}

	switch cfg.Database.Type {
	case "sqlite":
		if cfg.Database.DBName == "" {
			return fmt.Errorf("database.dbname is required")
		}
	case "libsql":
		if cfg.Database.Url == "" {
			return fmt.Errorf("database.url is required for libsql")
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("database.type must be sqlite, libsql, postgres or memory, got %q", cfg.Database.Type)
	}

	switch cfg.Image.Provider {
	case "gemini":
		if cfg.LLM.Provider != "gemini" {
			return fmt.Errorf("image.provider gemini requires llm.provider gemini")
		}
	case "pollinations", "none":
	default:
		return fmt.Errorf("image.provider must be pollinations, gemini or none, got %q", cfg.Image.Provider)
	}

	if cfg.Similarity.Enabled {
		if cfg.Database.Type != "sqlite" {
			return fmt.Errorf("similarity requires database.type sqlite")
		}
		if cfg.Similarity.Dimensions <= 0 {
			return fmt.Errorf("similarity.dimensions must be positive")
		}
		switch cfg.Similarity.Provider {
		case "ollama", "gemini":
		default:
			return fmt.Errorf("similarity.provider must be ollama or gemini, got %q", cfg.Similarity.Provider)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Minio      MinioConfig      `yaml:"minio"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Languages  LanguagesConfig  `yaml:"languages"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Users      []User           `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days" validate:"gte=0"`
}

// ExtractorConfig points at the external document-extraction API used to
// turn uploaded PDF/DOCX files into plain text.
type ExtractorConfig struct {
	APIURL      string `yaml:"api_url"`
	APIToken    string `yaml:"api_token"`
	CallbackURL string `yaml:"callback_url"`
	Seed        string `yaml:"seed"`
}

// GeminiConfig configures the AI backend. An empty API key means the
// backend reports itself unavailable and every AI pass falls back.
type GeminiConfig struct {
	APIKey string `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model  string `yaml:"model"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours" validate:"gte=0"`
}

type StoreConfig struct {
	MaxContracts int `yaml:"max_contracts" validate:"gte=0"`
}

// CacheConfig bounds the on-disk analysis cache.
type CacheConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries" validate:"gte=0"`
}

// LanguagesConfig lists the output languages the app can produce directly.
type LanguagesConfig struct {
	Supported []string `yaml:"supported"`
	Default   string   `yaml:"default"`
}

// ClassifierConfig carries the heuristic tuning knobs. The keyword lists
// and thresholds are product tuning, so they live in config rather than in
// code; empty lists fall back to the built-in defaults.
type ClassifierConfig struct {
	ContractIndicators    []string `yaml:"contract_indicators"`
	NonContractIndicators []string `yaml:"non_contract_indicators"`
	MinContractMatches    int      `yaml:"min_contract_matches" validate:"gte=0"`
	MinNonContractMatches int      `yaml:"min_non_contract_matches" validate:"gte=0"`
	AIThreshold           int      `yaml:"ai_threshold" validate:"gte=0,lte=100"`
	AISnippetChars        int      `yaml:"ai_snippet_chars" validate:"gte=0"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

// Load reads the yaml config, applies CW_* environment overrides, fills
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Environment overrides, e.g. CW_GEMINI_API_KEY, CW_SERVER_PORT.
	if err := envconfig.Process("cw", &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Store.MaxContracts == 0 {
		cfg.Store.MaxContracts = 100
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "./data/analyses"
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}
	if len(cfg.Languages.Supported) == 0 {
		cfg.Languages.Supported = []string{"en", "fr", "de", "es", "it", "pt", "nl", "pl", "ar"}
	}
	if cfg.Languages.Default == "" {
		cfg.Languages.Default = "en"
	}
	if cfg.Classifier.MinContractMatches == 0 {
		cfg.Classifier.MinContractMatches = 5
	}
	if cfg.Classifier.MinNonContractMatches == 0 {
		cfg.Classifier.MinNonContractMatches = 2
	}
	if cfg.Classifier.AIThreshold == 0 {
		cfg.Classifier.AIThreshold = 80
	}
	if cfg.Classifier.AISnippetChars == 0 {
		cfg.Classifier.AISnippetChars = 2000
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the optional YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are probed in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config captures all runtime configuration. Every key can be set in the
// YAML file (lower-case) or as an upper-case environment variable.
type Config struct {
	Port                string `koanf:"port"`
	DBURL               string `koanf:"db_url"`
	AdminPassword       string `koanf:"admin_password"`
	AdminPasswordHash   string `koanf:"admin_password_hash"`
	SessionSecret       string `koanf:"session_secret"`
	SessionTTLMins      int    `koanf:"session_ttl_mins"`
	ReadTimeoutSecs     int    `koanf:"server_read_timeout"`
	WriteTimeoutSecs    int    `koanf:"server_write_timeout"`
	IdleTimeoutSecs     int    `koanf:"server_idle_timeout"`
	DBMaxConns          int    `koanf:"db_max_conns"`
	DBMinConns          int    `koanf:"db_min_conns"`
	DBMaxIdleSecs       int    `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs       int    `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs   int    `koanf:"db_conn_timeout_secs"`
	DBStatementCache    int    `koanf:"db_statement_cache_capacity"`
	UploadDir           string `koanf:"upload_dir"`
	MaxUploadMB         int    `koanf:"max_upload_mb"`
	OllamaURL           string `koanf:"ollama_url"`
	OllamaModel         string `koanf:"ollama_model"`
	OllamaTimeoutSecs   int    `koanf:"ollama_timeout_secs"`
	CORSOrigins         string `koanf:"cors_origins"`
	RateLimitRequests   int    `koanf:"rate_limit_requests"`
	RateLimitWindowSecs int    `koanf:"rate_limit_window_secs"`
	LogLevel            string `koanf:"log_level"`
	LogFormat           string `koanf:"log_format"`
	SiteTitle           string `koanf:"site_title"`
	SiteDescription     string `koanf:"site_description"`
	SiteURL             string `koanf:"site_url"`
	SiteAuthor          string `koanf:"site_author"`
	PostsPerPage        int    `koanf:"posts_per_page"`
}

func defaults() Config {
	return Config{
		Port:                "8080",
		SessionTTLMins:      12 * 60,
		ReadTimeoutSecs:     15,
		WriteTimeoutSecs:    15,
		IdleTimeoutSecs:     60,
		DBMaxConns:          20,
		DBMinConns:          2,
		DBMaxIdleSecs:       300,
		DBMaxLifeSecs:       3600,
		DBConnTimeoutSecs:   10,
		DBStatementCache:    256,
		UploadDir:           "uploads/recipes",
		MaxUploadMB:         10,
		OllamaModel:         "llama3",
		OllamaTimeoutSecs:   60,
		CORSOrigins:         "*",
		RateLimitRequests:   120,
		RateLimitWindowSecs: 60,
		LogLevel:            "info",
		LogFormat:           "json",
		SiteTitle:           "bakatårta.se",
		SiteDescription:     "Din guide till den perfekta kakan. Beprövade recept på svenska klassiker.",
		SiteURL:             "https://bakatarta.se",
		SiteAuthor:          "Elsa Lundström",
		PostsPerPage:        9,
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (highest priority), then validates it.
func Load() (Config, error) {
	cfg, err := read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase is Load for tools that only talk to the database; settings
// of the HTTP service are not required.
func LoadDatabase() (Config, error) {
	cfg, err := read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateDatabase(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func read() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	transform := func(key string) string {
		key = strings.ToLower(key)
		if !k.Exists(key) {
			return ""
		}
		return key
	}
	if err := k.Load(env.Provider("", ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid or missing setting.
func (cfg Config) Validate() error {
	if err := cfg.validateDatabase(); err != nil {
		return err
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	if cfg.SessionTTLMins <= 0 {
		return fmt.Errorf("SESSION_TTL_MINS must be positive")
	}
	if cfg.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if cfg.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if cfg.OllamaTimeoutSecs <= 0 {
		return fmt.Errorf("OLLAMA_TIMEOUT_SECS must be positive")
	}
	if cfg.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be non-negative")
	}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindowSecs <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECS must be positive")
	}
	if cfg.PostsPerPage <= 0 {
		return fmt.Errorf("POSTS_PER_PAGE must be positive")
	}
	if cfg.SiteURL == "" {
		return fmt.Errorf("SITE_URL is required")
	}
	return nil
}

func (cfg Config) validateDatabase() error {
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

// AllowedOrigins splits the comma separated CORS_ORIGINS value.
func (cfg Config) AllowedOrigins() []string {
	parts := strings.Split(cfg.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// SiteURLBase returns the site URL without a trailing slash.
func (cfg Config) SiteURLBase() string {
	return strings.TrimRight(cfg.SiteURL, "/")
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Compose   ComposeConfig   `mapstructure:"compose"`
	Cache     CacheConfig     `mapstructure:"cache"`
	BgRemoval BgRemovalConfig `mapstructure:"bg_removal"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

// LLMConfig covers both the analyzer and the general chat completion call.
// Both speak the OpenAI-compatible chat-completions protocol.
type LLMConfig struct {
	Model     string `mapstructure:"model"`
	ChatModel string `mapstructure:"chat_model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
}

type SearchConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	ResultCount  int           `mapstructure:"result_count"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type ComposeConfig struct {
	MinSize      int `mapstructure:"min_size"`       // px, lower clamp on the longer side
	MaxSize      int `mapstructure:"max_size"`       // px, upper clamp on the longer side
	Padding      int `mapstructure:"padding"`        // px between cells and canvas edge
	TextMaxWidth int `mapstructure:"text_max_width"` // px, hard cap 400
}

type CacheConfig struct {
	Image    ImageCacheConfig    `mapstructure:"image"`
	Analysis AnalysisCacheConfig `mapstructure:"analysis"`
}

type ImageCacheConfig struct {
	Backend string   `mapstructure:"backend"` // disk, s3
	Path    string   `mapstructure:"path"`    // disk backend root
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

type AnalysisCacheConfig struct {
	Backend   string        `mapstructure:"backend"` // memory, redis
	Size      int           `mapstructure:"size"`
	TTL       time.Duration `mapstructure:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	RedisPass string        `mapstructure:"redis_pass"`
}

type BgRemovalConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/chatmeme.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("llm.model", "mixtral-8x7b-32768")
	v.SetDefault("llm.chat_model", "grok-beta")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("search.base_url", "https://searx.be/search")
	v.SetDefault("search.result_count", 1)
	v.SetDefault("search.retry_count", 3)
	v.SetDefault("search.retry_backoff", time.Second)
	v.SetDefault("compose.min_size", 300)
	v.SetDefault("compose.max_size", 700)
	v.SetDefault("compose.padding", 10)
	v.SetDefault("compose.text_max_width", 400)
	v.SetDefault("cache.image.backend", "disk")
	v.SetDefault("cache.image.path", "./data/cache")
	v.SetDefault("cache.image.s3.use_ssl", true)
	v.SetDefault("cache.image.s3.bucket", "chatmeme")
	v.SetDefault("cache.analysis.backend", "memory")
	v.SetDefault("cache.analysis.size", 100)
	v.SetDefault("cache.analysis.ttl", 10*time.Minute)
	v.SetDefault("cache.analysis.redis_addr", "localhost:6379")
	v.SetDefault("bg_removal.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("llm.api_key", "GROQ_API_KEY")
	v.BindEnv("llm.base_url", "GROQ_BASE_URL")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("llm.chat_model", "CHAT_MODEL")
	v.BindEnv("search.base_url", "SEARCH_BASE_URL")
	v.BindEnv("search.api_key", "SEARCH_API_KEY")
	v.BindEnv("cache.image.s3.access_key", "S3_ACCESS_KEY")
	v.BindEnv("cache.image.s3.secret_key", "S3_SECRET_KEY")
	v.BindEnv("cache.image.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("cache.analysis.redis_addr", "REDIS_ADDR")
	v.BindEnv("cache.analysis.redis_pass", "REDIS_PASSWORD")
	v.BindEnv("bg_removal.api_key", "BG_REMOVAL_API_KEY")
	v.BindEnv("bg_removal.endpoint", "BG_REMOVAL_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

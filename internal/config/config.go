package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server ServerConfig
	App    AppConfig
	Store  StoreConfig
	Redis  RedisConfig
	Game   GameConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	// AllowedOrigins applies to CORS and to the reveal websocket.
	AllowedOrigins []string `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"arrodes-economy"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mysql, mongodb, redis or memory
	Path string `envconfig:"STORE_PATH" default:"./data/economy.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORE_DB_NAME" default:"arrodes"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"Arrodes"`
}

// RedisConfig holds Redis settings, used when STORE_TYPE=redis.
type RedisConfig struct {
	Host      string `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD" default:""`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"arrodes:economy"`
}

// GameConfig holds gameplay tuning.
type GameConfig struct {
	StartingBalance   int64         `envconfig:"GAME_STARTING_BALANCE" default:"20"`
	StartingLootboxes int           `envconfig:"GAME_STARTING_LOOTBOXES" default:"5"`
	FlushInterval     time.Duration `envconfig:"GAME_FLUSH_INTERVAL" default:"60s"`
	FlushTimeout      time.Duration `envconfig:"GAME_FLUSH_TIMEOUT" default:"2m"`
	TradeItemLimit    int           `envconfig:"GAME_TRADE_ITEM_LIMIT" default:"10"`
	RevealDelay       time.Duration `envconfig:"GAME_REVEAL_DELAY" default:"800ms"`
	RevealStream      bool          `envconfig:"GAME_REVEAL_STREAM" default:"true"`
	SeedDuration      time.Duration `envconfig:"GAME_SEED_DURATION" default:"15m"`
	WoodenDuration    time.Duration `envconfig:"GAME_WOODEN_DURATION" default:"30m"`
	ArcticDuration    time.Duration `envconfig:"GAME_ARCTIC_DURATION" default:"45m"`
	BeeDuration       time.Duration `envconfig:"GAME_BEE_DURATION" default:"10m"`
	EggDuration       time.Duration `envconfig:"GAME_EGG_DURATION" default:"1h"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Game.FlushInterval <= 0 {
		return nil, fmt.Errorf("failed to load config: GAME_FLUSH_INTERVAL must be positive")
	}
	if cfg.Game.TradeItemLimit <= 0 {
		return nil, fmt.Errorf("failed to load config: GAME_TRADE_ITEM_LIMIT must be positive")
	}
	if cfg.Game.StartingLootboxes < 0 {
		return nil, fmt.Errorf("failed to load config: GAME_STARTING_LOOTBOXES must not be negative")
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

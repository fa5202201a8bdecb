package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultJWTSecret = "your-secret-key"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Auth     AuthConfig     `json:"auth"`
	Tracing  TracingConfig  `json:"tracing"`
}

type ServerConfig struct {
	Host           string        `json:"host" env:"HOST" env-default:"localhost"`
	Port           string        `json:"port" env:"PORT" env-default:"8080"`
	ReadTimeout    time.Duration `json:"read_timeout" env:"READ_TIMEOUT" env-default:"30s"`
	WriteTimeout   time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout    time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
	Environment    string        `json:"environment" env:"ENVIRONMENT" env-default:"development"`
	AllowedOrigins []string      `json:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	LogLevel       string        `json:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host            string        `json:"host" env:"DB_HOST" env-default:"localhost"`
	Port            string        `json:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `json:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `json:"password" env:"DB_PASSWORD"`
	Name            string        `json:"name" env:"DB_NAME" env-default:"taskboard"`
	SSLMode         string        `json:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	SQLitePath      string        `json:"sqlite_path" env:"DB_SQLITE_PATH" env-default:"taskboard.db"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" env-default:"30m"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled" env:"REDIS_ENABLED" env-default:"true"`
	Host         string        `json:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port         string        `json:"port" env:"REDIS_PORT" env-default:"6379"`
	Password     string        `json:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int           `json:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"5"`
	MaxRetries   int           `json:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
	BoardListTTL time.Duration `json:"board_list_ttl" env:"REDIS_BOARD_LIST_TTL" env-default:"5m"`
}

type AuthConfig struct {
	JWTSecret      string        `json:"jwt_secret" env:"JWT_SECRET" env-default:"your-secret-key"`
	Issuer         string        `json:"issuer" env:"JWT_ISSUER" env-default:"taskboard-backend"`
	AccessTokenTTL time.Duration `json:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"24h"`
	BCryptCost     int           `json:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	ServiceName string `json:"service_name" env:"TRACING_SERVICE_NAME" env-default:"taskboard-backend"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if config.Database.Driver != DriverPostgres && config.Database.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Database.Password == "" && config.Database.Driver == DriverPostgres && config.IsProduction() {
		return nil, fmt.Errorf("database password is required in production")
	}

	if config.Auth.JWTSecret == defaultJWTSecret && config.IsProduction() {
		return nil, fmt.Errorf("JWT secret must be set in production")
	}

	return &config, nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Database.SQLitePath)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

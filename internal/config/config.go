package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App     AppConfig     `envPrefix:"APP_"`
	Log     LogConfig     `envPrefix:"LOG_"`
	DB      DBConfig      `envPrefix:"DB_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	JWT     JWTConfig     `envPrefix:"JWT_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	MinIO   MinIOConfig   `envPrefix:"MINIO_"`
	S3      S3Config      `envPrefix:"S3_"`
	CORS    CORSConfig    `envPrefix:"CORS_"`
	SMTP    SMTPConfig    `envPrefix:"SMTP_"`
	Plate   PlateConfig   `envPrefix:"PLATE_"`
	Device  DeviceConfig  `envPrefix:"DEVICE_"`
	Contact ContactConfig `envPrefix:"CONTACT_"`
	Limit   LimitConfig   `envPrefix:"RATE_LIMIT_"`
	OTP     OTPConfig     `envPrefix:"OTP_"`
}

type AppConfig struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`
}

// IsProduction reports whether the app runs with production settings
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"gatelog"`
	Password string `env:"PASSWORD" envDefault:"gatelog"`
	Name     string `env:"NAME" envDefault:"gatelog"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	TimeZone string `env:"TIMEZONE" envDefault:"UTC"`
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=" + d.TimeZone
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// DefaultJWTSecret is only accepted outside production
const DefaultJWTSecret = "default-secret"

type JWTConfig struct {
	Secret string        `env:"SECRET" envDefault:"default-secret"`
	Expiry time.Duration `env:"EXPIRY" envDefault:"2160h"`
}

type StorageConfig struct {
	Driver       string        `env:"DRIVER" envDefault:"minio"`
	SignedURLTTL time.Duration `env:"SIGNED_URL_TTL" envDefault:"1h"`
}

type MinIOConfig struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"SECRET_KEY" envDefault:"minioadmin"`
	Bucket    string `env:"BUCKET" envDefault:"gatelog-entries"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

type S3Config struct {
	Region       string `env:"REGION" envDefault:"us-east-1"`
	Endpoint     string `env:"ENDPOINT"`
	AccessKey    string `env:"ACCESS_KEY"`
	SecretKey    string `env:"SECRET_KEY"`
	Bucket       string `env:"BUCKET" envDefault:"gatelog-entries"`
	UsePathStyle bool   `env:"USE_PATH_STYLE" envDefault:"false"`
}

type CORSConfig struct {
	Origins []string `env:"ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
}

type SMTPConfig struct {
	Host       string `env:"HOST" envDefault:"mailpit"`
	Port       int    `env:"PORT" envDefault:"1025"`
	Username   string `env:"USERNAME"`
	Password   string `env:"PASSWORD"`
	Encryption string `env:"ENCRYPTION" envDefault:"none"`
	From       string `env:"FROM" envDefault:"noreply@gatelog.local"`
	FromName   string `env:"FROM_NAME" envDefault:"Gatelog"`
}

type PlateConfig struct {
	APIURL     string        `env:"API_URL"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxRetries uint64        `env:"MAX_RETRIES" envDefault:"2"`
}

type DeviceConfig struct {
	APIKey string `env:"API_KEY"`
}

type ContactConfig struct {
	Recipient string `env:"RECIPIENT"`
}

// LimitConfig uses the limiter format: "<count>-<S|M|H|D>"
type LimitConfig struct {
	Public string `env:"PUBLIC" envDefault:"20-M"`
}

type OTPConfig struct {
	PurgeSchedule string `env:"PURGE_SCHEDULE" envDefault:"@hourly"`
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

const (
	DefaultEquipmentFile  = "public/equipment_data.json"
	DefaultSessionTimeout = 10 * time.Minute
	DefaultMaxBodyBytes   = 100 * 1024
	DefaultJWTSecret      = "change-me"
	DefaultAuthUsername   = "if"
	DefaultAuthPassword   = "parola"
)

type Config struct {
	ServerPort      string        `yaml:"server_port"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`

	StorageBackend string   `yaml:"storage_backend"`
	EquipmentFile  string   `yaml:"equipment_file"`
	RedisURL       string   `yaml:"redis_url"`
	RedisKey       string   `yaml:"redis_key"`
	DatabaseURL    string   `yaml:"database_url"`
	S3             S3Config `yaml:"s3"`

	JWTSecret          string        `yaml:"jwt_secret"`
	SessionTimeout     time.Duration `yaml:"session_timeout"`
	AuthUsername       string        `yaml:"auth_username"`
	AuthPassword       string        `yaml:"auth_password"`
	AuthPasswordHash   string        `yaml:"auth_password_hash"`
	RequireAuthForSave bool          `yaml:"require_auth_for_save"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	ObjectKey string `yaml:"object_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func Default() *Config {
	return &Config{
		ServerPort:      "8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		StorageBackend:  BackendFile,
		EquipmentFile:   DefaultEquipmentFile,
		RedisKey:        "equipment:data",
		S3: S3Config{
			ObjectKey: "equipment_data.json",
		},
		JWTSecret:      DefaultJWTSecret,
		SessionTimeout: DefaultSessionTimeout,
		AuthUsername:   DefaultAuthUsername,
		AuthPassword:   DefaultAuthPassword,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE, and finally environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFromYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT is required")
	}
	if c.SessionTimeout <= 0 {
		return errors.New("SESSION_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be positive")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AuthUsername == "" {
		return errors.New("AUTH_USERNAME is required")
	}

	switch c.StorageBackend {
	case BackendFile:
		if c.EquipmentFile == "" {
			return errors.New("EQUIPMENT_FILE is required for file storage")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for redis storage")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres storage")
		}
	case BackendS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("S3_ENDPOINT and S3_BUCKET are required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// InsecureDefaults lists the settings still at their built-in values that
// must not reach production.
func (c *Config) InsecureDefaults() []string {
	var keys []string
	if c.JWTSecret == DefaultJWTSecret {
		keys = append(keys, "JWT_SECRET")
	}
	if c.AuthPasswordHash == "" && c.AuthUsername == DefaultAuthUsername && c.AuthPassword == DefaultAuthPassword {
		keys = append(keys, "AUTH_PASSWORD")
	}
	return keys
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", cfg.StorageBackend))
	cfg.EquipmentFile = getEnv("EQUIPMENT_FILE", cfg.EquipmentFile)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisKey = getEnv("REDIS_KEY", cfg.RedisKey)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKey = getEnv("S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = getEnv("S3_SECRET_KEY", cfg.S3.SecretKey)
	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.ObjectKey = getEnv("S3_OBJECT_KEY", cfg.S3.ObjectKey)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AuthUsername = getEnv("AUTH_USERNAME", cfg.AuthUsername)
	cfg.AuthPassword = getEnv("AUTH_PASSWORD", cfg.AuthPassword)
	cfg.AuthPasswordHash = getEnv("AUTH_PASSWORD_HASH", cfg.AuthPasswordHash)

	var err error
	if cfg.S3.UseSSL, err = getEnvBool("S3_USE_SSL", cfg.S3.UseSSL); err != nil {
		return err
	}
	if cfg.RequireAuthForSave, err = getEnvBool("REQUIRE_AUTH_FOR_SAVE", cfg.RequireAuthForSave); err != nil {
		return err
	}
	if cfg.SessionTimeout, err = getEnvDuration("SESSION_TIMEOUT", cfg.SessionTimeout); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	if raw := os.Getenv("MAX_BODY_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.New("invalid MAX_BODY_BYTES format")
		}
		cfg.MaxBodyBytes = n
	}
	return nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s format", key)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", key)
	}
	return d, nil
}

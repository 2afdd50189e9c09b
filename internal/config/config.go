package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"fileservices/internal/pkg/validator"
)

const (
	defaultPort            = "3000"
	defaultMaxUploadSize   = 100 * 1024 * 1024 // 100 MB
	defaultShutdownTimeout = "30s"
	defaultStorageBackend  = "disk"
	defaultUploadDir       = "uploads"
	defaultImageDir        = "public/images"
)

// Config is the runtime configuration of the file service and filectl.
type Config struct {
	AppEnv             string        `toml:"app_env"`
	Port               string        `toml:"port" validate:"required,numeric"`
	MaxUploadSize      int64         `toml:"max_upload_size" validate:"gt=0"`
	ShutdownTimeoutRaw string        `toml:"shutdown_timeout"`
	ShutdownTimeout    time.Duration `toml:"-" validate:"gt=0"`
	DatabaseURL        string        `toml:"database_url"`
	CORSAllowedOrigins []string      `toml:"cors_allowed_origins"`
	Storage            StorageConfig `toml:"storage"`
}

// StorageConfig selects and configures the storage backend.
// Type decides which of the other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type" validate:"oneof=disk memory s3"` // "disk" (default), "memory" or "s3"

	// disk
	UploadDir string `toml:"upload_dir" validate:"required_if=Type disk"`
	ImageDir  string `toml:"image_dir" validate:"required_if=Type disk"`

	// s3
	S3Bucket          string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		AppEnv:             "dev",
		Port:               defaultPort,
		MaxUploadSize:      defaultMaxUploadSize,
		ShutdownTimeoutRaw: defaultShutdownTimeout,
		Storage: StorageConfig{
			Type:      defaultStorageBackend,
			UploadDir: defaultUploadDir,
			ImageDir:  defaultImageDir,
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named by
// CONFIG_FILE, and then environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := ReadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := finalize(cfg); err != nil {
		return nil, err
	}

	log.Printf("config: env=%s port=%s storage=%s max_upload_size=%d journal=%t",
		cfg.AppEnv, cfg.Port, cfg.Storage.Type, cfg.MaxUploadSize, cfg.DatabaseURL != "")

	return cfg, nil
}

// ReadFile decodes a TOML file on top of cfg.
func ReadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", cfg.AppEnv)))
	cfg.Port = strings.TrimSpace(getEnv("PORT", cfg.Port))
	cfg.ShutdownTimeoutRaw = strings.TrimSpace(getEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeoutRaw))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", cfg.DatabaseURL))

	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_SIZE value %q: %w", v, err)
		}
		cfg.MaxUploadSize = n
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	s := &cfg.Storage
	s.Type = strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", s.Type)))
	s.UploadDir = strings.TrimSpace(getEnv("UPLOAD_DIR", s.UploadDir))
	s.ImageDir = strings.TrimSpace(getEnv("IMAGE_DIR", s.ImageDir))
	s.S3Bucket = strings.TrimSpace(getEnv("S3_BUCKET", s.S3Bucket))
	s.S3Prefix = strings.TrimSpace(getEnv("S3_PREFIX", s.S3Prefix))
	s.S3Region = strings.TrimSpace(getEnv("S3_REGION", s.S3Region))
	s.S3Endpoint = strings.TrimSpace(getEnv("S3_ENDPOINT", s.S3Endpoint))
	s.S3AccessKeyID = strings.TrimSpace(getEnv("S3_ACCESS_KEY_ID", s.S3AccessKeyID))
	s.S3SecretAccessKey = strings.TrimSpace(getEnv("S3_SECRET_ACCESS_KEY", s.S3SecretAccessKey))
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		s.S3UsePathStyle = parseBool(v)
	}

	return nil
}

func finalize(cfg *Config) error {
	d, err := time.ParseDuration(cfg.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT value %q: %w", cfg.ShutdownTimeoutRaw, err)
	}
	cfg.ShutdownTimeout = d

	return validateConfig(cfg)
}

func validateConfig(cfg *Config) error {
	if errs := validator.Validate(cfg); errs != nil {
		return fmt.Errorf("invalid config: %s", validator.Format(errs))
	}
	if (cfg.Storage.S3AccessKeyID == "") != (cfg.Storage.S3SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

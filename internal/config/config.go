package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Emotion     EmotionConfig     `yaml:"emotion"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RecognitionConfig tunes the matching and enrollment pipeline.
// Tolerance is the maximum accepted aggregate distance; lower is stricter.
type RecognitionConfig struct {
	ModelsDir          string        `yaml:"models_dir"`
	DetectionThreshold float64       `yaml:"detection_threshold"`
	Tolerance          float64       `yaml:"tolerance"`
	StrongMatch        float64       `yaml:"strong_match"`
	Jitters            int           `yaml:"jitters"`
	MinEncodings       int           `yaml:"min_encodings"`
	MaxEncodings       int           `yaml:"max_encodings"`
	MaxWorkers         int           `yaml:"max_workers"`
	DescriptorDim      int           `yaml:"descriptor_dim"`
	Quality            QualityConfig `yaml:"quality"`
}

// QualityConfig gates images before they reach the extractor.
type QualityConfig struct {
	MinDimension  int     `yaml:"min_dimension"`
	MinBrightness float64 `yaml:"min_brightness"`
	MaxBrightness float64 `yaml:"max_brightness"`
	MinSharpness  float64 `yaml:"min_sharpness"`
	MaxImageSize  int     `yaml:"max_image_size"`
}

type EmotionConfig struct {
	Ensemble bool `yaml:"ensemble"`
}

type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// Default returns a config with only defaults applied (no file).
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Recognition.DetectionThreshold == 0 {
		cfg.Recognition.DetectionThreshold = 0.5
	}
	if cfg.Recognition.Tolerance == 0 {
		cfg.Recognition.Tolerance = 0.45
	}
	if cfg.Recognition.StrongMatch == 0 {
		cfg.Recognition.StrongMatch = 0.35
	}
	if cfg.Recognition.Jitters == 0 {
		cfg.Recognition.Jitters = 3
	}
	if cfg.Recognition.MinEncodings == 0 {
		cfg.Recognition.MinEncodings = 5
	}
	if cfg.Recognition.MaxEncodings == 0 {
		cfg.Recognition.MaxEncodings = 10
	}
	if cfg.Recognition.MaxWorkers == 0 {
		cfg.Recognition.MaxWorkers = 4
	}
	if cfg.Recognition.DescriptorDim == 0 {
		cfg.Recognition.DescriptorDim = 128
	}
	if cfg.Recognition.Quality.MinDimension == 0 {
		cfg.Recognition.Quality.MinDimension = 100
	}
	if cfg.Recognition.Quality.MinBrightness == 0 {
		cfg.Recognition.Quality.MinBrightness = 15
	}
	if cfg.Recognition.Quality.MaxBrightness == 0 {
		cfg.Recognition.Quality.MaxBrightness = 245
	}
	if cfg.Recognition.Quality.MinSharpness == 0 {
		cfg.Recognition.Quality.MinSharpness = 50
	}
	if cfg.Recognition.Quality.MaxImageSize == 0 {
		cfg.Recognition.Quality.MaxImageSize = 1024
	}
	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 5 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FA_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FA_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FA_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FA_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FA_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FA_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FA_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FA_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FA_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FA_MODELS_DIR"); v != "" {
		cfg.Recognition.ModelsDir = v
	}
	if v := os.Getenv("FA_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Recognition.Tolerance = f
		}
	}
	if v := os.Getenv("FA_MIN_ENCODINGS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recognition.MinEncodings = n
		}
	}
	if v := os.Getenv("FA_JITTERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recognition.Jitters = n
		}
	}
	if v := os.Getenv("FA_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recognition.MaxWorkers = n
		}
	}
	if v := os.Getenv("FA_EMOTION_ENSEMBLE"); v != "" {
		cfg.Emotion.Ensemble = v == "true" || v == "1"
	}
	if v := os.Getenv("FA_WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("FA_WEBHOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Webhook.Timeout = d
		}
	}
}

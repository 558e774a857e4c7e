// internal/pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree for the creative service. It is
// loaded once at startup from a yaml file and then overridden by environment
// variables, so deployments can tune quotas without shipping a new file.
type Config struct {
	App struct {
		GenerationCount   int     `yaml:"generation_count"`
		ApprovalThreshold float64 `yaml:"approval_threshold"`
		// ApprovalRule optionally replaces the threshold-derived gate expression.
		ApprovalRule  string `yaml:"approval_rule"`
		RunTimeoutSec int    `yaml:"run_timeout_sec"`
	} `yaml:"app"`

	AI struct {
		APIKey            string  `yaml:"api_key"`
		BaseURL           string  `yaml:"base_url"`
		VisionModel       string  `yaml:"vision_model"`
		TextModel         string  `yaml:"text_model"`
		ImageModel        string  `yaml:"image_model"`
		ReviewerAModel    string  `yaml:"reviewer_a_model"`
		ReviewerBModel    string  `yaml:"reviewer_b_model"`
		RequestsPerMinute float64 `yaml:"requests_per_minute"`
		MaxRetries        int     `yaml:"max_retries"`
		DefaultBackoffSec int     `yaml:"default_backoff_sec"`
		CallTimeoutSec    int     `yaml:"call_timeout_sec"`
	} `yaml:"ai"`

	Infra struct {
		MysqlDSN   string `yaml:"mysql_dsn"`
		RedisAddr  string `yaml:"redis_addr"`
		KafkaAddrs string `yaml:"kafka_addrs"`
		GCSBucket  string `yaml:"gcs_bucket"`
		Jaeger     struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
	} `yaml:"infra"`
}

var (
	current Config
	mu      sync.RWMutex
)

// Load reads the yaml file at CONFIG_PATH (default config.yaml), applies
// defaults and env overrides, and installs the result as the current config.
// A missing file is not fatal: env + defaults alone are a valid setup.
func Load() (Config, error) {
	var cfg Config

	path := getEnv("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	mu.Lock()
	current = cfg
	mu.Unlock()
	return cfg, nil
}

// GetCurrent returns the last loaded configuration.
func GetCurrent() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func applyDefaults(cfg *Config) {
	if cfg.App.GenerationCount <= 0 {
		cfg.App.GenerationCount = 5
	}
	if cfg.App.ApprovalThreshold <= 0 {
		cfg.App.ApprovalThreshold = 0.8
	}
	if cfg.App.RunTimeoutSec <= 0 {
		cfg.App.RunTimeoutSec = 3600
	}
	if cfg.AI.RequestsPerMinute <= 0 {
		cfg.AI.RequestsPerMinute = 9
	}
	if cfg.AI.MaxRetries <= 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.DefaultBackoffSec <= 0 {
		cfg.AI.DefaultBackoffSec = 45
	}
	if cfg.AI.CallTimeoutSec <= 0 {
		cfg.AI.CallTimeoutSec = 180
	}
	if cfg.Infra.MysqlDSN == "" {
		cfg.Infra.MysqlDSN = "root:root@tcp(localhost:3306)/adforge?charset=utf8mb4&parseTime=True&loc=Local"
	}
	if cfg.Infra.RedisAddr == "" {
		cfg.Infra.RedisAddr = "localhost:6379"
	}
	if cfg.Infra.KafkaAddrs == "" {
		cfg.Infra.KafkaAddrs = "localhost:9092"
	}
	if cfg.Infra.Jaeger.Endpoint == "" {
		cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	}
}

func applyEnv(cfg *Config) {
	cfg.AI.APIKey = getEnv("OPENAI_API_KEY", cfg.AI.APIKey)
	cfg.AI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.AI.BaseURL)
	cfg.Infra.MysqlDSN = getEnv("MYSQL_DSN", cfg.Infra.MysqlDSN)
	cfg.Infra.RedisAddr = getEnv("REDIS_ADDR", cfg.Infra.RedisAddr)
	cfg.Infra.KafkaAddrs = getEnv("KAFKA_ADDRS", cfg.Infra.KafkaAddrs)
	cfg.Infra.GCSBucket = getEnv("GCS_BUCKET", cfg.Infra.GCSBucket)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)

	if v, ok := lookupFloat("REQUESTS_PER_MINUTE"); ok {
		cfg.AI.RequestsPerMinute = v
	}
	if v, ok := lookupInt("MAX_RETRIES"); ok {
		cfg.AI.MaxRetries = v
	}
	if v, ok := lookupInt("GENERATION_COUNT"); ok {
		cfg.App.GenerationCount = v
	}
	if v, ok := lookupFloat("APPROVAL_THRESHOLD"); ok {
		cfg.App.ApprovalThreshold = v
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func lookupInt(key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lookupFloat(key string) (float64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

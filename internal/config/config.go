package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the exam platform API.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	JWTSecret          string
	TokenTTL           time.Duration
	SummaryCacheTTL    time.Duration
	AlertSubjectPrefix string
	ClassifierURL      string
	ClassifierAPIKey   string
	SnapshotCloudName  string
	SnapshotAPIKey     string
	SnapshotAPISecret  string
	SnapshotFolder     string
	DockerHost         string
	ExecutionTimeout   time.Duration
	CodeRunMemoryMB    int
	CodeRunCPUShares   int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROCTOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Proctor API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("token.ttl", "12h")
	v.SetDefault("summary.cache_ttl", "30s")
	v.SetDefault("alert.subject_prefix", "proctor.alerts")
	v.SetDefault("snapshot.folder", "proctor/snapshots")
	v.SetDefault("execution_timeout_ms", 5000)
	v.SetDefault("code_run_memory_mb", 256)
	v.SetDefault("code_run_cpu_shares", 512)

	tokenTTL, err := time.ParseDuration(v.GetString("token.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid token ttl: %w", err)
	}

	summaryTTL, err := time.ParseDuration(v.GetString("summary.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid summary cache ttl: %w", err)
	}

	timeoutMs := v.GetInt("execution_timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		TokenTTL:           tokenTTL,
		SummaryCacheTTL:    summaryTTL,
		AlertSubjectPrefix: v.GetString("alert.subject_prefix"),
		ClassifierURL:      v.GetString("classifier.url"),
		ClassifierAPIKey:   v.GetString("classifier.api_key"),
		SnapshotCloudName:  v.GetString("snapshot.cloud_name"),
		SnapshotAPIKey:     v.GetString("snapshot.api_key"),
		SnapshotAPISecret:  v.GetString("snapshot.api_secret"),
		SnapshotFolder:     v.GetString("snapshot.folder"),
		DockerHost:         v.GetString("docker_host"),
		ExecutionTimeout:   time.Duration(timeoutMs) * time.Millisecond,
		CodeRunMemoryMB:    v.GetInt("code_run_memory_mb"),
		CodeRunCPUShares:   v.GetInt("code_run_cpu_shares"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.CodeRunMemoryMB <= 0 {
		cfg.CodeRunMemoryMB = 256
	}

	if cfg.CodeRunCPUShares <= 0 {
		cfg.CodeRunCPUShares = 512
	}

	return cfg, nil
}

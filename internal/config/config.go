package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Simulation SimulationConfig
	Cache      CacheConfig
	Server     ServerConfig
	Tracing    TracingConfig
	Alert      AlertConfig
	Stats      StatsConfig
	Log        LogConfig
}

type SimulationConfig struct {
	PBorn      float64
	PDie       float64
	Trials     int
	Seed       int64
	Workers    int
	Batches    int
	TickBudget int
}

type CacheConfig struct {
	RedisEnabled bool
	RedisURL     string
}

type ServerConfig struct {
	HealthPort int
	AdminPort  int
}

type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type AlertConfig struct {
	WebhookURL string
	Cooldown   time.Duration
}

type StatsConfig struct {
	ReferencesFile string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Simulation: SimulationConfig{
			PBorn:      getEnvFloat("P_BORN", 0.5),
			PDie:       getEnvFloat("P_DIE", 0.5),
			Trials:     getEnvInt("TRIALS", 1000),
			Seed:       int64(getEnvInt("SEED", 42)),
			Workers:    getEnvInt("WORKERS", 0),
			Batches:    getEnvInt("N_BATCHES", 1),
			TickBudget: getEnvInt("TICK_BUDGET", 0),
		},
		Cache: CacheConfig{
			RedisEnabled: getEnvBool("REDIS_ENABLED", false),
			RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Server: ServerConfig{
			HealthPort: getEnvInt("HEALTH_PORT", 8080),
			AdminPort:  getEnvInt("ADMIN_PORT", 8081),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("TRACING_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "allensim"),
		},
		Alert: AlertConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:   time.Duration(getEnvInt("ALERT_COOLDOWN_SEC", 300)) * time.Second,
		},
		Stats: StatsConfig{
			ReferencesFile: getEnv("REFERENCES_FILE", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.PBorn <= 0 || c.Simulation.PBorn > 1 {
		return fmt.Errorf("P_BORN must be in (0,1], got %g", c.Simulation.PBorn)
	}
	if c.Simulation.PDie <= 0 || c.Simulation.PDie > 1 {
		return fmt.Errorf("P_DIE must be in (0,1], got %g", c.Simulation.PDie)
	}
	if c.Simulation.Trials < 1 {
		return fmt.Errorf("TRIALS must be >= 1, got %d", c.Simulation.Trials)
	}
	if c.Simulation.Batches < 1 {
		return fmt.Errorf("N_BATCHES must be >= 1, got %d", c.Simulation.Batches)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("WORKERS must be >= 0, got %d", c.Simulation.Workers)
	}
	if c.Cache.RedisEnabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when REDIS_ENABLED is set")
	}
	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		return fmt.Errorf("TRACING_OTLP_ENDPOINT is required when TRACING_ENABLED is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"P_BORN", "P_DIE", "TRIALS", "SEED", "WORKERS", "N_BATCHES",
		"TICK_BUDGET", "REDIS_ENABLED", "REDIS_URL", "HEALTH_PORT",
		"ADMIN_PORT", "TRACING_ENABLED", "ALERT_WEBHOOK_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Simulation.PBorn)
	assert.Equal(t, 0.5, cfg.Simulation.PDie)
	assert.Equal(t, 1000, cfg.Simulation.Trials)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 0, cfg.Simulation.Workers)
	assert.Equal(t, 1, cfg.Simulation.Batches)
	assert.Equal(t, 0, cfg.Simulation.TickBudget)
	assert.False(t, cfg.Cache.RedisEnabled)
	assert.Equal(t, "redis://localhost:6379", cfg.Cache.RedisURL)
	assert.Equal(t, 8080, cfg.Server.HealthPort)
	assert.Equal(t, 8081, cfg.Server.AdminPort)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "allensim", cfg.Tracing.ServiceName)
	assert.Empty(t, cfg.Alert.WebhookURL)
	assert.Equal(t, 5*time.Minute, cfg.Alert.Cooldown)
	assert.Empty(t, cfg.Stats.ReferencesFile)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("P_BORN", "0.2")
	t.Setenv("P_DIE", "0.8")
	t.Setenv("TRIALS", "50000")
	t.Setenv("SEED", "7")
	t.Setenv("WORKERS", "8")
	t.Setenv("N_BATCHES", "10")
	t.Setenv("TICK_BUDGET", "4096")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("HEALTH_PORT", "9090")
	t.Setenv("ADMIN_PORT", "9091")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.example.com/abc")
	t.Setenv("ALERT_COOLDOWN_SEC", "60")
	t.Setenv("REFERENCES_FILE", "/etc/allensim/references.yaml")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.Simulation.PBorn)
	assert.Equal(t, 0.8, cfg.Simulation.PDie)
	assert.Equal(t, 50000, cfg.Simulation.Trials)
	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, 8, cfg.Simulation.Workers)
	assert.Equal(t, 10, cfg.Simulation.Batches)
	assert.Equal(t, 4096, cfg.Simulation.TickBudget)
	assert.True(t, cfg.Cache.RedisEnabled)
	assert.Equal(t, "redis://cache:6379/2", cfg.Cache.RedisURL)
	assert.Equal(t, 9090, cfg.Server.HealthPort)
	assert.Equal(t, 9091, cfg.Server.AdminPort)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4317", cfg.Tracing.OTLPEndpoint)
	assert.Equal(t, "https://hooks.example.com/abc", cfg.Alert.WebhookURL)
	assert.Equal(t, time.Minute, cfg.Alert.Cooldown)
	assert.Equal(t, "/etc/allensim/references.yaml", cfg.Stats.ReferencesFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"pBorn zero", "P_BORN", "0"},
		{"pBorn above one", "P_BORN", "1.5"},
		{"pDie zero", "P_DIE", "0"},
		{"pDie negative", "P_DIE", "-0.1"},
		{"trials zero", "TRIALS", "0"},
		{"batches zero", "N_BATCHES", "0"},
		{"workers negative", "WORKERS", "-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("TRIALS", "not-a-number")
	t.Setenv("P_BORN", "half")
	t.Setenv("REDIS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Simulation.Trials)
	assert.Equal(t, 0.5, cfg.Simulation.PBorn)
	assert.False(t, cfg.Cache.RedisEnabled)
}

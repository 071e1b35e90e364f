package config_test

import (
	"testing"
	"time"

	"go-hris-leave/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Workflow.SideEffectTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Workflow.StatsRecomputeInterval)
	assert.Equal(t, 64, cfg.Worker.PoolSize)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "750ms")
	t.Setenv("APP_ENV", "production")

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 750*time.Millisecond, cfg.Workflow.SideEffectTimeout)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFrom_InvalidRetryDelays(t *testing.T) {
	t.Setenv("RETRY_BASE_DELAY", "10s")
	t.Setenv("RETRY_MAX_DELAY", "1s")

	_, err := config.LoadFrom(viper.New())
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "hris"}
	assert.Equal(t, "host=db user=u password=p dbname=hris port=5432 sslmode=disable", c.DSN())
}

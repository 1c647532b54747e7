package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Lifecycle.AdminFeeRate))
	assert.Equal(t, time.Second, cfg.Lifecycle.TimeUnit)
	assert.Equal(t, 7*time.Second, cfg.Lifecycle.VerificationDelay())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TRUSTCHAIN_ADMIN_FEE_RATE", "0.1")
	t.Setenv("TRUSTCHAIN_TIME_UNIT", "24h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.Lifecycle.AdminFeeRate))
	assert.Equal(t, 7*24*time.Hour, cfg.Lifecycle.VerificationDelay())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestFromEnvRejectsInvalidRules(t *testing.T) {
	t.Run("fee rate of one", func(t *testing.T) {
		t.Setenv("TRUSTCHAIN_ADMIN_FEE_RATE", "1")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("unparsable duration", func(t *testing.T) {
		t.Setenv("TRUSTCHAIN_TIME_UNIT", "soon")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})
}

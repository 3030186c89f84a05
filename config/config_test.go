package config

import (
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "1414", cfg.Port)
	assert.Equal(t, "bvstock", cfg.MongoDB)
	assert.Equal(t, "client", cfg.SaleBVSource)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.StorageEnabled())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SALE_BV_SOURCE", "stock")
	t.Setenv("METRICS_ALLOW", "10.0.0.1,10.0.0.2")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")

	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "stock", cfg.SaleBVSource)
	assert.Equal(t, 12, cfg.LowStockThreshold)
	assert.True(t, cfg.MetricsAllowed("10.0.0.2"))
	assert.False(t, cfg.MetricsAllowed("127.0.0.1"))
}

func TestValidate(t *testing.T) {
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	bad := cfg
	bad.SaleBVSource = "catalog"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.LowStockAt = "7am"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())
}

func TestRequireSecrets(t *testing.T) {
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	assert.Equal(t, []string{"JWT_SECRET", "SEED_ADMIN_PASSWORD", "SEED_STAFF_PASSWORD"}, cfg.InsecureDefaults())
	err := cfg.RequireSecrets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWTSecret = "s3cr3t-signing-key"
	cfg.SeedAdminPassword = "admin-pass"
	assert.Equal(t, []string{"SEED_STAFF_PASSWORD"}, cfg.InsecureDefaults())

	cfg.SeedStaffPassword = "staff-pass"
	assert.Empty(t, cfg.InsecureDefaults())
	assert.NoError(t, cfg.RequireSecrets())
}

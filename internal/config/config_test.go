package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.Default("lab-1")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "lab-1", cfg.Lab.ID)
	assert.Equal(t, "USD", cfg.Billing.Currency)
	assert.Equal(t, "QT", cfg.Billing.NumberPrefix)
	assert.True(t, cfg.Receipts.RequireRejectNote)
	assert.Contains(t, cfg.RBAC.Roles, "admin")
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("lab-2")))
	require.NoError(t, err)
	assert.Equal(t, "lab-2", cfg.Lab.ID)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing lab id", func(c *config.Config) { c.Lab.ID = "" }},
		{"missing currency", func(c *config.Config) { c.Billing.Currency = "" }},
		{"long currency", func(c *config.Config) { c.Billing.Currency = "DOLLARS" }},
		{"negative tax", func(c *config.Config) { c.Billing.TaxPercent = -1 }},
		{"tax over 100", func(c *config.Config) { c.Billing.TaxPercent = 101 }},
		{"missing prefix", func(c *config.Config) { c.Billing.NumberPrefix = "" }},
		{"roles without admin", func(c *config.Config) { delete(c.RBAC.Roles, "admin") }},
		{"webhook without url", func(c *config.Config) {
			c.Webhooks = append(c.Webhooks, config.Webhook{Events: []string{"rfi.created"}})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default("lab-1")
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	_, err := config.FromYAML([]byte("lab: [not a map"))
	require.Error(t, err)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	path := filepath.Join(dir, "labdesk.yml")
	require.NoError(t, os.WriteFile(path, []byte(config.GenerateDefault("lab-3")), 0o644))
	cfg, err = config.LoadOptional(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "lab-3", cfg.Lab.ID)
}

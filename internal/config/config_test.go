package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_ADDR", ":9090")
	t.Setenv("APP_CAMPAIGNS_SOURCE", CampaignSourceDir)
	t.Setenv("APP_CAMPAIGNS_DIR", "testdata/campaigns")
	t.Setenv("APP_HASHING_CURRENT_SECRET", "current")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, CampaignSourceDir, cfg.Campaigns.Source)
	assert.Equal(t, "testdata/campaigns", cfg.Campaigns.Dir)
	assert.Equal(t, "current", cfg.Hashing.CurrentSecret)
}

func TestValidate_Defaults(t *testing.T) {
	var cfg Config
	validate(&cfg)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "campaign_config_change", cfg.Listener.Channel)
	assert.Equal(t, 5*time.Second, cfg.Backoff())
	assert.Equal(t, CampaignSourcePostgres, cfg.Campaigns.Source)
	assert.Equal(t, "postgres://u:p@db:5432/elig?sslmode=disable", func() string {
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.DBName = "u", "p", "db", "elig"
		return cfg.DSN()
	}())
}

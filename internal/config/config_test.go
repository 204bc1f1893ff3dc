package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://letterboxd.com", cfg.Upstream.BaseURL)
	require.Equal(t, 4, cfg.Scraper.Workers)
	require.Equal(t, 15, cfg.HTTP.TimeoutSeconds)
	require.False(t, cfg.Headless.Enabled)
	require.Contains(t, cfg.Catalogs, "top-250-filipino")
	require.InDelta(t, 1.0, cfg.Politeness.RPS, 1e-9)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TOP250_SERVER_PORT", "9090")
	t.Setenv("TOP250_SCRAPER_WORKERS", "8")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 8, cfg.Scraper.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:     ServerConfig{Port: 8080},
		Upstream:   UpstreamConfig{BaseURL: "https://letterboxd.com"},
		Catalogs:   map[string]string{"x": "https://example.com/x/"},
		Scraper:    ScraperConfig{Workers: 2},
		HTTP:       HTTPConfig{TimeoutSeconds: 10},
		Politeness: PolitenessConfig{RPS: 1, Burst: 1},
	}
	require.NoError(t, valid.Validate())

	noCatalogs := valid
	noCatalogs.Catalogs = nil
	require.Error(t, noCatalogs.Validate())

	noWorkers := valid
	noWorkers.Scraper.Workers = 0
	require.Error(t, noWorkers.Validate())

	badPort := valid
	badPort.Server.Port = 0
	require.Error(t, badPort.Validate())
}

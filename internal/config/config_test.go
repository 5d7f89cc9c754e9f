package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./fabricpop.db", cfg.Database.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ParsePublishInterval())
	assert.False(t, cfg.Catalog.IGDB.HasCredentials())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/reviews.db
schedule:
  publish_interval: 30s
  import_interval: nonsense
letterboxd:
  feeds:
    - https://letterboxd.com/neo/rss/
server:
  port: 9000
`), 0o600))

	t.Setenv("TWITCH_CLIENT_ID", "cid")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	t.Setenv("FABRICPOP_WEBHOOK_URL", "https://hooks.example.org/reviews")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/reviews.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Schedule.ParsePublishInterval())
	assert.Equal(t, time.Hour, cfg.Schedule.ParseImportInterval())
	assert.Equal(t, []string{"https://letterboxd.com/neo/rss/"}, cfg.Letterboxd.Feeds)
	assert.True(t, cfg.Catalog.IGDB.HasCredentials())
	assert.True(t, cfg.Publish.Webhook.Enabled)
	assert.Equal(t, 9100, cfg.Server.Port)
	// Defaults not mentioned in the file survive.
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.Catalog.TMDB.BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

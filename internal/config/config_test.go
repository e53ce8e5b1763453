package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
ai:
  apiKey: test-key
database:
  host: localhost
  port: 3306
  user: root
  name: oracare
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Server.Port)
	require.Equal(t, int64(50), cfg.Server.BodyLimitMB)
	require.Equal(t, "mysql", cfg.Database.Driver)
	require.Equal(t, 60*time.Second, cfg.AITimeout())
	require.Equal(t, 24*time.Hour, cfg.CacheTTL())
	require.True(t, cfg.FailOpen())
}

func TestLoadRequiresAIKey(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 4000
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ORACARE_AI_API_KEY", "from-env")
	t.Setenv("ORACARE_DB_PASSWORD", "secret-pw")

	path := writeConfig(t, `
ai:
  apiKey: from-file
database:
  password: file-pw
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.AI.APIKey)
	require.Equal(t, "secret-pw", cfg.Database.Password)
}

func TestFailOpenExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
ai:
  apiKey: test-key
  failOpen: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.FailOpen())
}

func TestDSNHelpers(t *testing.T) {
	path := writeConfig(t, `
ai:
  apiKey: test-key
database:
  driver: postgres
  host: db.local
  port: 5432
  user: app
  password: pw
  name: oracare
  sslMode: require
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t,
		"host=db.local port=5432 user=app password=pw dbname=oracare sslmode=require",
		cfg.PostgresDSN())
	require.Contains(t, cfg.MySQLDSN(), "app:pw@tcp(db.local:5432)/oracare")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "thistle-api", cfg.AppName)
	assert.Equal(t, 5432, cfg.DatabasePort)
	assert.Equal(t, []string{"GET", "POST", "PUT"}, cfg.AllowMethods)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)

	m := cfg.MatchingConfig()
	assert.True(t, m.CheckFuzzy)
	assert.Equal(t, 4, m.CascadeConcurrency)
	assert.Equal(t, 30*time.Second, m.CascadeItemTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MATCH_CHECK_FUZZY", "false")
	t.Setenv("CASCADE_CONCURRENCY", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_BATCH_TIMEOUT_MS", "250")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	m := cfg.MatchingConfig()
	assert.False(t, m.CheckFuzzy)
	assert.Equal(t, 8, m.CascadeConcurrency)

	p := cfg.Producer()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, p.Brokers)
	assert.Equal(t, 250*time.Millisecond, p.BatchTimeout)
}

func TestLoad_EnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("DB_NAME=from_file\nDB_HOST=db.internal\n"), 0o600))
	t.Setenv("DB_HOST", "from-env")
	t.Cleanup(func() { os.Unsetenv("DB_NAME") })

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "from_file", cfg.DatabaseName)
	assert.Equal(t, "from-env", cfg.DatabaseHost, "the environment wins over the file")
	assert.Contains(t, cfg.Database().DSN(), "dbname=from_file")
}

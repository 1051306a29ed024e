package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8081
canon:
  default_embedding: "askcos"
  mapping: true
  max_atoms: 40
  batch_workers: 8
redis:
  enabled: true
  addr: "localhost:6379"
database:
  enabled: true
  host: "localhost"
  port: 5432
  user: "canon"
  password: "secret"
  db_name: "rules"
kafka:
  brokers: ["localhost:9092"]
log:
  level: "debug"
  format: "console"
`

func createTempConfigFile(t *testing.T, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "askcos", cfg.Canon.DefaultEmbedding)
	assert.True(t, cfg.Canon.Mapping)
	assert.True(t, cfg.Canon.Remap, "remap defaults to true")
	assert.Equal(t, 40, cfg.Canon.MaxAtoms)
	assert.Equal(t, 8, cfg.Canon.BatchWorkers)
	assert.Equal(t, "rules", cfg.Database.DBName)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "server:\n  port: 70000\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("SMARTSCANON_CANON_MAX_ATOMS", "12")
	t.Setenv("SMARTSCANON_CANON_REMAP", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Canon.MaxAtoms)
	assert.False(t, cfg.Canon.Remap)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("SMARTSCANON_SERVER_PORT", "9090")
	t.Setenv("SMARTSCANON_CANON_DEFAULT_EMBEDDING", "uniform")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "uniform", cfg.Canon.DefaultEmbedding)
	assert.Equal(t, DefaultBatchWorkers, cfg.Canon.BatchWorkers)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOrEnv(t *testing.T) {
	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)

	path := createTempConfigFile(t, validConfigYAML)
	cfg, err = LoadOrEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestMustLoad_Success(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		MustLoad(path)
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad("non_existent.yaml")
	})
}

func TestWatch_ReloadsCanonSection(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changes := make(chan CanonConfig, 4)
	Watch(path, func(c CanonConfig) { changes <- c }, nil)

	require.NoError(t, os.WriteFile(path, []byte(
		"server:\n  port: 8081\ncanon:\n  default_embedding: \"uniform\"\n  max_atoms: 10\n"), 0644))

	select {
	case c := <-changes:
		assert.Equal(t, "uniform", c.DefaultEmbedding)
		assert.Equal(t, 10, c.MaxAtoms)
	case <-time.After(5 * time.Second):
		t.Skip("file watcher did not report the change in time on this filesystem")
	}
}

//Personal.AI order the ending

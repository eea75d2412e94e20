package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	// 指向不存在的文件，避免读到工作目录下的 .env
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "STAGING_BACKEND", "STAGING_TTL_SECONDS",
		"REDIS_ADDR", "REDIS_DB", "DB_HOST", "DB_PORT", "DB_NAME", "UPLOAD_MAX_BYTES",
		"PREVIEW_MAX_ROWS", "MAPPING_STRICT", "MQTT_ENABLED", "MQTT_TOPIC",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, StagingMemory, cfg.Staging.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Staging.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "pointlist", cfg.Database.Database)
	assert.Equal(t, int64(32<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 20, cfg.Preview.MaxRows)
	assert.False(t, cfg.MappingStrict)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("STAGING_BACKEND", "Redis")
	t.Setenv("STAGING_TTL_SECONDS", "60")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("MAPPING_STRICT", "true")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_TOPIC", "ship/points")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StagingRedis, cfg.Staging.Backend)
	assert.Equal(t, time.Minute, cfg.Staging.TTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 5432, cfg.Database.Port, "invalid number falls back to default")
	assert.True(t, cfg.MappingStrict)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "ship/points", cfg.MQTT.Topic)
}

func TestLoad_UnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("STAGING_BACKEND", "s3")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\nPREVIEW_MAX_ROWS=5\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("PREVIEW_MAX_ROWS", "7")
	// godotenv 不覆盖已存在（即使为空）的变量
	require.NoError(t, os.Unsetenv("HTTP_ADDR"))
	t.Cleanup(func() { os.Unsetenv("HTTP_ADDR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 7, cfg.Preview.MaxRows, "existing env wins over the file")
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "pl", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=pl sslmode=disable", c.GetDSN())
}

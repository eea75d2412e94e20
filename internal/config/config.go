// Package config 从环境变量（可选 .env 文件）加载服务配置
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 暂存后端
const (
	StagingMemory   = "memory"
	StagingRedis    = "redis"
	StagingPostgres = "postgres"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// MQTTConfig MQTT 配置（导出完成事件，默认禁用）
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Config pointlist（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
		File   string // 非空时同时写入滚动日志文件
	}
	Staging struct {
		Backend string
		TTL     time.Duration
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Database DatabaseConfig
	Upload   struct {
		MaxBytes int64
	}
	Preview struct {
		MaxRows int
	}
	MappingStrict bool
	MQTT          MQTTConfig
}

// Load 加载配置；ENV_FILE 指定的 .env 文件（默认 ./.env，不存在则忽略）先于环境变量读取，
// 已存在的环境变量不会被覆盖
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		if _, statErr := os.Stat(envFile); statErr == nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.File = getEnv("LOG_FILE", "")

	cfg.Staging.Backend = strings.ToLower(getEnv("STAGING_BACKEND", StagingMemory))
	switch cfg.Staging.Backend {
	case StagingMemory, StagingRedis, StagingPostgres:
	default:
		return nil, fmt.Errorf("unknown STAGING_BACKEND %q", cfg.Staging.Backend)
	}
	cfg.Staging.TTL = time.Duration(parseInt(getEnv("STAGING_TTL_SECONDS", "7200"), 7200)) * time.Second

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "pointlist")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "2"), 2)

	cfg.Upload.MaxBytes = int64(parseInt(getEnv("UPLOAD_MAX_BYTES", "33554432"), 32<<20))
	cfg.Preview.MaxRows = parseInt(getEnv("PREVIEW_MAX_ROWS", "20"), 20)
	cfg.MappingStrict = getEnv("MAPPING_STRICT", "false") == "true"

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "pointlist")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "pointlist/export")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
